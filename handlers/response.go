package handlers

import (
	"encoding/json"
	"net/http"

	"taskboard-service/logging"
	"taskboard-service/models"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var kindStatus = map[string]int{
	"validation":    http.StatusBadRequest,
	"not_found":     http.StatusNotFound,
	"authorization": http.StatusForbidden,
	"conflict":      http.StatusConflict,
	"dependency":    http.StatusFailedDependency,
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: %v", err)
	}
}

// writeError maps a service error to its status. Unclassified errors are
// logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := models.Kind(err)
	status, ok := kindStatus[kind]
	if !ok {
		logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Kind: kind, Message: "internal server error"})
		return
	}
	logging.Logger.Warnf("Event ID: REQUEST_FAILED, Description: %s %s: %v", r.Method, r.URL.Path, err)
	writeJSON(w, status, errorBody{Kind: kind, Message: err.Error()})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return models.ValidationError("invalid request payload: %v", err)
	}
	return nil
}
