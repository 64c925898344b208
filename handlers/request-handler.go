package handlers

import (
	"net/http"

	"taskboard-service/services"

	"github.com/gorilla/mux"
)

type RequestHandler struct {
	service *services.RequestService
}

func NewRequestHandler(service *services.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

func (h *RequestHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.Send(r.Context(), actorFrom(r), mux.Vars(r)["postId"], req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *RequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.ListPending(r.Context(), actorFrom(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *RequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Accept(r.Context(), actorFrom(r).UserID, mux.Vars(r)["postId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reject(r.Context(), actorFrom(r).UserID, mux.Vars(r)["postId"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
