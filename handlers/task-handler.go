package handlers

import (
	"net/http"
	"strconv"

	"taskboard-service/models"
	"taskboard-service/services"

	"github.com/gorilla/mux"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func (h *TaskHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in services.CreatePostInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	post, err := h.service.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *TaskHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := services.QueryInput{
		Scope:    models.Scope(q.Get("scope")),
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Priority: models.Priority(q.Get("priority")),
		Deadline: models.DeadlineBucket(q.Get("deadline")),
		Sort:     models.SortBy(q.Get("sort")),
	}
	var err error
	if in.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, r, models.ValidationError("limit: %v", err))
		return
	}
	if in.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, r, models.ValidationError("offset: %v", err))
		return
	}

	page, err := h.service.Query(r.Context(), actorFrom(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (h *TaskHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), actorFrom(r), mux.Vars(r)["postId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *TaskHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var in services.UpdatePostInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	post, err := h.service.Update(r.Context(), actorFrom(r), mux.Vars(r)["postId"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *TaskHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actorFrom(r), mux.Vars(r)["postId"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) ReorderPosts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostIDs []string `json:"postIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	moved, err := h.service.Reorder(r.Context(), actorFrom(r), req.PostIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reordered": moved})
}

func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	var in services.SubtaskInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	post, err := h.service.AddSubtask(r.Context(), actorFrom(r), mux.Vars(r)["postId"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *TaskHandler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	post, err := h.service.ToggleSubtask(r.Context(), actorFrom(r), vars["postId"], vars["subtaskId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *TaskHandler) CompletePost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.CompleteTask(r.Context(), actorFrom(r), mux.Vars(r)["postId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.PostStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	post, err := h.service.SetStatus(r.Context(), actorFrom(r), mux.Vars(r)["postId"], req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *TaskHandler) AddActivity(w http.ResponseWriter, r *http.Request) {
	var in services.ActivityInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	post, err := h.service.AddActivity(r.Context(), actorFrom(r), mux.Vars(r)["postId"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}
