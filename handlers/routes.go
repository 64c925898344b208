package handlers

import (
	"net/http"

	"taskboard-service/logging"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type RouterConfig struct {
	Tasks         *TaskHandler
	Notifications *NotificationHandler
	Requests      *RequestHandler
	Tokens        *TokenValidator
	CORSOrigins   []string
}

// NewRouter wires every route behind auth, CORS, panic recovery and request logging.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(cfg.Tokens))

	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", cfg.Tasks.CreatePost).Methods(http.MethodPost)
	posts.HandleFunc("", cfg.Tasks.ListPosts).Methods(http.MethodGet)
	posts.HandleFunc("/reorder", cfg.Tasks.ReorderPosts).Methods(http.MethodPut)
	posts.HandleFunc("/{postId}", cfg.Tasks.GetPost).Methods(http.MethodGet)
	posts.HandleFunc("/{postId}", cfg.Tasks.UpdatePost).Methods(http.MethodPut)
	posts.HandleFunc("/{postId}", cfg.Tasks.DeletePost).Methods(http.MethodDelete)
	posts.HandleFunc("/{postId}/subtasks", cfg.Tasks.AddSubtask).Methods(http.MethodPost)
	posts.HandleFunc("/{postId}/subtasks/{subtaskId}/toggle", cfg.Tasks.ToggleSubtask).Methods(http.MethodPatch)
	posts.HandleFunc("/{postId}/complete", cfg.Tasks.CompletePost).Methods(http.MethodPost)
	posts.HandleFunc("/{postId}/status", cfg.Tasks.SetStatus).Methods(http.MethodPatch)
	posts.HandleFunc("/{postId}/activities", cfg.Tasks.AddActivity).Methods(http.MethodPost)
	posts.HandleFunc("/{postId}/requests", cfg.Requests.Send).Methods(http.MethodPost)

	requests := api.PathPrefix("/requests").Subrouter()
	requests.HandleFunc("", cfg.Requests.ListPending).Methods(http.MethodGet)
	requests.HandleFunc("/{postId}/accept", cfg.Requests.Accept).Methods(http.MethodPost)
	requests.HandleFunc("/{postId}/reject", cfg.Requests.Reject).Methods(http.MethodPost)

	notifications := api.PathPrefix("/notifications").Subrouter()
	notifications.HandleFunc("", cfg.Notifications.List).Methods(http.MethodGet)
	notifications.HandleFunc("/reminders", cfg.Notifications.Reminders).Methods(http.MethodGet)
	notifications.HandleFunc("/unread-count", cfg.Notifications.UnreadCount).Methods(http.MethodGet)
	notifications.HandleFunc("/read-all", cfg.Notifications.MarkAllRead).Methods(http.MethodPut)
	notifications.HandleFunc("/{noticeId}/read", cfg.Notifications.MarkRead).Methods(http.MethodPut)
	notifications.HandleFunc("/{noticeId}", cfg.Notifications.Delete).Methods(http.MethodDelete)

	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.CORSOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	recovery := gorillaHandlers.RecoveryHandler(
		gorillaHandlers.RecoveryLogger(logging.Logger),
		gorillaHandlers.PrintRecoveryStack(true),
	)

	return LoggingMiddleware(recovery(cors(r)))
}
