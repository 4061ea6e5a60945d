package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"msgboard/internal/config"
	"msgboard/internal/model"
)

// Handler holds application dependencies
type Handler struct {
	Store     *Store
	Config    config.Config
	Hub       *Hub
	Broadcast chan model.StreamEvent
	log       *slog.Logger
}

// New creates a new Handler with the given dependencies
func New(store *Store, cfg config.Config, log *slog.Logger) *Handler {
	return &Handler{
		Store:     store,
		Config:    cfg,
		Hub:       NewHub(log),
		Broadcast: make(chan model.StreamEvent, 100),
		log:       log,
	}
}

// SetupRouter configures and returns the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()

	// REST API
	handle(r, "/message/all", h.GetMessages, http.MethodGet)
	handle(r, "/message/post", h.CreateMessage, http.MethodPost)
	r.HandleFunc("/message/get/{id}", h.GetMessage).Methods(http.MethodGet)
	r.HandleFunc("/message/delete/{id}", h.DeleteMessage).Methods(http.MethodDelete)
	handle(r, "/user/set", h.SetUser, http.MethodPost)
	r.HandleFunc("/user/get/{address}", h.GetUser).Methods(http.MethodGet)

	// Push
	handle(r, "/events", h.HandleEvents, http.MethodGet)
	r.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)

	return r
}

// handle registers path with and without its trailing slash
func handle(r *mux.Router, path string, f http.HandlerFunc, methods ...string) {
	r.HandleFunc(path, f).Methods(methods...)
	r.HandleFunc(path+"/", f).Methods(methods...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
