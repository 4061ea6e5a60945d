package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"msgboard/internal/model"
)

const (
	eventMessage        = "message"
	eventMessageDeleted = "message_deleted"
)

// CreateMessage handles POST /message/post/
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	h.log.Info("[POST /message/post/] Request received", "remote", r.RemoteAddr)

	// リクエストボディサイズを1MBに制限
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var msg model.PostRequest
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.log.Warn("[POST /message/post/] ❌ Bad Request", "error", err)
		writeError(w, http.StatusBadRequest, "Could not parse request body")
		return
	}

	if msg.Content == "" || msg.Address == "" {
		h.log.Warn("[POST /message/post/] ❌ Bad Request: missing content or address")
		writeError(w, http.StatusBadRequest, "body must include a valid content and address field")
		return
	}

	ip := net.ParseIP(msg.Address)
	if ip == nil {
		h.log.Warn("[POST /message/post/] ❌ Bad Request: invalid address", "address", msg.Address)
		writeError(w, http.StatusBadRequest, "Could not parse ip address")
		return
	}

	rec, err := h.Store.AddMessage(msg.Content, ip.String(), time.Now())
	if err != nil {
		h.log.Error("[POST /message/post/] ❌ Database error", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not write message to database")
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		h.log.Error("[POST /message/post/] ❌ Encode error", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not encode message")
		return
	}

	h.log.Info("[POST /message/post/] ✅ Created message", "id", rec.ID, "address", rec.UserIP)

	h.Broadcast <- model.StreamEvent{
		Type: eventMessage,
		ID:   strconv.FormatUint(rec.ID, 10),
		Data: data,
	}

	writeJSON(w, http.StatusCreated, rec)
}

// GetMessages handles GET /message/all/
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	h.log.Info("[GET /message/all/] Request received", "remote", r.RemoteAddr)

	records, err := h.Store.Messages()
	if err != nil {
		h.log.Error("[GET /message/all/] ❌ Database error", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not get messages")
		return
	}

	if records == nil {
		records = []Record{}
	}

	h.log.Info("[GET /message/all/] ✅ Returned messages", "count", len(records))
	writeJSON(w, http.StatusOK, records)
}

// GetMessage handles GET /message/get/{id}
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not get message. perhaps the id was invalid.")
		return
	}

	rec, err := h.Store.Message(id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Message not found")
		return
	}
	if err != nil {
		h.log.Error("[GET /message/get/] ❌ Database error", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// DeleteMessage handles DELETE /message/delete/{id}
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	h.log.Info("[DELETE /message/delete/] Request received", "id", raw, "remote", r.RemoteAddr)

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "You must provide a valid message id")
		return
	}

	err = h.Store.DeleteMessage(id)
	if errors.Is(err, ErrNotFound) {
		h.log.Warn("[DELETE /message/delete/] ❌ Not Found", "id", id)
		writeError(w, http.StatusNotFound, "Message not found")
		return
	}
	if err != nil {
		h.log.Error("[DELETE /message/delete/] ❌ Database error", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Could not delete message from database")
		return
	}

	h.log.Info("[DELETE /message/delete/] ✅ Deleted successfully", "id", id)

	// 他のクライアントに削除を通知
	idText := strconv.FormatUint(id, 10)
	h.Broadcast <- model.StreamEvent{
		Type: eventMessageDeleted,
		Data: json.RawMessage(idText),
	}

	w.WriteHeader(http.StatusNoContent)
}
