package server

import (
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/gorilla/mux"
)

// SetUser handles POST /user/set/?address=&username=
func (h *Handler) SetUser(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	username := r.URL.Query().Get("username")

	if address == "" || username == "" {
		writeError(w, http.StatusBadRequest, "You must provide a username and address in the params")
		return
	}

	ip := net.ParseIP(address)
	if ip == nil {
		writeError(w, http.StatusBadRequest, "Could not parse the provided address")
		return
	}

	if err := h.Store.SetUser(ip.String(), username); err != nil {
		h.log.Error("[POST /user/set/] ❌ Database error", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not set new user")
		return
	}

	h.log.Info("[POST /user/set/] ✅ Username set", "address", ip.String(), "username", username)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "Username set to "+username)
}

// GetUser handles GET /user/get/{address}. The body is the bare username.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if ip := net.ParseIP(address); ip != nil {
		address = ip.String()
	}

	username, err := h.Store.User(address)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Unknown address")
		return
	}
	if err != nil {
		h.log.Error("[GET /user/get/] ❌ Database error", "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "Could not get username from database")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, username)
}
