// Package register exposes the registration side channel: a single JSON
// endpoint that creates user accounts. It is glue around identity.Store and
// plays no part in message routing.
package register

import (
	"log/slog"
	"net/http"

	"relay/cmd/identity"
)

const defaultMaxBodyBytes = 16 << 10 // 16 KiB

// Handler serves POST /register.
type Handler struct {
	log   *slog.Logger
	store identity.Store

	maxBodyBytes int64
}

// NewHandler constructs a registration handler over the given store.
func NewHandler(log *slog.Logger, store identity.Store) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:          log,
		store:        store,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// Register wires the registration route onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/register", h.handleRegister)
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	u, err := h.store.CreateUser(r.Context(), identity.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
	})
	switch {
	case err == nil:
		h.log.Info("register.user.created", "username", u.Username)
		writeJSON(w, http.StatusCreated, registerResponse{ID: u.ID, Username: u.Username})
	case identity.IsConflict(err):
		writeError(w, http.StatusConflict, "username_taken", "username already exists")
	case identity.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		h.log.Error("register.user.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "registration failed")
	}
}
