// Package api exposes the thin HTTP surface around the delivery core:
// account provisioning and listing. The real traffic goes through the
// websocket event channel mounted on the same router.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"chatorbit/contract"
	"chatorbit/domain"
	apperrors "chatorbit/errors"
)

type Server struct {
	log      *slog.Logger
	accounts contract.IAccountRepository
	validate *validator.Validate
}

func NewServer(log *slog.Logger, accounts contract.IAccountRepository) *Server {
	return &Server{log: log, accounts: accounts, validate: validator.New()}
}

// Router mounts every HTTP route, including the websocket upgrade.
func (s *Server) Router(serveWS http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.health).Methods(http.MethodGet)
	r.HandleFunc("/signup", s.signup).Methods(http.MethodPost)
	r.HandleFunc("/signin", s.signin).Methods(http.MethodGet)
	r.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/ws", serveWS)
	return r
}

type signupRequest struct {
	UID      string `json:"uid" validate:"required"`
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	PhotoURL string `json:"photo_url"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("chatorbit up\n"))
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var body signupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	account := domain.Account{
		UID:      body.UID,
		Username: body.Username,
		Email:    body.Email,
		PhotoURL: body.PhotoURL,
	}
	switch err := s.accounts.Create(account); {
	case err == nil:
		s.writeJSON(w, http.StatusCreated, account)
	case errors.Is(err, apperrors.ErrAccountAlreadyExists):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.log.Error("Creating account", "uid", body.UID, "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) signin(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		s.writeError(w, http.StatusBadRequest, apperrors.ErrInvalidPayload)
		return
	}

	account, err := s.accounts.FindByUID(uid)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, account)
	case errors.Is(err, apperrors.ErrAccountNotFound):
		s.writeError(w, http.StatusNotFound, err)
	default:
		s.log.Error("Looking up account", "uid", uid, "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	accounts, err := s.accounts.List()
	if err != nil {
		s.log.Error("Listing accounts", "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("Encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
