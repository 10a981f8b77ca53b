// Package gateway terminates client connections: the HTTP auth
// endpoints and the websocket event surface.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pairchat/auth"
	"pairchat/errors"
	"pairchat/services"
)

type Server struct {
	log        *slog.Logger
	auth       services.IAuthService
	chat       services.IChatService
	users      services.IUserService
	upgrader   websocket.Upgrader
	bufferSize int
}

func NewServer(
	log *slog.Logger,
	auth services.IAuthService,
	chat services.IChatService,
	users services.IUserService,
	connectionBufferSize int,
) *Server {
	return &Server{
		log:   log,
		auth:  auth,
		chat:  chat,
		users: users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from a separately served UI.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		bufferSize: connectionBufferSize,
	}
}

// Routes builds the public mux: two credential endpoints and the
// websocket upgrade.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	return mux
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ErrMalformedFrame)
		return
	}

	token, userID, err := s.auth.Register(req.Name, req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token), UserID: userID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ErrMalformedFrame)
		return
	}

	token, userID, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenResponse{Token: string(token), UserID: userID})
}

// handleWebsocket authenticates the upgrade request, then hands the
// connection to a Session. No registry binding happens before the
// token is proven valid.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ValidateToken(tokenFromRequest(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	session := NewSession(s.log, conn, s.chat, s.users, claims.UserID, uuid.New().String(), s.bufferSize)
	go session.Run(context.Background())
}

// tokenFromRequest accepts the credential either as a ?token= query
// parameter or as an Authorization bearer header.
func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return after
	}
	return ""
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.MapToKind(err) {
	case errors.KindAuthentication:
		status = http.StatusUnauthorized
	case errors.KindValidation:
		status = http.StatusBadRequest
	case errors.KindNotFound:
		status = http.StatusNotFound
	case errors.KindStorageUnavailable:
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, errorOut{
		Kind:      errors.MapToKind(err),
		Detail:    err.Error(),
		Retryable: errors.Retryable(err),
	})
}
