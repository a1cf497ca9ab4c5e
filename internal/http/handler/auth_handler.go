package handler

import (
	"net/http"

	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

// AuthHandler serves the caller's session
type AuthHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

func NewAuthHandler(userService *service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

// Session godoc
// @Summary Get current session
// @Description Returns the caller's stored role, effective role and whether the bootstrap grant applies
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.SessionDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, err := h.userService.Session(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// RecordLogin godoc
// @Summary Record sign-in
// @Description Creates the caller's user record as Standard on first sign-in, then updates lastLogin
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.User
// @Failure 401 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Security BearerAuth
// @Router /session [post]
func (h *AuthHandler) RecordLogin(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.RecordLogin(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
