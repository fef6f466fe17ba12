package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/formdesk/internal/middleware"
	"github.com/templui/formdesk/internal/response"
	"github.com/templui/formdesk/internal/service"
)

// Login bodies are tiny; anything larger is rejected before decoding.
const maxLoginBody = 4 << 10

type authHandler struct {
	authService *service.AuthService
	trustProxy  bool
}

func NewAuthHandler(authService *service.AuthService, trustProxy bool) *authHandler {
	return &authHandler{
		authService: authService,
		trustProxy:  trustProxy,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	response.Body
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}

// Login accepts a JSON body or a classic form post.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxLoginBody)
		err := r.ParseForm()
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	if req.Password == "" {
		response.Error(w, http.StatusBadRequest, "Password is required")
		return
	}

	token, expiresAt, err := h.authService.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			slog.Warn("admin login failed", "ip", middleware.ClientIP(r, h.trustProxy))
			response.Error(w, http.StatusUnauthorized, "Invalid password")
			return
		}
		writeError(w, r, err)
		return
	}

	slog.Info("admin logged in", "ip", middleware.ClientIP(r, h.trustProxy), "expires_at", expiresAt)

	response.JSON(w, http.StatusOK, loginResponse{
		Body:      response.Body{Success: true, Message: "Login successful"},
		Token:     token,
		ExpiresIn: int64(h.authService.Expiry().Seconds()),
	})
}
