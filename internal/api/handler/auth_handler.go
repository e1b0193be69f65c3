package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/api/middleware"
	"github.com/BytePitApp/bytepit-api/internal/app/service"
	"github.com/BytePitApp/bytepit-api/internal/common"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService  *service.AuthService
	cookieSecure bool
}

func NewAuthHandler(authService *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authService: authService, cookieSecure: cookieSecure}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/confirm-registration/{token}", h.confirmRegistration)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
}

// register accepts a multipart form so a profile image can travel with the
// account data. Plain JSON bodies are accepted too.
func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
	} else {
		if err := parseMultipart(r); err != nil {
			respondError(w, r, err)
			return
		}
		req = service.RegisterRequest{
			Username: r.FormValue("username"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
			Name:     r.FormValue("name"),
			Surname:  r.FormValue("surname"),
			Role:     r.FormValue("role"),
		}
		image, err := formFile(r, "image")
		if err != nil {
			respondError(w, r, err)
			return
		}
		req.Image = image
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) confirmRegistration(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.ConfirmEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "email confirmed"})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    resp.AccessToken,
		Path:     "/",
		MaxAge:   int(h.authService.TokenTTL() / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
