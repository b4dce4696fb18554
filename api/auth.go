package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aosc-dev/pakreq/internal/apperror"
	"github.com/aosc-dev/pakreq/internal/models"
)

const sessionCookie = "pakreq_session"

// Sessions issues and verifies the signed session cookie carried by
// the web UI. The token only names the user id; every request
// re-reads the user from the store.
type Sessions struct {
	secret   string
	duration time.Duration
}

func NewSessions(secret string, duration time.Duration) *Sessions {
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	return &Sessions{secret: secret, duration: duration}
}

func (s *Sessions) issue(w http.ResponseWriter, user *models.User) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatInt(user.ID, 10),
		"exp": time.Now().Add(s.duration).Unix(),
	})
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(s.duration),
	})
	return nil
}

func (s *Sessions) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// userID extracts the authenticated user id from the request cookie.
func (s *Sessions) userID(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return 0, apperror.Unauthorized("no session")
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return 0, apperror.Unauthorized("invalid session")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return 0, apperror.Unauthorized("invalid session subject")
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Unauthorized("invalid session subject")
	}

	return id, nil
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", map[string]any{"Error": ""})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.svc.AuthenticateWeb(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			w.WriteHeader(http.StatusUnauthorized)
			h.render(w, "login.html", map[string]any{"Error": "Incorrect username or password."})
			return
		}
		logger.Error("web login", "username", username, "err", err)
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	if err := h.sessions.issue(w, user); err != nil {
		logger.Error("issue session", "user", user.ID, "err", err)
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) account(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessions.userID(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.svc.User(r.Context(), id)
	if err != nil {
		// A deleted user means a stale session; anything else is a
		// storage fault and must not log the visitor out.
		if errors.Is(err, apperror.ErrNotFound) {
			h.sessions.clear(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		logger.Error("load account user", "user", id, "err", err)
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	mine, err := h.svc.RequestsByUser(r.Context(), user.ID)
	if err != nil {
		logger.Error("list user requests", "user", user.ID, "err", err)
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	h.render(w, "account.html", map[string]any{
		"User":     user,
		"Requests": mine,
	})
}
