package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"study-organizer-backend/internal/request"
)

const stateCookieName = "oauth_state"

type Handler struct {
	Provider     Exchanger
	Users        UserStore
	Secret       []byte
	TTL          time.Duration
	CookieSecure bool
	Log          *log.Logger
	Now          func() time.Time
}

// GET /api/oauth/google/redirect_url
func (h *Handler) RedirectURL(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, h.cookie(stateCookieName, state, 10*time.Minute))

	request.WriteJSON(w, http.StatusOK, map[string]any{
		"redirectUrl": h.Provider.AuthCodeURL(state),
	})
}

// POST /api/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code  string `json:"code"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		request.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if body.Code == "" {
		request.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "No authorization code provided"})
		return
	}

	// a state cookie is only present when the flow started here
	if c, err := r.Cookie(stateCookieName); err == nil && c.Value != body.State {
		request.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "state mismatch"})
		return
	}
	http.SetCookie(w, h.cookie(stateCookieName, "", -1))

	prof, err := h.Provider.Exchange(r.Context(), body.Code)
	if err != nil {
		h.Log.Warn("oauth exchange failed", "err", err)
		http.Error(w, "oauth exchange failed", http.StatusUnauthorized)
		return
	}

	user, err := h.Users.Upsert(r.Context(), prof)
	if err != nil {
		h.Log.Error("user upsert failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	token, err := GenerateToken(h.Secret, user.ID, h.TTL, h.Now())
	if err != nil {
		h.Log.Error("sign session token", "err", err)
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.cookie(SessionCookieName, token, h.TTL))
	h.Log.Info("session created", "user", user.ID)

	request.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GET /api/users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.Users.Get(r.Context(), uid)
	if errors.Is(err, ErrUserNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.Error("get user failed", "user", uid, "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	request.WriteJSON(w, http.StatusOK, user)
}

// cookie builds a host-wide httpOnly cookie. maxAge < 0 deletes it.
func (h *Handler) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	// cross-site SPA needs None, which browsers only accept on Secure cookies
	if h.CookieSecure {
		c.SameSite = http.SameSiteNoneMode
	}
	if maxAge < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(maxAge.Seconds())
	}
	return c
}
