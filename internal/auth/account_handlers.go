package auth

import (
	"net/http"

	"study-organizer-backend/internal/request"
)

// GET /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	// stateless token => nothing to revoke server side, the cookie just goes away
	http.SetCookie(w, h.cookie(SessionCookieName, "", -1))
	request.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// DELETE /api/users/me
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.Users.Delete(r.Context(), uid); err != nil {
		h.Log.Error("delete account failed", "user", uid, "err", err)
		http.Error(w, "delete account failed", http.StatusInternalServerError)
		return
	}

	h.Log.Info("account deleted", "user", uid)
	http.SetCookie(w, h.cookie(SessionCookieName, "", -1))
	request.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
