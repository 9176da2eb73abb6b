package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Edraak/authgate"
)

func lockFilterFromQuery(r *http.Request) authgate.LockFilter {
	q := r.URL.Query()
	return authgate.LockFilter{
		IP:       strings.TrimSpace(q.Get("ip")),
		Username: strings.TrimSpace(q.Get("user")),
		Page:     parseIntDefault(q.Get("page"), 1),
		PerPage:  parseIntDefault(q.Get("per_page"), 0),
	}
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (h *Handler) listIPLocks(w http.ResponseWriter, r *http.Request) {
	filter := lockFilterFromQuery(r)
	locks, err := h.engine.ListIPLocks(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, "list_ip_locks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": locks,
		"page":    filter.Page,
	})
}

func (h *Handler) resetIPLock(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if ip == "" {
		writeMessage(w, http.StatusBadRequest, "IP address required")
		return
	}
	if err := h.engine.ResetIPLock(r.Context(), ip); err != nil {
		h.internalError(w, r, "reset_ip_lock", err)
		return
	}
	writeMessage(w, http.StatusOK, "Rate limit reset")
}

func (h *Handler) listAccountLocks(w http.ResponseWriter, r *http.Request) {
	filter := lockFilterFromQuery(r)
	locks, err := h.engine.ListAccountLocks(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, "list_account_locks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": locks,
		"page":    filter.Page,
	})
}

func (h *Handler) clearAccountLock(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		writeMessage(w, http.StatusBadRequest, "Username required")
		return
	}
	if err := h.engine.ClearAccountLock(r.Context(), username); err != nil {
		h.internalError(w, r, "clear_account_lock", err)
		return
	}
	writeMessage(w, http.StatusOK, "Account lock cleared")
}
