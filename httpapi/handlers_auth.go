package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/Edraak/authgate"
)

// User-visible exchange messages. Clients match on these strings.
const (
	msgMissingToken   = "Missing Refresh-token"
	msgInvalidToken   = "Invalid Refresh-token"
	msgWrongTokenType = "Wrong token type used"
	msgExpiredToken   = "Expired Refresh-token used"
	msgStaleLogout    = "Logging out because of an old Refresh-token"
	msgStaleAnonymous = "Old Refresh-token used"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	res, err := h.engine.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  res.AccessToken,
			"refresh_token": res.RefreshToken,
		})
	case errors.Is(err, authgate.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, authgate.ErrRateLimited):
		writeMessage(w, http.StatusTooManyRequests, "Too many failed login attempts, try again later")
	default:
		h.internalError(w, r, "login", err)
	}
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Missing access token")
		return
	}
	_, sessionKey, err := h.engine.VerifyAccess(raw)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid access token")
		return
	}
	if err := h.engine.Logout(r.Context(), sessionKey); err != nil {
		h.internalError(w, r, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out")
}

// accessToken exchanges a signed refresh envelope for a short-lived access
// token. The bearer token is optional; when present and valid it marks the
// caller as authenticated, which changes the stale-session behavior.
func (h *Handler) accessToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeMessage(w, http.StatusBadRequest, msgMissingToken)
		return
	}
	outer := r.PostFormValue("request_access_token")

	callerSession := ""
	if raw, err := bearerTokenFromHeader(r.Header.Get("Authorization")); err == nil {
		if _, key, err := h.engine.VerifyAccess(raw); err == nil {
			callerSession = key
		}
	}

	access, err := h.engine.ExchangeAccessToken(r.Context(), outer, callerSession)
	switch {
	case err == nil:
		writeToken(w, access)
	case errors.Is(err, authgate.ErrTokenMissing):
		writeMessage(w, http.StatusBadRequest, msgMissingToken)
	case errors.Is(err, authgate.ErrTokenExpired):
		writeMessage(w, http.StatusBadRequest, msgExpiredToken)
	case errors.Is(err, authgate.ErrTokenWrongType):
		writeMessage(w, http.StatusBadRequest, msgWrongTokenType)
	case errors.Is(err, authgate.ErrStaleSession):
		if callerSession != "" {
			writeMessage(w, http.StatusBadRequest, msgStaleLogout)
		} else {
			writeMessage(w, http.StatusBadRequest, msgStaleAnonymous)
		}
	case errors.Is(err, authgate.ErrTokenSignature):
		writeMessage(w, http.StatusBadRequest, msgInvalidToken)
	default:
		h.internalError(w, r, "access_token", err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	sentry.CaptureException(err)
	h.logger.Error("operation failed",
		"operation", operation,
		"request_id", requestIDFromContext(r.Context()),
		"error", err,
	)
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}
