package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/localhub/internal/api/middleware"
	"github.com/darmiel/localhub/internal/api/presenter"
	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
	"github.com/darmiel/localhub/internal/oauth"
)

type AuthURLResponse struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// handleAuthURL hands out the provider authorization URL. An unconfigured provider answers
// 200 with an error message so the UI can show setup instructions.
func (s *Server) handleAuthURL(m *oauth.Manager, notConfigured string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.Configured() {
			presenter.JSON(w, r, AuthURLResponse{Error: notConfigured}, http.StatusOK)
			return
		}
		principal, err := ident.RequirePrincipal(r.Header.Get(ident.UserIDHeader))
		if err != nil {
			presenter.Error(w, r, "Missing or invalid X-User-Id header", http.StatusBadRequest)
			return
		}

		url, err := m.AuthURL(r.Context(), principal)
		if err != nil {
			if errors.Is(err, core.ErrNotConfigured) {
				presenter.JSON(w, r, AuthURLResponse{Error: notConfigured}, http.StatusOK)
				return
			}
			presenter.Err(w, r, err, userMessage(err, ""))
			return
		}
		presenter.JSON(w, r, AuthURLResponse{URL: url}, http.StatusOK)
	}
}

// completeCallback finishes the code exchange and returns the UI error code, empty on success.
func (s *Server) completeCallback(m *oauth.Manager, r *http.Request) string {
	query := r.URL.Query()
	principal, err := m.Complete(r.Context(), query.Get("code"), query.Get("state"))
	if err != nil {
		log.Ctx(r.Context()).Warn().
			Err(err).
			Str("provider", m.AppID()).
			Str("user", principal.UserID).
			Msg("oauth.callback.failed")
		return oauth.CallbackCode(err)
	}
	return ""
}

func (s *Server) handleConnection(m *oauth.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := m.Connection(r.Context(), middleware.PrincipalCtx(r.Context()))
		if err != nil {
			presenter.Err(w, r, err, userMessage(err, ""))
			return
		}
		presenter.JSON(w, r, info, http.StatusOK)
	})
}

// handleDisconnect always reports success once the user is known.
func (s *Server) handleDisconnect(m *oauth.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.Disconnect(r.Context(), middleware.PrincipalCtx(r.Context())); err != nil {
			presenter.Err(w, r, err, userMessage(err, ""))
			return
		}
		presenter.JSON(w, r, OKResponse{OK: true}, http.StatusOK)
	})
}
