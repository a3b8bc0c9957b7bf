package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/localhub/internal/api/presenter"
	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
)

type ListKeysResponse struct {
	Keys []string `json:"keys"`
}

// handleListKeys lists the document keys of a plugin, scoped to X-User-Id when present.
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	principal, err := ident.Principal(r.Header.Get(ident.UserIDHeader))
	if err != nil {
		presenter.Error(w, r, "Invalid X-User-Id header", http.StatusBadRequest)
		return
	}

	keys, err := s.docs.ListKeys(r.Context(), r.PathValue("pluginId"), principal)
	if err != nil {
		if errors.Is(err, core.ErrInvalidIdentifier) {
			presenter.Error(w, r, "Invalid pluginId", http.StatusBadRequest)
			return
		}
		presenter.Err(w, r, err, "")
		return
	}
	presenter.JSON(w, r, ListKeysResponse{Keys: keys}, http.StatusOK)
}

// resolveDocument validates the identity of the addressed document.
func (s *Server) resolveDocument(r *http.Request) (string, string, core.Principal, bool) {
	pluginID, key := r.PathValue("pluginId"), r.PathValue("key")
	principal, err := ident.Principal(r.Header.Get(ident.UserIDHeader))
	if err != nil {
		return "", "", core.Principal{}, false
	}
	if _, err := s.docs.ResolvePath(pluginID, key, principal); err != nil {
		return "", "", core.Principal{}, false
	}
	return pluginID, key, principal, true
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	pluginID, key, principal, ok := s.resolveDocument(r)
	if !ok {
		presenter.Error(w, r, "Invalid pluginId or key", http.StatusBadRequest)
		return
	}

	value, err := s.docs.Get(r.Context(), pluginID, key, principal)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			presenter.Error(w, r, "Not found", http.StatusNotFound)
			return
		}
		presenter.Err(w, r, err, "")
		return
	}
	presenter.JSON(w, r, value, http.StatusOK)
}

// handlePutDocument replaces a document with the request body and echoes it back.
func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	pluginID, key, principal, ok := s.resolveDocument(r)
	if !ok {
		presenter.Error(w, r, "Invalid pluginId or key", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		presenter.Err(w, r, err, "Request body too large")
		return
	}
	value, err := core.ParseValue(body)
	if err != nil {
		presenter.Error(w, r, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := s.docs.Put(r.Context(), pluginID, key, value, principal); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("plugin", pluginID).Str("key", key).Msg("store.put.failed")
		presenter.Error(w, r, "Write failed", http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, value, http.StatusOK)
}
