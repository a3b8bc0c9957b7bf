package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
	"github.com/darmiel/localhub/internal/metrics"
)

const (
	documentExt = ".json"
	dirMode     = 0o700
	fileMode    = 0o600
)

var _ core.DocumentStore = (*FileStore)(nil)

// FileStore keeps every document as one JSON file below {dataDir}/plugins:
//
//	plugins/{pluginId}/{key}.json           shared documents
//	plugins/{pluginId}/{userId}/{key}.json  user-scoped documents
//
// The layout is relied upon by other plugins, e.g. to list users with data for a plugin.
type FileStore struct {
	root      string
	sanitizer *ident.Sanitizer
}

func NewFileStore(dataDir string, sanitizer *ident.Sanitizer) *FileStore {
	if sanitizer == nil {
		sanitizer = ident.NewSanitizer(nil)
	}
	return &FileStore{
		root:      filepath.Join(filepath.Clean(dataDir), "plugins"),
		sanitizer: sanitizer,
	}
}

// Root returns the directory that contains all plugin directories.
func (s *FileStore) Root() string {
	return s.root
}

// scopeDir resolves the directory holding the principal's documents for a plugin.
func (s *FileStore) scopeDir(pluginID string, principal core.Principal) (string, error) {
	pid, err := s.sanitizer.PluginID(pluginID)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, pid)
	if principal.Scoped() {
		if !ident.ValidUserID(principal.UserID) {
			return "", fmt.Errorf("%w: user id", core.ErrInvalidIdentifier)
		}
		dir = filepath.Join(dir, principal.UserID)
	}
	return dir, nil
}

func (s *FileStore) ResolvePath(pluginID, key string, principal core.Principal) (string, error) {
	dir, err := s.scopeDir(pluginID, principal)
	if err != nil {
		return "", err
	}
	k, err := ident.Key(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, k+documentExt), nil
}

func (s *FileStore) Get(ctx context.Context, pluginID, key string, principal core.Principal) (core.Value, error) {
	path, err := s.ResolvePath(pluginID, key, principal)
	if err != nil {
		metrics.StoreOp("get", metrics.ResultRejected)
		return core.Value{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Value{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("store.read_failed")
		}
		metrics.StoreOp("get", metrics.ResultNotFound)
		return core.Value{}, core.ErrNotFound
	}

	// documents are advisory plugin state: unparsable content reads as absent
	value, err := core.ParseValue(data)
	if err != nil {
		log.Ctx(ctx).Warn().Str("path", path).Msg("store.malformed_document")
		metrics.StoreOp("get", metrics.ResultNotFound)
		return core.Value{}, core.ErrNotFound
	}
	// overwriting with null is how plugins delete a document
	if value.Kind() == core.KindNull {
		metrics.StoreOp("get", metrics.ResultNotFound)
		return core.Value{}, core.ErrNotFound
	}

	metrics.StoreOp("get", metrics.ResultOK)
	return value, nil
}

func (s *FileStore) Put(ctx context.Context, pluginID, key string, value core.Value, principal core.Principal) error {
	path, err := s.ResolvePath(pluginID, key, principal)
	if err != nil {
		metrics.StoreOp("put", metrics.ResultRejected)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := value.Indent()
	if err != nil {
		metrics.StoreOp("put", metrics.ResultError)
		return fmt.Errorf("%w: encoding document: %v", core.ErrWriteFailed, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		metrics.StoreOp("put", metrics.ResultError)
		return fmt.Errorf("%w: creating directory: %v", core.ErrWriteFailed, err)
	}
	if err := writeFileAtomic(path, data, fileMode); err != nil {
		metrics.StoreOp("put", metrics.ResultError)
		return fmt.Errorf("%w: %v", core.ErrWriteFailed, err)
	}

	log.Ctx(ctx).Debug().
		Str("plugin_id", pluginID).
		Str("key", key).
		Str("user_id", principal.UserID).
		Msg("store.document_written")
	metrics.StoreOp("put", metrics.ResultOK)
	return nil
}

func (s *FileStore) ListKeys(ctx context.Context, pluginID string, principal core.Principal) ([]string, error) {
	dir, err := s.scopeDir(pluginID, principal)
	if err != nil {
		metrics.StoreOp("list_keys", metrics.ResultRejected)
		return nil, err
	}

	entries, err := readDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), documentExt) {
			continue
		}
		key := strings.TrimSuffix(e.Name(), documentExt)
		if _, err := ident.Key(key); err != nil {
			continue
		}
		keys = append(keys, key)
	}
	metrics.StoreOp("list_keys", metrics.ResultOK)
	return keys, nil
}

func (s *FileStore) ListUserIDs(ctx context.Context, pluginID string) ([]string, error) {
	dir, err := s.scopeDir(pluginID, core.Principal{})
	if err != nil {
		metrics.StoreOp("list_users", metrics.ResultRejected)
		return nil, err
	}

	entries, err := readDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		// only directories whose names pass user id validation are users
		if e.IsDir() && ident.ValidUserID(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	metrics.StoreOp("list_users", metrics.ResultOK)
	return ids, nil
}

// readDir lists dir, treating a missing or unreadable directory as empty.
func readDir(ctx context.Context, dir string) ([]os.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Ctx(ctx).Warn().Err(err).Str("dir", dir).Msg("store.list_failed")
		}
		return []os.DirEntry{}, nil
	}
	return entries, nil
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
