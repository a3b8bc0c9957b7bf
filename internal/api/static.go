package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/darmiel/localhub/internal/api/presenter"
)

// spaHandler serves the built frontend. Paths that are not files fall back to index.html so
// client-side routes survive a reload; unknown API paths still get a JSON 404.
func (s *Server) spaHandler() http.Handler {
	root := http.Dir(s.publicDir)
	files := http.FileServer(root)
	index := filepath.Join(s.publicDir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			presenter.Error(w, r, "Not found", http.StatusNotFound)
			return
		}

		f, err := root.Open(path.Clean("/" + r.URL.Path))
		if err == nil {
			stat, statErr := f.Stat()
			_ = f.Close()
			if statErr == nil && !stat.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		} else if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, os.ErrPermission) {
			presenter.Err(w, r, err, "")
			return
		}
		http.ServeFile(w, r, index)
	})
}
