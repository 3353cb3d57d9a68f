package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// staticHandler serves files from the configured static directory at the
// site root, with index.html as the directory default and an optional
// 404.html page for unmatched paths.
type staticHandler struct {
	dir string
}

// newStaticHandler returns nil when dir does not exist, in which case static
// serving is skipped entirely and unmatched paths get a plain 404.
func newStaticHandler(dir string) *staticHandler {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	return &staticHandler{dir: dir}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Clean with a leading slash so ".." segments cannot escape the root.
	name := path.Clean("/" + r.URL.Path)
	full := filepath.Join(h.dir, filepath.FromSlash(name))

	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
		info, err = os.Stat(full)
	}
	if err != nil || info.IsDir() {
		h.serveNotFound(w, r)
		return
	}

	http.ServeFile(w, r, full)
}

// serveNotFound renders the directory's 404.html when present, otherwise a
// plain 404.
func (h *staticHandler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	page := filepath.Join(h.dir, "404.html")
	body, err := os.ReadFile(page)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(body)
}
