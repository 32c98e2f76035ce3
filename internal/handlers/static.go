package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticHandler serves the frontend from a directory. Paths that do not name a
// file fall back to the index page so client-side routes load the app.
type StaticHandler struct {
	root      string
	indexFile string
	files     http.Handler
}

// NewStaticHandler creates a static file handler rooted at dir
func NewStaticHandler(dir, indexFile string) *StaticHandler {
	return &StaticHandler{
		root:      dir,
		indexFile: indexFile,
		files:     http.FileServer(http.Dir(dir)),
	}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: MsgNotFound})
		return
	}

	name := path.Clean("/" + r.URL.Path)
	if name != "/" {
		info, err := os.Stat(filepath.Join(h.root, filepath.FromSlash(name)))
		if err == nil && !info.IsDir() {
			h.files.ServeHTTP(w, r)
			return
		}
	}

	http.ServeFile(w, r, filepath.Join(h.root, h.indexFile))
}
