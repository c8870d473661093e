package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NotFoundPage is served with a 404 status for missing paths.
const NotFoundPage = "404.html"

// fileHandler serves the output directory. Extensionless paths fall back to
// the matching .html file.
func fileHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if exists(root, name) {
			files.ServeHTTP(w, r)
			return
		}
		if path.Ext(name) == "" && exists(root, name+".html") {
			r2 := r.Clone(r.Context())
			r2.URL.Path = name + ".html"
			files.ServeHTTP(w, r2)
			return
		}
		serveNotFound(w, r, root)
	})
}

func exists(root, name string) bool {
	if strings.Contains(name, "\x00") {
		return false
	}
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(name)))
	return err == nil
}

func serveNotFound(w http.ResponseWriter, r *http.Request, root string) {
	data, err := os.ReadFile(filepath.Join(root, NotFoundPage))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}
