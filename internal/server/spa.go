package server

import (
	"io/fs"
	"net/http"
	"strings"
)

// spaFileServer serves static files from assets, falling back to index.html
// for any path that is not a real file so client-side routes resolve.
func spaFileServer(assets fs.FS) http.Handler {
	fileServer := http.FileServerFS(assets)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" {
			name = "index.html"
		}

		if info, err := fs.Stat(assets, name); err != nil || info.IsDir() {
			r.URL.Path = "/"
		}

		fileServer.ServeHTTP(w, r)
	})
}
