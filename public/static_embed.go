package public

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed static/*
var static embed.FS

// assets is static/ with the directory prefix removed.
var assets = func() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic("public: " + err.Error())
	}
	return sub
}()

// Assets exposes the console stylesheet and script.
func Assets() fs.FS {
	return assets
}

// Handler serves the assets under prefix. Directory paths answer 404 rather than a listing.
func Handler(prefix string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.FS(assets)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		files.ServeHTTP(w, r)
	})
}
