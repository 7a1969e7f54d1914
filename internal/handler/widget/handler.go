// Package widget serves the browser build of the chat widget.
package widget

import (
	"embed"
	"io/fs"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed assets
var assets embed.FS

// Handler serves the chat page, its static assets and the embeddable launcher script.
type Handler struct {
	static fs.FS
}

// New returns a handler backed by the embedded assets.
func New() *Handler {
	static, err := fs.Sub(assets, "assets")
	if err != nil {
		// Only reachable if the embed directive and directory name drift apart.
		panic(err)
	}
	return &Handler{static: static}
}

// RegisterRoutes mounts the page, /static/* and /widget.js.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.serveFile("index.html", "text/html; charset=utf-8"))
	r.Get("/widget.js", h.serveFile("widget.js", "application/javascript"))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(h.static))))
}

func (h *Handler) serveFile(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(h.static, name)
		if err != nil {
			log.Printf("[widget] missing asset %s: %v", name, err)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	}
}
