package handlers

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
)

//go:embed static/*
var staticAssets embed.FS

// StaticHandler serves the embedded stylesheet and scripts under /static/.
type StaticHandler struct {
	fileServer http.Handler
}

// NewStaticHandler creates the static assets handler.
func NewStaticHandler() *StaticHandler {
	staticFS, err := fs.Sub(staticAssets, "static")
	if err != nil {
		panic("failed to get static subdirectory: " + err.Error())
	}
	return &StaticHandler{
		fileServer: http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))),
	}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	switch path.Ext(r.URL.Path) {
	case ".js":
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	case ".css":
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	}
	h.fileServer.ServeHTTP(w, r)
}
