package rest

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marcopiovanello/trackdl/server/internal/downloaders"
	"github.com/marcopiovanello/trackdl/server/internal/process"
)

type ContainerArgs struct {
	Music          downloaders.Downloader[downloaders.MusicRequest]
	Rutube         downloaders.Downloader[downloaders.RutubeRequest]
	Runner         process.Runner
	DownloaderPath string
	ProcessorPath  string
	VersionTimeout time.Duration
	Logger         *slog.Logger
}

func Container(args *ContainerArgs) *Handler {
	var (
		s = NewService(args)
		h = NewHandler(s, args.Logger)
	)
	return h
}

func ApplyRouter(args *ContainerArgs) func(chi.Router) {
	h := Container(args)

	return func(r chi.Router) {
		r.Post("/download/", h.Download())
		r.Post("/download", h.Download())
		r.Post("/download_rutube/", h.DownloadRutube())
		r.Post("/download_rutube", h.DownloadRutube())
		r.Get("/version", h.Version())
	}
}
