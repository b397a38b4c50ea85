package downloaders

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/marcopiovanello/trackdl/server/internal/events"
	"github.com/marcopiovanello/trackdl/server/internal/process"
)

const SourceRutube = "rutube"

type tier struct {
	height  int // 0 means no limit
	bitrate string
}

var tiers = map[string]tier{
	"low":    {height: 360, bitrate: "128"},
	"medium": {height: 480, bitrate: "192"},
	"high":   {height: 720, bitrate: "256"},
	"best":   {height: 0, bitrate: "320"},
}

// Tiers lists the accepted quality names.
func Tiers() []string { return []string{"low", "medium", "high", "best"} }

type RutubeRequest struct {
	URL     string
	Format  string
	Quality string
}

// Rutube downloads videos (or their audio track) from the video site.
// There is no metadata probing and no post-processing.
type Rutube struct {
	runner   process.Runner
	bus      events.Publisher
	settings Settings
	logger   *slog.Logger
}

func NewRutube(runner process.Runner, bus events.Publisher, s Settings, logger *slog.Logger) *Rutube {
	return &Rutube{
		runner:   runner,
		bus:      bus,
		settings: s,
		logger:   logger,
	}
}

func (r *Rutube) Download(ctx context.Context, req RutubeRequest) (res *Result, err error) {
	j := newJob(SourceRutube, req.URL, r.bus, r.logger)
	defer j.finish(&err)

	ws, err := newWorkspace(r.settings.WorkRoot, j.shortID())
	if err != nil {
		return nil, err
	}
	defer ws.Close(j.logger)

	stem := "rutube_" + j.shortID()
	name := stem + "." + req.Format

	args := append([]string{"--no-playlist"}, formatArgs(req.Format, req.Quality)...)
	args = append(args, "-o", ws.Template(stem), req.URL)

	j.logger.Info("starting download", slog.String("filename", name))
	j.phase(events.PhaseDownloading)

	if _, err := r.runner.Run(ctx, r.settings.DownloaderPath, args...); err != nil {
		return nil, err
	}

	j.phase(events.PhasePolling)

	raw, err := waitForOutput(ctx, ws, stem, r.settings, j.logger)
	if err != nil {
		return nil, err
	}

	final := ws.Path(name)
	if err := settle(raw, final, j.logger); err != nil {
		return nil, err
	}

	j.phase(events.PhaseReading)

	content, err := os.ReadFile(final)
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	return &Result{
		Filename:    name,
		ContentType: ContentType(req.Format),
		Content:     content,
	}, nil
}

func formatArgs(format, quality string) []string {
	t, ok := tiers[quality]
	if !ok {
		t = tiers["best"]
	}

	if format == "mp3" {
		return []string{"-x", "--audio-format", "mp3", "--audio-quality", t.bitrate + "K"}
	}

	selector := "bestvideo+bestaudio/best"
	if t.height > 0 {
		selector = fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", t.height, t.height)
	}

	return []string{"-f", selector, "--merge-output-format", "mp4"}
}
