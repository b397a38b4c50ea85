package metadata

import (
	"context"
	"log/slog"
	"strings"

	"github.com/marcopiovanello/trackdl/server/internal/cookies"
	"github.com/marcopiovanello/trackdl/server/internal/process"
)

const (
	separator     = "|||"
	printTemplate = "%(artist)s" + separator + "%(title)s"
)

type Track struct {
	Artist string
	Title  string
}

// Unknown is used whenever probing yields nothing usable.
var Unknown = Track{Artist: "Unknown", Title: "Unknown"}

// Name is the "<artist> - <title>" stem of the output file.
func (t Track) Name() string { return t.Artist + " - " + t.Title }

type Prober struct {
	runner     process.Runner
	downloader string
	jarDir     string
	logger     *slog.Logger
}

// NewProber returns a prober invoking the downloader at path. Cookie jars
// for probes are written to jarDir.
func NewProber(runner process.Runner, path, jarDir string, logger *slog.Logger) *Prober {
	return &Prober{
		runner:     runner,
		downloader: path,
		jarDir:     jarDir,
		logger:     logger.With(slog.String("component", "metadata")),
	}
}

// Probe asks the downloader for the artist and title of url without
// downloading anything. The bool is false when the tool failed or printed
// fewer than two fields; failures are logged, never returned.
func (p *Prober) Probe(ctx context.Context, url, rawCookies string) (Track, bool) {
	args := []string{
		"--quiet",
		"--no-warnings",
		"--no-playlist",
		"--skip-download",
		"--print", printTemplate,
	}

	jar, err := cookies.WriteJar(p.jarDir, rawCookies, cookies.YandexDomain)
	if err != nil {
		p.logger.Error("failed to retrieve metadata", slog.Any("err", err))
		return Track{}, false
	}
	defer func() {
		if err := jar.Release(); err != nil {
			p.logger.Warn("failed to remove cookie jar", slog.Any("err", err))
		}
	}()
	if jar != nil {
		args = append(args, "--cookies", jar.Path())
	}

	args = append(args, url)

	p.logger.Info("retrieving metadata", slog.String("url", url))

	res, err := p.runner.Run(ctx, p.downloader, args...)
	if err != nil {
		p.logger.Error("failed to retrieve metadata", slog.String("url", url), slog.Any("err", err))
		return Track{}, false
	}

	track, ok := Parse(string(res.Stdout))
	if !ok {
		p.logger.Warn("unexpected metadata output",
			slog.String("url", url),
			slog.String("stdout", string(res.Stdout)),
		)
	}

	return track, ok
}

// Parse splits a single "artist|||title" line. A title that repeats the
// artist as "<artist> - " prefix is trimmed.
func Parse(out string) (Track, bool) {
	parts := strings.Split(strings.TrimSpace(out), separator)
	if len(parts) < 2 {
		return Track{}, false
	}

	track := Track{
		Artist: parts[0],
		Title:  parts[1],
	}

	track.Title = strings.TrimPrefix(track.Title, track.Artist+" - ")

	return track, true
}
