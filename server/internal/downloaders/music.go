package downloaders

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/marcopiovanello/trackdl/server/internal/cookies"
	"github.com/marcopiovanello/trackdl/server/internal/events"
	"github.com/marcopiovanello/trackdl/server/internal/filename"
	"github.com/marcopiovanello/trackdl/server/internal/filters"
	"github.com/marcopiovanello/trackdl/server/internal/metadata"
	"github.com/marcopiovanello/trackdl/server/internal/process"
	"github.com/marcopiovanello/trackdl/server/internal/transcoder"
)

const SourceYandex = "yandex-music"

// Formats yt-dlp extracts into a different container than the extension
// suggests ("aac" lands in an mp4 box), so they always go through ffmpeg.
var reencode = map[string]bool{
	"aac": true,
}

type MusicRequest struct {
	URL      string
	Cookies  string
	Quality  string
	Format   string
	EqPreset string
	Volume   float64
	Trim     string
}

// Music downloads single tracks from the music site, optionally running the
// result through the audio processor.
type Music struct {
	runner   process.Runner
	prober   *metadata.Prober
	bus      events.Publisher
	settings Settings
	logger   *slog.Logger
}

func NewMusic(runner process.Runner, prober *metadata.Prober, bus events.Publisher, s Settings, logger *slog.Logger) *Music {
	return &Music{
		runner:   runner,
		prober:   prober,
		bus:      bus,
		settings: s,
		logger:   logger,
	}
}

func (m *Music) Download(ctx context.Context, req MusicRequest) (res *Result, err error) {
	j := newJob(SourceYandex, req.URL, m.bus, m.logger)
	defer j.finish(&err)

	ws, err := newWorkspace(m.settings.WorkRoot, j.shortID())
	if err != nil {
		return nil, err
	}
	defer ws.Close(j.logger)

	j.phase(events.PhaseProbing)

	track, ok := m.prober.Probe(ctx, req.URL, req.Cookies)
	if !ok {
		track = metadata.Unknown
	}

	name := filename.Sanitize(track.Name() + "." + req.Format)
	stem := strings.TrimSuffix(name, "."+req.Format)

	plan := filters.Build(filters.Options{
		Volume:   req.Volume,
		EqPreset: req.EqPreset,
		Trim:     req.Trim,
	}, j.logger)

	postprocess := m.settings.AlwaysProcess || !plan.Empty() || reencode[req.Format]

	rawStem := stem
	args := []string{"-x", "--no-playlist"}

	if postprocess {
		// the processor re-encodes anyway, keep the best source stream
		rawStem = "original_" + stem
		args = append(args, "--audio-format", "best", "--audio-quality", "0")
	} else {
		args = append(args, "--audio-format", req.Format, "--audio-quality", req.Quality+"K")
	}

	args = append(args, "-o", ws.Template(rawStem))

	jar, err := cookies.WriteJar(ws.Dir(), req.Cookies, cookies.YandexDomain)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := jar.Release(); err != nil {
			j.logger.Warn("failed to remove cookie jar", slog.Any("err", err))
		}
	}()
	if jar != nil {
		args = append(args, "--cookies", jar.Path())
	}

	args = append(args, req.URL)

	j.logger.Info("starting download", slog.String("filename", name), slog.Bool("postprocess", postprocess))
	j.phase(events.PhaseDownloading)

	if _, err := m.runner.Run(ctx, m.settings.DownloaderPath, args...); err != nil {
		return nil, err
	}

	j.phase(events.PhasePolling)

	raw, err := waitForOutput(ctx, ws, rawStem, m.settings, j.logger)
	if err != nil {
		return nil, err
	}

	final := ws.Path(name)

	if postprocess {
		j.phase(events.PhaseProcessing)

		_, err := m.runner.Run(ctx, m.settings.ProcessorPath, transcoder.Args(transcoder.Params{
			Input:   raw,
			Output:  final,
			Format:  req.Format,
			Quality: req.Quality,
			Plan:    plan,
		})...)
		if err != nil {
			return nil, err
		}

		if !nonEmpty(final) {
			return nil, ErrEmptyOutput
		}
	} else if err := settle(raw, final, j.logger); err != nil {
		return nil, err
	}

	j.phase(events.PhaseReading)

	content, err := os.ReadFile(final)
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	m.checkPreview(j.logger, len(content), jar != nil)

	return &Result{
		Filename:    name,
		ContentType: ContentType(req.Format),
		Content:     content,
	}, nil
}

// checkPreview warns when the result is small enough to be the site's
// 30 second preview instead of the full track.
func (m *Music) checkPreview(logger *slog.Logger, size int, withCookies bool) {
	if int64(size) >= m.settings.PreviewThreshold {
		return
	}

	logger.Warn("small file size detected, may be a preview version",
		slog.String("size", humanize.Bytes(uint64(size))),
		slog.String("threshold", humanize.Bytes(uint64(m.settings.PreviewThreshold))),
	)

	if withCookies {
		logger.Warn("cookies provided but still got a small file, check cookies validity")
	}
}
