package downloaders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/marcopiovanello/trackdl/server/config"
	"github.com/marcopiovanello/trackdl/server/internal/events"
	"github.com/marcopiovanello/trackdl/server/internal/filename"
	"github.com/marcopiovanello/trackdl/server/internal/poll"
)

var (
	ErrFileNotReady = errors.New("downloaded file was not created or is empty")
	ErrEmptyOutput  = errors.New("processed file was not created or is empty")
)

var contentTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"wav":  "audio/wav",
	"opus": "audio/opus",
	"m4a":  "audio/mp4",
	"mp4":  "video/mp4",
}

// ContentType maps an output format to its MIME type.
func ContentType(format string) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

type Settings struct {
	DownloaderPath   string
	ProcessorPath    string
	WorkRoot         string
	PollAttempts     int
	PollInterval     time.Duration
	PreviewThreshold int64
	AlwaysProcess    bool
}

func SettingsFromConfig(c *config.Config) Settings {
	return Settings{
		DownloaderPath:   c.Paths.DownloaderPath,
		ProcessorPath:    c.Paths.ProcessorPath,
		WorkRoot:         c.WorkRoot(),
		PollAttempts:     c.Processing.PollAttempts,
		PollInterval:     c.Processing.PollInterval,
		PreviewThreshold: c.Processing.PreviewThreshold,
		AlwaysProcess:    c.Processing.AlwaysProcess,
	}
}

type Result struct {
	// Sanitized, not escaped.
	Filename    string
	ContentType string
	Content     []byte
}

func (r *Result) ContentDisposition() string {
	return filename.ContentDisposition(r.Filename)
}

// job carries the per-request identity shared by both pipelines.
type job struct {
	id     string
	source string
	url    string
	bus    events.Publisher
	logger *slog.Logger
}

func newJob(source, url string, bus events.Publisher, logger *slog.Logger) *job {
	id := uuid.NewString()
	return &job{
		id:     id,
		source: source,
		url:    url,
		bus:    bus,
		logger: logger.With(
			slog.String("id", strings.Split(id, "-")[0]),
			slog.String("source", source),
		),
	}
}

func (j *job) shortID() string { return strings.Split(j.id, "-")[0] }

func (j *job) phase(p events.Phase) {
	j.logger.Debug("job phase", slog.String("phase", string(p)))
	j.bus.Publish(events.Event{
		JobID:  j.id,
		Source: j.source,
		URL:    j.url,
		Phase:  p,
	})
}

// finish publishes the terminal event for the outcome in *err.
func (j *job) finish(err *error) {
	e := events.Event{
		JobID:  j.id,
		Source: j.source,
		URL:    j.url,
		Phase:  events.PhaseCompleted,
	}

	if *err != nil {
		e.Phase = events.PhaseFailed
		e.Error = (*err).Error()
		j.logger.Error("download failed", slog.String("err", e.Error))
	}

	j.bus.Publish(e)
}

// workspace is the per-request scratch directory.
type workspace struct {
	dir string
}

func newWorkspace(root, id string) (*workspace, error) {
	dir, err := os.MkdirTemp(root, "trackdl-"+id+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) Dir() string { return w.dir }

func (w *workspace) Path(name string) string { return filepath.Join(w.dir, name) }

// Template is the yt-dlp output template for stem: '%' is escaped so track
// names are never read as template fields.
func (w *workspace) Template(stem string) string {
	return strings.ReplaceAll(w.Path(stem), "%", "%%") + ".%(ext)s"
}

var partialSuffixes = []string{".part", ".ytdl", ".temp"}

// Find returns the first non-empty, fully written file named "<stem>.<ext>".
func (w *workspace) Find(stem string) (string, int64, bool) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return "", 0, false
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasPrefix(name, stem+".") {
			continue
		}
		if isPartial(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}

		return w.Path(name), info.Size(), true
	}

	return "", 0, false
}

func isPartial(name string) bool {
	if strings.Contains(name, ".part-Frag") {
		return true
	}
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Close removes the workspace. Failures are logged only.
func (w *workspace) Close(logger *slog.Logger) {
	if err := os.RemoveAll(w.dir); err != nil {
		logger.Warn("failed to remove workspace", slog.String("dir", w.dir), slog.Any("err", err))
		return
	}
	logger.Info("workspace removed", slog.String("dir", w.dir))
}

// waitForOutput polls the workspace until the downloader's output for stem
// shows up with a non-zero size.
func waitForOutput(ctx context.Context, w *workspace, stem string, s Settings, logger *slog.Logger) (string, error) {
	var found string

	err := poll.Until(ctx, s.PollAttempts, s.PollInterval, func(attempt int) (bool, error) {
		path, size, ok := w.Find(stem)
		if ok {
			logger.Info("file found",
				slog.String("path", path),
				slog.String("size", humanize.Bytes(uint64(size))),
			)
			found = path
			return true, nil
		}

		logger.Info("waiting for file",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", s.PollAttempts),
		)
		return false, nil
	})

	if errors.Is(err, poll.ErrExhausted) {
		return "", ErrFileNotReady
	}
	if err != nil {
		return "", err
	}

	return found, nil
}

// settle moves the downloaded file to want when the downloader picked a
// different extension than the one requested.
func settle(got, want string, logger *slog.Logger) error {
	if got == want {
		return nil
	}

	logger.Info("renaming output",
		slog.String("from", filepath.Base(got)),
		slog.String("to", filepath.Base(want)),
	)

	if err := os.Rename(got, want); err != nil {
		return fmt.Errorf("failed to rename output: %w", err)
	}
	return nil
}

func nonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
