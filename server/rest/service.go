package rest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/marcopiovanello/trackdl/server/internal/downloaders"
	"github.com/marcopiovanello/trackdl/server/internal/process"
)

type Service struct {
	music          downloaders.Downloader[downloaders.MusicRequest]
	rutube         downloaders.Downloader[downloaders.RutubeRequest]
	runner         process.Runner
	downloaderPath string
	processorPath  string
	versionTimeout time.Duration
}

func NewService(args *ContainerArgs) *Service {
	return &Service{
		music:          args.Music,
		rutube:         args.Rutube,
		runner:         args.Runner,
		downloaderPath: args.DownloaderPath,
		processorPath:  args.ProcessorPath,
		versionTimeout: args.VersionTimeout,
	}
}

func (s *Service) DownloadMusic(ctx context.Context, req DownloadRequest) (*downloaders.Result, error) {
	return s.music.Download(ctx, req.Music())
}

func (s *Service) DownloadRutube(ctx context.Context, req RutubeDownloadRequest) (*downloaders.Result, error) {
	return s.rutube.Download(ctx, req.Rutube())
}

type Versions struct {
	Downloader string `json:"yt-dlp"`
	Processor  string `json:"ffmpeg"`
}

var errVersionTimeout = errors.New("requesting tool versions took too long")

// GetVersion asks both tools for their version. A tool that fails to answer
// is reported with an empty string, only a timeout is an error.
func (s *Service) GetVersion(ctx context.Context) (*Versions, error) {
	ctx, cancel := context.WithTimeout(ctx, s.versionTimeout)
	defer cancel()

	v := &Versions{
		Downloader: s.firstLine(ctx, s.downloaderPath, "--version"),
		Processor:  s.firstLine(ctx, s.processorPath, "-version"),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return v, errVersionTimeout
	}

	return v, nil
}

func (s *Service) firstLine(ctx context.Context, tool string, args ...string) string {
	res, err := s.runner.Run(ctx, tool, args...)
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(res.Stdout)), "\n")
	return strings.TrimSpace(line)
}
