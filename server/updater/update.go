package updater

import (
	"context"
	"log/slog"
	"strings"

	"github.com/marcopiovanello/trackdl/server/internal/process"
)

// UpdateExecutable uses the builtin self update of yt-dlp.
func UpdateExecutable(ctx context.Context, runner process.Runner, downloaderPath string, logger *slog.Logger) error {
	res, err := runner.Run(ctx, downloaderPath, "-U")
	if err != nil {
		return err
	}

	if out := strings.TrimSpace(string(res.Stdout)); out != "" {
		logger.Info("downloader update", slog.String("output", out))
	}

	return nil
}
