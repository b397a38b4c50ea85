package downloaders

import "context"

// Downloader is one source site pipeline. Every call owns its workspace and
// leaves nothing behind on disk, whatever the outcome.
type Downloader[R any] interface {
	Download(ctx context.Context, req R) (*Result, error)
}

var (
	_ Downloader[MusicRequest]  = (*Music)(nil)
	_ Downloader[RutubeRequest] = (*Rutube)(nil)
)
