package transcoder

import (
	"slices"

	"github.com/marcopiovanello/trackdl/server/internal/filters"
)

const defaultCodec = "libmp3lame"

var codecs = map[string]string{
	"mp3":  "libmp3lame",
	"aac":  "aac",
	"m4a":  "aac",
	"flac": "flac",
	"wav":  "pcm_s16le",
	"opus": "libopus",
}

var lossless = []string{"flac", "wav"}

// Codec returns the ffmpeg audio encoder for an output format.
func Codec(format string) string {
	if c, ok := codecs[format]; ok {
		return c
	}
	return defaultCodec
}

type Params struct {
	Input  string
	Output string
	Format string
	// Bitrate in kbit/s, e.g. "192".
	Quality string
	Plan    filters.Plan
}

// Args builds the ffmpeg invocation: input, trim, filter graph, codec and
// bitrate, output. Lossless formats get no bitrate.
func Args(p Params) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", p.Input,
	}

	args = append(args, p.Plan.Args()...)

	args = append(args, "-vn", "-c:a", Codec(p.Format))

	if p.Quality != "" && !slices.Contains(lossless, p.Format) {
		args = append(args, "-b:a", p.Quality+"k")
	}

	return append(args, p.Output)
}
