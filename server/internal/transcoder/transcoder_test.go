package transcoder

import (
	"strings"
	"testing"

	"github.com/marcopiovanello/trackdl/server/internal/filters"
)

func TestCodec(t *testing.T) {
	tests := map[string]string{
		"mp3":  "libmp3lame",
		"aac":  "aac",
		"m4a":  "aac",
		"flac": "flac",
		"wav":  "pcm_s16le",
		"opus": "libopus",
		"ogg":  "libmp3lame",
		"":     "libmp3lame",
	}

	for format, want := range tests {
		if got := Codec(format); got != want {
			t.Errorf("Codec(%q) = %s, expected %s", format, got, want)
		}
	}
}

func TestArgs(t *testing.T) {
	args := Args(Params{
		Input:   "/tmp/job/original_A - B.webm",
		Output:  "/tmp/job/A - B.mp3",
		Format:  "mp3",
		Quality: "320",
		Plan: filters.Plan{
			Trim:    []string{"-ss", "0:10", "-to", "1:00"},
			Filters: []string{"volume=1.5"},
		},
	})

	expected := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", "/tmp/job/original_A - B.webm",
		"-ss", "0:10", "-to", "1:00",
		"-af", "volume=1.5",
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", "320k",
		"/tmp/job/A - B.mp3",
	}

	if len(args) != len(expected) {
		t.Fatalf("Expected %d args, got %d: %v", len(expected), len(args), args)
	}

	for i := range expected {
		if args[i] != expected[i] {
			t.Errorf("Arg %d: expected %s, got %s", i, expected[i], args[i])
		}
	}
}

func TestArgsLosslessSkipsBitrate(t *testing.T) {
	joined := strings.Join(Args(Params{Input: "in", Output: "out.flac", Format: "flac", Quality: "320"}), " ")

	if strings.Contains(joined, "-b:a") {
		t.Fatalf("lossless output should not set a bitrate: %s", joined)
	}
	if !strings.Contains(joined, "-c:a flac") {
		t.Fatalf("missing codec: %s", joined)
	}
	if strings.Contains(joined, "-af") {
		t.Fatalf("empty plan should not add a filter graph: %s", joined)
	}
}
