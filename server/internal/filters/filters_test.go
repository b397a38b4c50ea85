package filters

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)) }

func TestBuildDefaultsAreEmpty(t *testing.T) {
	plan := Build(Options{Volume: 1.0}, discard())

	assert.True(t, plan.Empty())
	assert.Empty(t, plan.Args())
	assert.Equal(t, "", plan.Graph())
}

func TestBuildVolume(t *testing.T) {
	assert.Equal(t, []string{"-af", "volume=1.5"}, Build(Options{Volume: 1.5}, discard()).Args())
	assert.Equal(t, []string{"-af", "volume=2"}, Build(Options{Volume: 2.0}, discard()).Args())
	assert.Equal(t, []string{"-af", "volume=0.1"}, Build(Options{Volume: 0.1}, discard()).Args())
}

func TestBuildPresets(t *testing.T) {
	for _, name := range Presets() {
		plan := Build(Options{Volume: 1, EqPreset: name}, discard())
		assert.Len(t, plan.Filters, 1, name)
		assert.True(t, strings.HasPrefix(plan.Graph(), "equalizer="), name)
	}

	assert.True(t, Build(Options{Volume: 1, EqPreset: "loudness_war"}, discard()).Empty())
}

func TestBuildTrim(t *testing.T) {
	plan := Build(Options{Volume: 1, Trim: "0:30-1:45"}, discard())
	assert.Equal(t, []string{"-ss", "0:30", "-to", "1:45"}, plan.Args())

	plan = Build(Options{Volume: 1, Trim: "01:00-12:30"}, discard())
	assert.Equal(t, []string{"-ss", "01:00", "-to", "12:30"}, plan.Trim)
}

func TestBuildMalformedTrimIsDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	for _, trim := range []string{"abc-def", "1:00", "1:00-2:00-3:00", "100:00-1:00", "1:5-2:00"} {
		buf.Reset()
		plan := Build(Options{Volume: 1, Trim: trim}, logger)
		assert.True(t, plan.Empty(), trim)
		assert.Contains(t, buf.String(), "ignoring malformed trim", trim)
	}
}

func TestPlanArgsOrder(t *testing.T) {
	plan := Build(Options{Volume: 0.5, EqPreset: "flat", Trim: "0:10-0:20"}, discard())

	args := plan.Args()
	assert.Equal(t, []string{
		"-ss", "0:10", "-to", "0:20",
		"-af", "volume=0.5,equalizer=f=1000:width_type=o:width=2:g=0",
	}, args)
}
