package downloaders

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcopiovanello/trackdl/server/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceFind(t *testing.T) {
	ws, err := newWorkspace(t.TempDir(), "abc")
	require.NoError(t, err)
	defer ws.Close(logging.Discard())

	write := func(name string, size int) {
		require.NoError(t, os.WriteFile(ws.Path(name), make([]byte, size), 0o644))
	}

	_, _, ok := ws.Find("Song")
	assert.False(t, ok)

	write("Song.webm.part", 100)
	write("Song.mp3", 0)
	write("Song - Remix.mp3", 100)
	_, _, ok = ws.Find("Song")
	assert.False(t, ok, "partial, empty and other stems are ignored")

	write("Song.m4a", 42)
	path, size, ok := ws.Find("Song")
	require.True(t, ok)
	assert.Equal(t, "Song.m4a", filepath.Base(path))
	assert.Equal(t, int64(42), size)
}

func TestWorkspaceTemplateEscapesPercent(t *testing.T) {
	ws := &workspace{dir: "/tmp/job"}
	assert.Equal(t, "/tmp/job/50%% off.%(ext)s", ws.Template("50% off"))
}

func TestWorkspaceCloseRemovesEverything(t *testing.T) {
	root := t.TempDir()
	ws, err := newWorkspace(root, "abc")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(ws.Path("a.mp3"), []byte("x"), 0o644))
	ws.Close(logging.Discard())

	assert.NoDirExists(t, ws.Dir())
}

func TestWaitForOutputPicksUpLateFile(t *testing.T) {
	ws, err := newWorkspace(t.TempDir(), "abc")
	require.NoError(t, err)
	defer ws.Close(logging.Discard())

	s := Settings{PollAttempts: 10, PollInterval: 20 * time.Millisecond}

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(ws.Path("late.mp3"), []byte("data"), 0o644)
	}()

	path, err := waitForOutput(context.Background(), ws, "late", s, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "late.mp3", filepath.Base(path))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", ContentType("mp3"))
	assert.Equal(t, "audio/mp4", ContentType("m4a"))
	assert.Equal(t, "video/mp4", ContentType("mp4"))
	assert.Equal(t, "application/octet-stream", ContentType("xyz"))
}
