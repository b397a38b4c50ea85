package updater

import (
	"context"
	"testing"

	"github.com/marcopiovanello/trackdl/server/internal/process/processtest"
	"github.com/marcopiovanello/trackdl/server/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateExecutable(t *testing.T) {
	fake := processtest.New().Handle("yt-dlp", processtest.Print("yt-dlp is up to date (stable@2024.08.06)\n"))

	require.NoError(t, UpdateExecutable(context.Background(), fake, "/usr/local/bin/yt-dlp", logging.Discard()))

	calls := fake.CallsTo("yt-dlp")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-U"}, calls[0].Args)
}

func TestUpdateExecutableFailure(t *testing.T) {
	fake := processtest.New().Handle("yt-dlp", processtest.Fail("ERROR: You installed yt-dlp with pip"))

	err := UpdateExecutable(context.Background(), fake, "yt-dlp", logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "installed yt-dlp with pip")
}
