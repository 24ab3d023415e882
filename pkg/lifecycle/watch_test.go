// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDefinitionFile(t *testing.T) {
	assert.True(t, isDefinitionFile("User.yaml"))
	assert.True(t, isDefinitionFile("User.YML"))
	assert.True(t, isDefinitionFile("dir/User.json"))
	assert.False(t, isDefinitionFile("README.md"))
	assert.False(t, isDefinitionFile("User.yaml.swp"))
}

func TestWatcher_DebouncesWritesIntoOneBatch(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	batches := make(chan []WatchEvent, 4)
	go func() { _ = w.Run(ctx, func(ev []WatchEvent) { batches <- ev }) }()

	path := filepath.Join(dir, "User.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model_id: User"), 0o644))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("model_id: User\nversion: 1.0.1"), 0o644))

	select {
	case batch := <-batches:
		require.Len(t, batch, 1)
		assert.Equal(t, path, batch[0].Path)
	case <-time.After(1500 * time.Millisecond):
		t.Fatal("timed out waiting for debounced batch")
	}
}
