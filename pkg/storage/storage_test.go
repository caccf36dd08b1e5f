package storage

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u64view/u64view/pkg/config"
)

type recordingStorage struct{ names []string }

func (r *recordingStorage) Save(name, _ string) error {
	r.names = append(r.names, name)
	return nil
}

func TestGetCloudStorage(t *testing.T) {
	s, err := GetCloudStorage(config.Storage{Provider: "none"})
	require.NoError(t, err)
	assert.IsType(t, &NoopCloudStorage{}, s)

	s, err = GetCloudStorage(config.Storage{})
	require.NoError(t, err)
	assert.IsType(t, &NoopCloudStorage{}, s)

	_, err = GetCloudStorage(config.Storage{Provider: "dropbox"})
	assert.Error(t, err)
}

func TestNoopSave(t *testing.T) {
	assert.NoError(t, NewNoopCloudStorage().Save("a", "b"))
}

func TestUploadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "20260830-cafe1234")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audio.wav"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame_0000001.png"), []byte("x"), 0o644))

	rec := &recordingStorage{}
	require.NoError(t, UploadDir(rec, dir))

	sort.Strings(rec.names)
	assert.Equal(t, []string{
		"20260830-cafe1234/audio.wav",
		"20260830-cafe1234/frame_0000001.png",
	}, rec.names)
}
