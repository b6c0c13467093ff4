package downloads

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want track.DownloadProgress
		ok   bool
	}{
		{
			name: "full progress line",
			line: "[download]  45.2% of 3.42MiB at 512.00KiB/s ETA 00:05",
			want: track.DownloadProgress{Progress: 0.452, FileSize: "3.42MiB", Speed: "512.00KiB/s", ETA: "00:05"},
			ok:   true,
		},
		{
			name: "completed line",
			line: "[download] 100% of 3.42MiB in 00:07",
			want: track.DownloadProgress{Progress: 1.0, FileSize: "3.42MiB"},
			ok:   true,
		},
		{
			name: "destination line ignored",
			line: "[download] Destination: song.m4a",
			ok:   false,
		},
		{
			name: "unrelated output ignored",
			line: "[ExtractAudio] Destination: song.m4a",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseProgressLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.want.Progress, got.Progress, 1e-9)
				assert.Equal(t, tt.want.Speed, got.Speed)
				assert.Equal(t, tt.want.ETA, got.ETA)
				assert.Equal(t, tt.want.FileSize, got.FileSize)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "bestaudio[abr<=192]/bestaudio", formatString("192"))
	assert.Equal(t, "bestaudio[ext=m4a]/bestaudio", formatString("best"))
	assert.Equal(t, "bestaudio[ext=m4a]/bestaudio", formatString(""))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Song Title - Remix 2.0", sanitizeFilename("Song/ Title? - Remix* 2.0"))
	assert.Equal(t, "日本語タイトル", sanitizeFilename("日本語タイトル!"))
}

func TestDownloadRejectsDuplicates(t *testing.T) {
	m, err := NewManager("yt-dlp", t.TempDir(), "best")
	require.NoError(t, err)

	tr := track.Track{ID: "vid1", Title: "song"}

	m.mu.Lock()
	m.active["vid1"] = &activeDownload{cancel: func() {}}
	m.mu.Unlock()
	assert.ErrorIs(t, m.Download(tr), ErrAlreadyDownloading)

	m.mu.Lock()
	delete(m.active, "vid1")
	m.completed["vid1"] = struct{}{}
	m.mu.Unlock()
	assert.ErrorIs(t, m.Download(tr), ErrAlreadyDownloaded)
}

func TestScanExistingFindsCompleted(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "vid1")
	// Metadata without an audio file does not count as completed.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vid2_metadata.json"), []byte("{}"), 0o644))

	m, err := NewManager("yt-dlp", dir, "best")
	require.NoError(t, err)

	assert.True(t, m.IsDownloaded("vid1"))
	assert.False(t, m.IsDownloaded("vid2"))
	assert.NotEmpty(t, m.FilePath("vid1"))
	assert.Empty(t, m.FilePath("vid2"))
}

func TestDownloadedListsMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "vid1")

	m, err := NewManager("yt-dlp", dir, "best")
	require.NoError(t, err)

	list := m.Downloaded()
	require.Len(t, list, 1)
	assert.Equal(t, "vid1", list[0].Track.ID)
	assert.Equal(t, "fixture song", list[0].Track.Title)
	assert.NotEmpty(t, list[0].FilePath)
	assert.Greater(t, list[0].FileSize, int64(0))
}

func TestDeleteRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "vid1")

	m, err := NewManager("yt-dlp", dir, "best")
	require.NoError(t, err)
	require.True(t, m.IsDownloaded("vid1"))

	require.NoError(t, m.Delete("vid1"))
	assert.False(t, m.IsDownloaded("vid1"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCancelRemovesActiveEntry(t *testing.T) {
	m, err := NewManager("yt-dlp", t.TempDir(), "best")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.active["vid1"] = &activeDownload{
		progress: track.DownloadProgress{VideoID: "vid1"},
		cancel:   cancel,
	}
	m.mu.Unlock()

	m.Cancel("vid1")

	assert.Empty(t, m.Active())
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not propagate to the download context")
	}
}

func TestMarkCompletedFlagsFinalProgress(t *testing.T) {
	m, err := NewManager("yt-dlp", t.TempDir(), "best")
	require.NoError(t, err)

	d := &activeDownload{
		progress: track.DownloadProgress{VideoID: "vid1", Progress: 0.9},
		cancel:   func() {},
	}
	m.mu.Lock()
	m.active["vid1"] = d
	m.mu.Unlock()

	m.markCompleted("vid1")

	assert.True(t, d.progress.Completed)
	assert.Equal(t, 1.0, d.progress.Progress)
	assert.True(t, m.IsDownloaded("vid1"))
	assert.Empty(t, m.Active())
}

func TestSubscribeFansOutToAllSubscribers(t *testing.T) {
	m, err := NewManager("yt-dlp", t.TempDir(), "best")
	require.NoError(t, err)

	first, cancelFirst := m.Subscribe()
	second, cancelSecond := m.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	m.setProgress("vid1", track.DownloadProgress{Progress: 0.5})

	for name, ch := range map[string]<-chan struct{}{"first": first, "second": second} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s did not receive the update signal", name)
		}
	}

	// Canceled subscribers stop receiving.
	cancelFirst()
	m.setProgress("vid1", track.DownloadProgress{Progress: 0.6})
	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber did not receive the update signal")
	}
	select {
	case <-first:
		t.Fatal("canceled subscriber still received a signal")
	default:
	}
}

func TestStorageUsed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.m4a"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.m4a"), make([]byte, 50), 0o644))

	m, err := NewManager("yt-dlp", dir, "best")
	require.NoError(t, err)
	assert.Equal(t, int64(150), m.StorageUsed())
}

func writeFixture(t *testing.T, dir, videoID string) {
	t.Helper()
	audio := filepath.Join(dir, "["+videoID+"] fixture song - channel.m4a")
	require.NoError(t, os.WriteFile(audio, []byte("audio-bytes"), 0o644))

	meta := `{"id":"` + videoID + `","title":"fixture song","uploader":"channel","duration":180,"download_date":1700000000}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, videoID+"_metadata.json"), []byte(meta), 0o644))
}
