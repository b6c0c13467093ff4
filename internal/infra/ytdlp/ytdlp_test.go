package ytdlp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePCM(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		want  []int16
	}{
		{
			name:  "little endian pairs",
			bytes: []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80},
			want:  []int16{0, 32767, -32768},
		},
		{
			name:  "trailing odd byte dropped",
			bytes: []byte{0x01, 0x00, 0xFF},
			want:  []int16{1},
		},
		{
			name:  "empty",
			bytes: nil,
			want:  []int16{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodePCM(tt.bytes))
		})
	}
}

func TestToTrackDefaultsUploader(t *testing.T) {
	tr := toTrack(videoJSON{ID: "abc", Title: "song", Duration: 123.7})

	assert.Equal(t, "Unknown", tr.Uploader)
	assert.Equal(t, int64(123), tr.Duration)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", tr.URL())
}

func TestManagerPath(t *testing.T) {
	m := NewManager("/tmp/tools")

	want := filepath.Join("/tmp/tools", "yt-dlp")
	if runtime.GOOS == "windows" {
		want = filepath.Join("/tmp/tools", "yt-dlp.exe")
	}
	assert.Equal(t, want, m.Path())
	assert.False(t, NewManager(t.TempDir()).Installed())
}

func TestManagerInstallWritesExecutable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("#!/bin/sh\nexit 0\n"))
	}))
	defer srv.Close()

	m := NewManager(t.TempDir())
	m.client = srv.Client()
	m.releaseURL = srv.URL + "/"

	require.NoError(t, m.Install(context.Background()))
	require.True(t, m.Installed())

	info, err := os.Stat(m.Path())
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.NotZero(t, info.Mode()&0o100, "binary should be executable")
	}
}

func TestManagerInstallFailsOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	m := NewManager(t.TempDir())
	m.client = srv.Client()
	m.releaseURL = srv.URL + "/"

	err := m.Install(context.Background())
	require.Error(t, err)
	assert.False(t, m.Installed())
}
