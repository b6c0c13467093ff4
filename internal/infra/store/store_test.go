package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func stored(id, title string) track.Stored {
	return track.Stored{Track: track.Track{ID: id, Title: title, Uploader: "channel", Duration: 180}}
}

func TestSaveAndGetTrack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrack(ctx, stored("vid1", "first")))

	got, err := s.GetTrack(ctx, "vid1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, "channel", got.Uploader)
	assert.False(t, got.AddedAt.IsZero())
}

func TestSaveTrackIgnoresDuplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrack(ctx, stored("vid1", "original")))
	require.NoError(t, s.SaveTrack(ctx, stored("vid1", "renamed")))

	got, err := s.GetTrack(ctx, "vid1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)
}

func TestGetTrackNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetTrack(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFavoritesPlaylistExists(t *testing.T) {
	s := openTestStore(t)

	playlists, err := s.Playlists(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Equal(t, track.FavoritesPlaylistID, playlists[0].ID)
	assert.True(t, playlists[0].System)
}

func TestFavoritesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrack(ctx, stored("vid1", "song")))
	require.NoError(t, s.AddToFavorites(ctx, "vid1"))

	favs, err := s.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "vid1", favs[0].ID)

	require.NoError(t, s.RemoveFromFavorites(ctx, "vid1"))
	favs, err = s.Favorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestUserPlaylistLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreatePlaylist(ctx, "road trip")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, s.SaveTrack(ctx, stored("vid1", "song")))
	require.NoError(t, s.AddTrackToPlaylist(ctx, "vid1", id))

	tracks, err := s.PlaylistTracks(ctx, id)
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	require.NoError(t, s.DeletePlaylist(ctx, id))
	playlists, err := s.Playlists(ctx)
	require.NoError(t, err)
	for _, p := range playlists {
		assert.NotEqual(t, id, p.ID)
	}
}

func TestDeletePlaylistSparesSystemPlaylist(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DeletePlaylist(ctx, track.FavoritesPlaylistID))

	playlists, err := s.Playlists(ctx)
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Equal(t, track.FavoritesPlaylistID, playlists[0].ID)
}

func TestDeleteTrackCascadesMemberships(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrack(ctx, stored("vid1", "song")))
	require.NoError(t, s.AddToFavorites(ctx, "vid1"))
	require.NoError(t, s.DeleteTrack(ctx, "vid1"))

	favs, err := s.Favorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), got)

	want := Settings{DefaultDownloadPath: "/music", PreferredAudioQuality: "320k", AutoUpdateYTDLP: false}
	require.NoError(t, s.SaveSettings(ctx, want))

	got, err = s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
