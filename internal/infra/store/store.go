// Package store provides sqlite-backed persistence for the local library:
// tracks, playlists, playlist memberships and app settings.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

var ErrNotFound = errors.New("not found")

// Settings are the user preferences persisted alongside the library.
type Settings struct {
	DefaultDownloadPath   string `json:"default_download_path"`
	PreferredAudioQuality string `json:"preferred_audio_quality"`
	AutoUpdateYTDLP       bool   `json:"auto_update_ytdlp"`
}

// DefaultSettings returns the settings used before any are saved.
func DefaultSettings() Settings {
	return Settings{PreferredAudioQuality: "best", AutoUpdateYTDLP: true}
}

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and initializes
// the schema, including the system favorites playlist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS tracks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT,
			duration INTEGER,
			thumbnail_url TEXT,
			added_date INTEGER,
			file_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS playlists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_date INTEGER,
			is_system_playlist BOOLEAN DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS playlist_memberships (
			id TEXT PRIMARY KEY,
			playlist_id TEXT,
			track_id TEXT,
			added_date INTEGER,
			FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
			FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			id TEXT PRIMARY KEY,
			default_download_path TEXT,
			preferred_audio_quality TEXT DEFAULT 'best',
			auto_update_ytdlp BOOLEAN DEFAULT 1
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "failed to initialize schema")
		}
	}

	// The favorites playlist always exists and cannot be deleted.
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO playlists (id, name, created_date, is_system_playlist) VALUES (?, 'All Favorites', ?, 1)`,
		track.FavoritesPlaylistID, time.Now().Unix(),
	)
	return errors.Wrap(err, "failed to create favorites playlist")
}

// SaveTrack inserts a track if it is not already known. INSERT OR IGNORE
// keeps existing rows (and their playlist memberships) intact.
func (s *Store) SaveTrack(ctx context.Context, t track.Stored) error {
	addedAt := t.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tracks (id, title, author, duration, thumbnail_url, added_date, file_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Uploader, t.Duration, t.ThumbnailURL, addedAt.Unix(), t.FilePath,
	)
	return errors.Wrap(err, "failed to save track")
}

// GetTrack returns a stored track by ID, or ErrNotFound.
func (s *Store) GetTrack(ctx context.Context, id string) (track.Stored, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, author, duration, thumbnail_url, added_date, file_path FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return track.Stored{}, errors.Wrapf(ErrNotFound, "track %s", id)
	}
	return t, errors.Wrap(err, "failed to get track")
}

// DeleteTrack removes a track and, via cascade, its playlist memberships.
func (s *Store) DeleteTrack(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
	return errors.Wrap(err, "failed to delete track")
}

// CreatePlaylist creates a user playlist and returns its ID.
func (s *Store) CreatePlaylist(ctx context.Context, name string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playlists (id, name, created_date, is_system_playlist) VALUES (?, ?, ?, 0)`,
		id, name, time.Now().Unix(),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to create playlist")
	}
	return id, nil
}

// DeletePlaylist removes a user playlist. System playlists are untouched.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM playlists WHERE id = ? AND is_system_playlist = 0`, id)
	return errors.Wrap(err, "failed to delete playlist")
}

// Playlists returns all playlists, system playlists first.
func (s *Store) Playlists(ctx context.Context) ([]track.Playlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_date, is_system_playlist FROM playlists
		 ORDER BY is_system_playlist DESC, created_date ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list playlists")
	}
	defer rows.Close()

	var out []track.Playlist
	for rows.Next() {
		var p track.Playlist
		var created int64
		if err := rows.Scan(&p.ID, &p.Name, &created, &p.System); err != nil {
			return nil, errors.Wrap(err, "failed to scan playlist")
		}
		p.CreatedAt = time.Unix(created, 0)
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate playlists")
}

// AddTrackToPlaylist links a stored track into a playlist.
func (s *Store) AddTrackToPlaylist(ctx context.Context, trackID, playlistID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playlist_memberships (id, playlist_id, track_id, added_date) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), playlistID, trackID, time.Now().Unix(),
	)
	return errors.Wrap(err, "failed to add track to playlist")
}

// RemoveTrackFromPlaylist unlinks a track from a playlist.
func (s *Store) RemoveTrackFromPlaylist(ctx context.Context, trackID, playlistID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM playlist_memberships WHERE track_id = ? AND playlist_id = ?`,
		trackID, playlistID,
	)
	return errors.Wrap(err, "failed to remove track from playlist")
}

// PlaylistTracks returns the tracks of a playlist, most recently added first.
func (s *Store) PlaylistTracks(ctx context.Context, playlistID string) ([]track.Stored, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.title, t.author, t.duration, t.thumbnail_url, t.added_date, t.file_path
		 FROM tracks t
		 INNER JOIN playlist_memberships pm ON t.id = pm.track_id
		 WHERE pm.playlist_id = ?
		 ORDER BY pm.added_date DESC`, playlistID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query playlist tracks")
	}
	defer rows.Close()

	var out []track.Stored
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan track")
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate playlist tracks")
}

// AddToFavorites adds a track to the system favorites playlist.
func (s *Store) AddToFavorites(ctx context.Context, trackID string) error {
	return s.AddTrackToPlaylist(ctx, trackID, track.FavoritesPlaylistID)
}

// RemoveFromFavorites removes a track from the system favorites playlist.
func (s *Store) RemoveFromFavorites(ctx context.Context, trackID string) error {
	return s.RemoveTrackFromPlaylist(ctx, trackID, track.FavoritesPlaylistID)
}

// Favorites returns the favorites playlist contents.
func (s *Store) Favorites(ctx context.Context) ([]track.Stored, error) {
	return s.PlaylistTracks(ctx, track.FavoritesPlaylistID)
}

// SaveSettings persists the app settings, replacing any previous values.
func (s *Store) SaveSettings(ctx context.Context, st Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO app_settings (id, default_download_path, preferred_audio_quality, auto_update_ytdlp)
		 VALUES ('default', ?, ?, ?)`,
		st.DefaultDownloadPath, st.PreferredAudioQuality, st.AutoUpdateYTDLP,
	)
	return errors.Wrap(err, "failed to save settings")
}

// LoadSettings returns the persisted settings, or defaults when none exist.
func (s *Store) LoadSettings(ctx context.Context) (Settings, error) {
	var st Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT default_download_path, preferred_audio_quality, auto_update_ytdlp FROM app_settings WHERE id = 'default'`,
	).Scan(&st.DefaultDownloadPath, &st.PreferredAudioQuality, &st.AutoUpdateYTDLP)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	return st, errors.Wrap(err, "failed to load settings")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(row scanner) (track.Stored, error) {
	var t track.Stored
	var author, thumbnail, filePath sql.NullString
	var added sql.NullInt64
	if err := row.Scan(&t.ID, &t.Title, &author, &t.Duration, &thumbnail, &added, &filePath); err != nil {
		return track.Stored{}, err
	}
	t.Uploader = author.String
	t.ThumbnailURL = thumbnail.String
	t.FilePath = filePath.String
	if added.Valid {
		t.AddedAt = time.Unix(added.Int64, 0)
	}
	return t, nil
}
