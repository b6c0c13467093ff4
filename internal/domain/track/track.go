// Package track provides the track and playlist domain entities.
package track

import "time"

// Track represents a YouTube video as an audio track.
// Contains only information retrieved from yt-dlp metadata.
type Track struct {
	ID           string `json:"id"`            // YouTube video ID
	Title        string `json:"title"`         // Video title
	Uploader     string `json:"uploader"`      // Channel / uploader name
	Duration     int64  `json:"duration"`      // Duration in seconds
	ThumbnailURL string `json:"thumbnail_url"` // Thumbnail URL (may be empty)
	AudioURL     string `json:"audio_url"`     // Pre-resolved audio stream URL (may be empty)
	Description  string `json:"description"`   // Video description (may be empty)
}

// URL returns the canonical watch URL for the track.
func (t Track) URL() string {
	return "https://www.youtube.com/watch?v=" + t.ID
}

// Stored represents a track persisted in the local library.
type Stored struct {
	Track
	AddedAt  time.Time `json:"added_at"`
	FilePath string    `json:"file_path"` // Local file path if downloaded (may be empty)
}

// Playlist represents a named collection of stored tracks.
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	System    bool      `json:"is_system_playlist"` // System playlists (favorites) cannot be deleted
}

// FavoritesPlaylistID is the fixed ID of the system favorites playlist.
const FavoritesPlaylistID = "favorites"

// RepeatMode represents the queue repeat behavior.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// Cycle returns the next repeat mode in off -> all -> one -> off order.
func (m RepeatMode) Cycle() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// DownloadProgress reports the state of a background download.
type DownloadProgress struct {
	VideoID   string  `json:"video_id"`
	Progress  float64 `json:"progress"` // 0.0 to 1.0
	Speed     string  `json:"speed"`
	ETA       string  `json:"eta"`
	FileSize  string  `json:"file_size"`
	Completed bool    `json:"is_completed"`
	Error     string  `json:"error,omitempty"`
}
