// Package httpapi exposes the player over a JSON HTTP API plus a
// websocket stream of state snapshots.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ilyassan/ytaudiobar/internal/app/audio"
	"github.com/ilyassan/ytaudiobar/internal/app/discovery"
	"github.com/ilyassan/ytaudiobar/internal/app/downloads"
	"github.com/ilyassan/ytaudiobar/internal/app/queue"
	"github.com/ilyassan/ytaudiobar/internal/domain/track"
	"github.com/ilyassan/ytaudiobar/internal/infra/store"
	"github.com/ilyassan/ytaudiobar/internal/infra/ytdlp"
)

const toolUpdateTimeout = 2 * time.Minute

// Deps carries the application services the API exposes.
type Deps struct {
	Player    *audio.Player
	Queue     *queue.Manager
	Downloads *downloads.Manager
	Discovery *discovery.Chain
	Store     *store.Store
	Tools     *ytdlp.Manager
}

// Handler serves the JSON API.
type Handler struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates the API handler with all routes registered.
func New(deps Deps) *Handler {
	h := &Handler{deps: deps, mux: http.NewServeMux()}
	h.routes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("POST /v1/playback/play", h.handlePlay)
	h.mux.HandleFunc("POST /v1/playback/toggle", h.playbackAction(func() error { return h.deps.Player.TogglePlayPause() }))
	h.mux.HandleFunc("POST /v1/playback/pause", h.playbackAction(func() error { return h.deps.Player.Pause() }))
	h.mux.HandleFunc("POST /v1/playback/stop", h.playbackAction(func() error { return h.deps.Player.Stop() }))
	h.mux.HandleFunc("POST /v1/playback/seek", h.handleSeek)
	h.mux.HandleFunc("POST /v1/playback/volume", h.handleVolume)
	h.mux.HandleFunc("POST /v1/playback/rate", h.handleRate)
	h.mux.HandleFunc("GET /v1/playback/state", h.handleState)
	h.mux.HandleFunc("GET /v1/playback/ws", h.handleWS)

	h.mux.HandleFunc("GET /v1/search", h.handleSearch)

	h.mux.HandleFunc("GET /v1/queue", h.handleQueueGet)
	h.mux.HandleFunc("POST /v1/queue/tracks", h.handleQueueAdd)
	h.mux.HandleFunc("DELETE /v1/queue/tracks/{index}", h.handleQueueRemove)
	h.mux.HandleFunc("PUT /v1/queue/tracks", h.handleQueueReorder)
	h.mux.HandleFunc("POST /v1/queue/clear", h.handleQueueClear)
	h.mux.HandleFunc("POST /v1/queue/next", h.handleQueueNext)
	h.mux.HandleFunc("POST /v1/queue/previous", h.handleQueuePrevious)
	h.mux.HandleFunc("POST /v1/queue/shuffle", h.handleQueueShuffle)
	h.mux.HandleFunc("POST /v1/queue/repeat", h.handleQueueRepeat)

	h.mux.HandleFunc("GET /v1/library/playlists", h.handlePlaylistsList)
	h.mux.HandleFunc("POST /v1/library/playlists", h.handlePlaylistCreate)
	h.mux.HandleFunc("DELETE /v1/library/playlists/{id}", h.handlePlaylistDelete)
	h.mux.HandleFunc("GET /v1/library/playlists/{id}/tracks", h.handlePlaylistTracks)
	h.mux.HandleFunc("POST /v1/library/playlists/{id}/tracks", h.handlePlaylistAddTrack)
	h.mux.HandleFunc("DELETE /v1/library/playlists/{id}/tracks/{trackID}", h.handlePlaylistRemoveTrack)

	h.mux.HandleFunc("GET /v1/downloads", h.handleDownloadsList)
	h.mux.HandleFunc("GET /v1/downloads/active", h.handleDownloadsActive)
	h.mux.HandleFunc("POST /v1/downloads", h.handleDownloadStart)
	h.mux.HandleFunc("POST /v1/downloads/{id}/cancel", h.handleDownloadCancel)
	h.mux.HandleFunc("DELETE /v1/downloads/{id}", h.handleDownloadDelete)

	h.mux.HandleFunc("GET /v1/tools/ytdlp", h.handleToolsStatus)
	h.mux.HandleFunc("POST /v1/tools/ytdlp/update", h.handleToolsUpdate)

	h.mux.HandleFunc("GET /v1/settings", h.handleSettingsGet)
	h.mux.HandleFunc("PUT /v1/settings", h.handleSettingsPut)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("httpapi: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	zlog.Warn().Err(err).Int("status", status).Msg("httpapi: request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

// playbackAction wraps a parameterless player call.
func (h *Handler) playbackAction(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(); err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, h.deps.Player.State())
	}
}

func (h *Handler) handlePlay(w http.ResponseWriter, r *http.Request) {
	var t track.Track
	if err := decodeBody(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if t.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("track id is required"))
		return
	}
	if err := h.deps.Player.Play(t); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Player.State())
}

func (h *Handler) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position float64 `json:"position"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.deps.Player.Seek(req.Position); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Player.State())
}

func (h *Handler) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.deps.Player.SetVolume(req.Volume); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Player.State())
}

func (h *Handler) handleRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rate float64 `json:"rate"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.deps.Player.SetPlaybackRate(req.Rate); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Player.State())
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Player.State())
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameter q is required"))
		return
	}
	max := 0
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid max parameter"))
			return
		}
		max = n
	}

	results, err := h.deps.Discovery.Search(r.Context(), query, max)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleQueueGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Queue.Snapshot())
}

func (h *Handler) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tracks []track.Track `json:"tracks"`
		Next   bool          `json:"next"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Tracks) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("tracks are required"))
		return
	}
	if req.Next {
		for i := len(req.Tracks) - 1; i >= 0; i-- {
			h.deps.Queue.InsertNext(req.Tracks[i])
		}
	} else {
		h.deps.Queue.AddBatch(req.Tracks)
	}
	writeJSON(w, http.StatusOK, h.deps.Queue.Snapshot())
}

func (h *Handler) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid index"))
		return
	}
	if err := h.deps.Queue.Remove(index); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Queue.Snapshot())
}

func (h *Handler) handleQueueReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tracks []track.Track `json:"tracks"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.deps.Queue.Reorder(req.Tracks); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Queue.Snapshot())
}

func (h *Handler) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	h.deps.Queue.Clear()
	writeJSON(w, http.StatusOK, h.deps.Queue.Snapshot())
}

func (h *Handler) handleQueueNext(w http.ResponseWriter, r *http.Request) {
	t, ok := h.deps.Queue.Next()
	if !ok {
		writeError(w, http.StatusConflict, errors.New("no next track"))
		return
	}
	if err := h.deps.Player.Play(t); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Player.State())
}

func (h *Handler) handleQueuePrevious(w http.ResponseWriter, r *http.Request) {
	t, ok := h.deps.Queue.Previous()
	if !ok {
		writeError(w, http.StatusConflict, errors.New("no previous track"))
		return
	}
	if err := h.deps.Player.Play(t); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Player.State())
}

func (h *Handler) handleQueueShuffle(w http.ResponseWriter, r *http.Request) {
	enabled := h.deps.Queue.ToggleShuffle()
	writeJSON(w, http.StatusOK, map[string]any{"shuffle": enabled})
}

func (h *Handler) handleQueueRepeat(w http.ResponseWriter, r *http.Request) {
	mode := h.deps.Queue.CycleRepeat()
	writeJSON(w, http.StatusOK, map[string]any{"repeat": mode})
}

func (h *Handler) handlePlaylistsList(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.deps.Store.Playlists(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

func (h *Handler) handlePlaylistCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("playlist name is required"))
		return
	}
	id, err := h.deps.Store.CreatePlaylist(r.Context(), req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) handlePlaylistDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Store.DeletePlaylist(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.deps.Store.PlaylistTracks(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

// handlePlaylistAddTrack saves the track into the library then links it,
// so adding never fails on a track the store has not seen yet.
func (h *Handler) handlePlaylistAddTrack(w http.ResponseWriter, r *http.Request) {
	var t track.Track
	if err := decodeBody(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if t.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("track id is required"))
		return
	}

	ctx := r.Context()
	if err := h.deps.Store.SaveTrack(ctx, track.Stored{Track: t}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.deps.Store.AddTrackToPlaylist(ctx, t.ID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePlaylistRemoveTrack(w http.ResponseWriter, r *http.Request) {
	err := h.deps.Store.RemoveTrackFromPlaylist(r.Context(), r.PathValue("trackID"), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDownloadsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"downloads":    h.deps.Downloads.Downloaded(),
		"storage_used": h.deps.Downloads.StorageUsed(),
	})
}

func (h *Handler) handleDownloadsActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"active": h.deps.Downloads.Active()})
}

func (h *Handler) handleDownloadStart(w http.ResponseWriter, r *http.Request) {
	var t track.Track
	if err := decodeBody(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if t.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("track id is required"))
		return
	}
	if err := h.deps.Downloads.Download(t); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleDownloadCancel(w http.ResponseWriter, r *http.Request) {
	h.deps.Downloads.Cancel(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDownloadDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Downloads.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleToolsStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"installed": h.deps.Tools.Installed(),
		"path":      h.deps.Tools.Path(),
	}
	if h.deps.Tools.Installed() {
		if v, err := h.deps.Tools.Version(r.Context()); err == nil {
			status["version"] = v
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleToolsUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), toolUpdateTimeout)
	defer cancel()

	if err := h.deps.Tools.Update(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := h.deps.Store.LoadSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var settings store.Settings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.deps.Store.SaveSettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
