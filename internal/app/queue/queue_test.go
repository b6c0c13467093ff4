package queue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

func tracks(n int) []track.Track {
	ts := make([]track.Track, n)
	for i := range ts {
		ts[i] = track.Track{ID: fmt.Sprintf("t%d", i), Title: fmt.Sprintf("track %d", i), Duration: 60}
	}
	return ts
}

func TestNextStopsAtEndWithRepeatOff(t *testing.T) {
	m := NewManager()
	m.AddBatch(tracks(2))

	first, ok := m.Next()
	require.True(t, ok)
	assert.Equal(t, "t0", first.ID)

	second, ok := m.Next()
	require.True(t, ok)
	assert.Equal(t, "t1", second.ID)

	_, ok = m.Next()
	assert.False(t, ok)
	assert.False(t, m.HasNext())
}

func TestNextWrapsWithRepeatAll(t *testing.T) {
	m := NewManager()
	m.AddBatch(tracks(2))
	m.CycleRepeat() // off -> all

	m.Next()
	m.Next()
	wrapped, ok := m.Next()
	require.True(t, ok)
	assert.Equal(t, "t0", wrapped.ID)
}

func TestNextRepeatsCurrentWithRepeatOne(t *testing.T) {
	m := NewManager()
	m.AddBatch(tracks(3))
	m.TrackAt(1)
	m.CycleRepeat() // all
	m.CycleRepeat() // one

	for i := 0; i < 3; i++ {
		cur, ok := m.Next()
		require.True(t, ok)
		assert.Equal(t, "t1", cur.ID)
	}
}

func TestPreviousClampsAtStartWithRepeatOff(t *testing.T) {
	m := NewManager()
	m.AddBatch(tracks(3))
	m.TrackAt(0)

	prev, ok := m.Previous()
	require.True(t, ok)
	assert.Equal(t, "t0", prev.ID)
}

func TestRemoveAdjustsCurrentIndex(t *testing.T) {
	m := NewManager()
	m.AddBatch(tracks(3))
	m.TrackAt(2)

	require.NoError(t, m.Remove(0))

	snap := m.Snapshot()
	assert.Equal(t, 1, snap.CurrentIndex)
	assert.Equal(t, "t2", snap.Tracks[snap.CurrentIndex].ID)

	assert.Error(t, m.Remove(10))
}

func TestInsertNext(t *testing.T) {
	m := NewManager()
	m.AddBatch(tracks(3))
	m.TrackAt(0)

	m.InsertNext(track.Track{ID: "x"})

	snap := m.Snapshot()
	assert.Equal(t, []string{"t0", "x", "t1", "t2"}, ids(snap.Tracks))
}

func TestShuffleKeepsCurrentTrackFirst(t *testing.T) {
	m := NewManager()
	m.AddBatch(tracks(20))
	m.TrackAt(7)

	enabled := m.ToggleShuffle()
	require.True(t, enabled)

	snap := m.Snapshot()
	assert.Equal(t, 0, snap.CurrentIndex)
	assert.Equal(t, "t7", snap.Tracks[0].ID)
	assert.Len(t, snap.Tracks, 20)
}

func TestShuffleDisableRestoresOriginalOrder(t *testing.T) {
	m := NewManager()
	m.AddBatch(tracks(20))
	m.TrackAt(7)

	m.ToggleShuffle()
	disabled := m.ToggleShuffle()
	require.False(t, disabled)

	snap := m.Snapshot()
	assert.Equal(t, ids(tracks(20)), ids(snap.Tracks))
	assert.Equal(t, 7, snap.CurrentIndex)
}

func TestReorderPreservesCurrentTrack(t *testing.T) {
	m := NewManager()
	m.AddBatch(tracks(3))
	m.TrackAt(0)

	reordered := []track.Track{
		{ID: "t2"}, {ID: "t0"}, {ID: "t1"},
	}
	require.NoError(t, m.Reorder(reordered))

	snap := m.Snapshot()
	assert.Equal(t, 1, snap.CurrentIndex)

	assert.Error(t, m.Reorder(reordered[:1]))
}

func TestClear(t *testing.T) {
	m := NewManager()
	m.AddBatch(tracks(3))
	m.TrackAt(1)

	m.Clear()

	snap := m.Snapshot()
	assert.Empty(t, snap.Tracks)
	assert.Equal(t, -1, snap.CurrentIndex)
	assert.False(t, m.HasPrevious())
}

func ids(ts []track.Track) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
