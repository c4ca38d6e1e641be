// Package playlist provides the Playlist domain entity.
package playlist

import "github.com/osa030/jfplayer/internal/domain/track"

// LibraryName is the name of the Jellyfin collection folder holding playlists.
const LibraryName = "playlists"

// WellKnownLibraryID is the id Jellyfin assigns to the playlists folder on
// default installations.
const WellKnownLibraryID = "1071671e7bffa0532e930debee501d2e"

// Playlist represents a Jellyfin playlist item.
type Playlist struct {
	ID        string            `json:"Id" validate:"required"`
	Name      string            `json:"Name"`
	SongCount *int              `json:"SongCount,omitempty"`
	ImageTags map[string]string `json:"ImageTags,omitempty"`
	Type      string            `json:"Type,omitempty"`
}

// Folder is a Jellyfin collection folder.
type Folder struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Tracks is the ordered content of a playlist.
type Tracks []track.Track

// TrackIDs returns all track IDs in order.
func (ts Tracks) TrackIDs() []string {
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}

// TotalSeconds returns the summed metadata duration of all tracks.
func (ts Tracks) TotalSeconds() int64 {
	var total int64
	for _, t := range ts {
		total += t.DurationSeconds()
	}
	return total
}

// Find returns the track with the given ID.
func (ts Tracks) Find(id string) (track.Track, bool) {
	for _, t := range ts {
		if t.ID == id {
			return t, true
		}
	}
	return track.Track{}, false
}
