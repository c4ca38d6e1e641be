// Package track provides the Track domain entity.
package track

import (
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/osa030/jfplayer/internal/domain/ticks"
)

var validate = validator.New()

// MediaSource describes one playable source of a track.
type MediaSource struct {
	ID        string `json:"Id"`
	Bitrate   *int   `json:"Bitrate,omitempty"`
	Container string `json:"Container,omitempty"`
}

// Track represents a Jellyfin audio item.
// Contains only information retrieved from the Jellyfin API.
type Track struct {
	ID           string            `json:"Id" validate:"required"`
	Name         string            `json:"Name" validate:"required"`
	RunTimeTicks *int64            `json:"RunTimeTicks,omitempty" validate:"omitempty,gte=0"`
	IndexNumber  *int              `json:"IndexNumber,omitempty"`
	Album        string            `json:"Album,omitempty"`
	AlbumArtist  string            `json:"AlbumArtist,omitempty"`
	Artists      []string          `json:"Artists,omitempty"`
	ImageTags    map[string]string `json:"ImageTags,omitempty"`
	Type         string            `json:"Type,omitempty"`
	MediaSources []MediaSource     `json:"MediaSources,omitempty"`
}

// ItemsResponse is the Jellyfin envelope for item listings.
type ItemsResponse[T any] struct {
	Items            []T  `json:"Items"`
	TotalRecordCount *int `json:"TotalRecordCount,omitempty"`
	StartIndex       *int `json:"StartIndex,omitempty"`
}

// QueueEntry wraps a track in the playback queue.
type QueueEntry struct {
	Track Track
}

// Validate checks the fields the player relies on.
func (t *Track) Validate() error {
	if err := validate.Struct(t); err != nil {
		return errors.Wrapf(err, "invalid track %q", t.ID)
	}
	return nil
}

// DurationSeconds returns the metadata duration in whole seconds, 0 if unknown.
func (t *Track) DurationSeconds() int64 {
	return ticks.PtrToSeconds(t.RunTimeTicks)
}

// PrimaryImageTag returns the tag of the primary image, if any.
func (t *Track) PrimaryImageTag() (string, bool) {
	tag, ok := t.ImageTags["Primary"]
	return tag, ok && tag != ""
}

// IndexOf returns the position of the track with the given ID, or -1.
func IndexOf(entries []QueueEntry, id string) int {
	for i, e := range entries {
		if e.Track.ID == id {
			return i
		}
	}
	return -1
}
