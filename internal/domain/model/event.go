// Package model contains domain models passed between layers.
package model

import "encoding/json"

// Author holds the denormalized producer identity attached to an event
// at ingest time. The pipeline never re-fetches author data.
type Author struct {
	Name     string
	URL      string
	ImageURL string
}

// Event is the unit flowing through the relay pipeline.
type Event struct {
	ID       json.Number    // opaque id, stable across redeliveries
	Text     string         // primary content payload
	Entities map[string]any // structured sub-payload, passed through unmodified
	Author   Author
	Deleted  bool // tombstone notice, not a content event
}

// RawUser mirrors the author block of the upstream JSON shape.
type RawUser struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	ProfileImageURL string `json:"profile_image_url_https"`
}

// RawEvent mirrors the upstream event shape. Upstream makes no ordering
// or delivery guarantee beyond "eventually delivered, possibly
// redelivered". Numbers should be decoded with json.Decoder.UseNumber
// so large ids survive the trip intact.
type RawEvent struct {
	ID       json.Number     `json:"id"`
	Text     string          `json:"text"`
	Entities map[string]any  `json:"entities"`
	Deleted  bool            `json:"deleted,omitempty"`
	Delete   json.RawMessage `json:"delete,omitempty"`
	User     RawUser         `json:"user"`
}

// Tombstone reports whether the raw event is a deletion notice. Some
// upstreams flag deletions with a boolean, others wrap them in a
// "delete" object; both count.
func (r RawEvent) Tombstone() bool {
	return r.Deleted || len(r.Delete) > 0
}

// Event converts the raw upstream shape into the domain event.
func (r RawEvent) Event() Event {
	return Event{
		ID:       r.ID,
		Text:     r.Text,
		Entities: r.Entities,
		Author: Author{
			Name:     r.User.Name,
			URL:      r.User.URL,
			ImageURL: r.User.ProfileImageURL,
		},
		Deleted: r.Tombstone(),
	}
}
