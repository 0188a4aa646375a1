package model

import (
	"encoding/json"
	"strings"
)

// Game is one entry of the games document. Games are keyed by ID.
type Game struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Developer   string `json:"developer"`
	Platform    string `json:"platform"`
	Thumbnail   string `json:"thumbnail"`
	ReleaseDate string `json:"release_date"`
}

// Update is one dated record of the updates document: a patch, a broadcast
// or a release. GameID either references a Game or is a synthetic id such
// as "steam_<appid>" or "coming_<x>" for titles without a Game entry.
type Update struct {
	GameID      string `json:"game_id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	UpdateDate  string `json:"update_date"`
	EndDate     string `json:"end_date,omitempty"`
	URL         string `json:"url,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Tags        Tags   `json:"tags,omitempty"`
	Summary     string `json:"summary,omitempty"`
	HeaderImage string `json:"header_image,omitempty"`
}

// UnmarshalJSON accepts the legacy "headerImage" key next to "header_image".
func (u *Update) UnmarshalJSON(data []byte) error {
	type plain Update
	aux := struct {
		*plain
		LegacyHeaderImage string `json:"headerImage"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.HeaderImage == "" {
		u.HeaderImage = aux.LegacyHeaderImage
	}
	return nil
}

// Tags is a list of tag strings. In the documents it appears either as a
// comma separated string or as an array.
type Tags []string

func (t *Tags) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = cleanTags(list)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = cleanTags(strings.Split(s, ","))
	return nil
}

func cleanTags(in []string) Tags {
	out := make(Tags, 0, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// EventType classifies an update for display.
type EventType string

const (
	TypeUpdate    EventType = "update"
	TypeBroadcast EventType = "broadcast"
	TypeRelease   EventType = "release"
)

// Milestone marks which end of a split date range an event represents.
// MilestoneNone is used for single events.
type Milestone string

const (
	MilestoneNone  Milestone = ""
	MilestoneStart Milestone = "start"
	MilestoneEnd   Milestone = "end"
)

// EventColor mirrors the { bg } object the page reads.
type EventColor struct {
	BG string `json:"bg"`
}

// EventProps is the display metadata attached to a CalendarEvent.
type EventProps struct {
	GameID           string     `json:"gameId"`
	Description      string     `json:"description"`
	Version          string     `json:"version"`
	Thumb            string     `json:"thumb"`
	Color            EventColor `json:"color"`
	URL              string     `json:"url"`
	IsNew            bool       `json:"isNew"`
	Platform         string     `json:"platform"`
	Name             string     `json:"name"`
	Tags             []string   `json:"tags"`
	Summary          string     `json:"summary"`
	HeaderImage      string     `json:"headerImage"`
	HeaderCandidates []string   `json:"headerCandidates"`
	Type             EventType  `json:"type"`
	Milestone        Milestone  `json:"milestone,omitempty"`
	// Order is the event's position in the sorted list; the page sorts by it.
	Order int `json:"order"`
}

// CalendarEvent is the shape handed to the calendar widget. It is derived
// on every request and never stored.
//
// Start is "2006-01-02" for all-day events and RFC 3339 otherwise. End is
// always empty: ranges are split into start/end milestones instead.
type CalendarEvent struct {
	Title           string     `json:"title"`
	Start           string     `json:"start"`
	End             string     `json:"end,omitempty"`
	AllDay          bool       `json:"allDay"`
	BackgroundColor string     `json:"backgroundColor"`
	BorderColor     string     `json:"borderColor"`
	TextColor       string     `json:"textColor"`
	ExtendedProps   EventProps `json:"extendedProps"`
}
