package calendar

import (
	"strings"

	"gamecal/internal/model"
)

var (
	broadcastKeywords = []string{"방송", "프로그램", "라이브"}
	broadcastHosts    = []string{"youtube.com", "youtu.be"}
	releaseKeyword    = "발매예정"
)

// Classify decides how an update is displayed. Broadcast markers win over
// release markers; everything else is a regular update.
func Classify(u model.Update) model.EventType {
	desc := u.Description
	link := strings.ToLower(u.URL)

	for _, kw := range broadcastKeywords {
		if strings.Contains(desc, kw) {
			return model.TypeBroadcast
		}
	}
	for _, host := range broadcastHosts {
		if strings.Contains(link, host) {
			return model.TypeBroadcast
		}
	}

	if IsUpcoming(u.GameID) || strings.Contains(desc, releaseKeyword) {
		return model.TypeRelease
	}
	return model.TypeUpdate
}

// Palette maps event types to display colors.
type Palette struct {
	Update    string
	Broadcast string
	Release   string
	End       string
}

// DefaultPalette is the blue/gold/green scheme with red end milestones.
var DefaultPalette = Palette{
	Update:    "#0d6efd",
	Broadcast: "#ffc107",
	Release:   "#198754",
	End:       "#dc3545",
}

// Color returns the color for t, falling back to the update color.
func (p Palette) Color(t model.EventType) string {
	switch t {
	case model.TypeBroadcast:
		return p.Broadcast
	case model.TypeRelease:
		return p.Release
	default:
		return p.Update
	}
}
