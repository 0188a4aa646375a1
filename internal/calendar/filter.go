package calendar

import (
	"strings"
	"time"

	"gamecal/internal/model"
)

// Reserved id prefixes and aggregate selection ids.
const (
	SteamPrefix  = "steam_"
	ComingPrefix = "coming_"

	SteamAll  = "steam_all"
	SwitchAll = "switch_all"

	PlatformSwitch = "switch"
	PlatformSteam  = "steam"
)

// DefaultWindowMonths is how far back regular updates stay visible.
const DefaultWindowMonths = 3

// Selection is the set of ids the user has chosen to display. An empty
// selection shows everything.
type Selection map[string]struct{}

// NewSelection builds a Selection from ids, ignoring blanks.
func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the selected ids in no particular order.
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// Match reports whether u passes the selection test.
func (s Selection) Match(u model.Update) bool {
	if len(s) == 0 {
		return true
	}
	if s.Has(u.GameID) {
		return true
	}
	if s.Has(SteamAll) && strings.HasPrefix(u.GameID, SteamPrefix) {
		return true
	}
	if s.Has(SwitchAll) && u.Platform == PlatformSwitch {
		return true
	}
	return false
}

// IsUpcoming reports whether id is a synthetic upcoming-release id.
func IsUpcoming(id string) bool {
	return strings.HasPrefix(id, SteamPrefix) || strings.HasPrefix(id, ComingPrefix)
}

// Unrestricted reports whether u is exempt from the rolling date window:
// upcoming releases and console-platform entries are always listed.
func Unrestricted(u model.Update) bool {
	return IsUpcoming(u.GameID) || u.Platform == PlatformSwitch
}

// FilterOptions tunes Filter. The zero value uses a three-month window in
// time.Local.
type FilterOptions struct {
	WindowMonths int
	Location     *time.Location
}

func (o FilterOptions) withDefaults() FilterOptions {
	if o.WindowMonths <= 0 {
		o.WindowMonths = DefaultWindowMonths
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Cutoff returns the first day that is still inside the window.
func (o FilterOptions) Cutoff(now time.Time) time.Time {
	o = o.withDefaults()
	return startOfDay(subtractMonths(now.In(o.Location), o.WindowMonths), o.Location)
}

// Filter returns the updates to display for the given selection at now.
// It does not modify updates and keeps their order.
func Filter(updates []model.Update, sel Selection, now time.Time, opts FilterOptions) []model.Update {
	opts = opts.withDefaults()
	cutoff := opts.Cutoff(now)

	out := make([]model.Update, 0, len(updates))
	for _, u := range updates {
		if !Unrestricted(u) && !insideWindow(u, cutoff, opts.Location) {
			continue
		}
		if !sel.Match(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// insideWindow applies the date test: end_date wins over update_date when
// it parses; a record with neither date is never shown.
func insideWindow(u model.Update, cutoff time.Time, loc *time.Location) bool {
	ref, err := ParseDate(u.EndDate, loc)
	if err != nil {
		ref, err = ParseDate(u.UpdateDate, loc)
		if err != nil {
			return false
		}
	}
	return !startOfDay(ref.Time, loc).Before(cutoff)
}
