package calendar

import (
	"fmt"
	"strings"
	"time"

	"gamecal/internal/catalog"
	"gamecal/internal/model"
)

// Option is one checkbox of the game filter.
type Option struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Group is a row of filter checkboxes.
type Group struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Options []Option `json:"options"`
}

const (
	GroupSubculture = "subculture"
	GroupConsole    = "console"
)

// Groups builds the filter checkboxes: the configured subculture games that
// exist in the catalog (catalog order), then one aggregate checkbox per
// console present in the updates.
func Groups(cat *catalog.Catalog, subculture []string) []Group {
	wanted := NewSelection(subculture...)

	sub := Group{Key: GroupSubculture, Label: "서브컬쳐", Options: []Option{}}
	for _, g := range cat.Games {
		if wanted.Has(g.ID) {
			sub.Options = append(sub.Options, Option{ID: g.ID, Label: g.Name, Thumbnail: g.Thumbnail})
		}
	}

	hasSteam, hasSwitch := false, false
	for _, u := range cat.Updates {
		if strings.HasPrefix(u.GameID, SteamPrefix) {
			hasSteam = true
		}
		if u.Platform == PlatformSwitch {
			hasSwitch = true
		}
	}

	con := Group{Key: GroupConsole, Label: "콘솔", Options: []Option{}}
	if hasSwitch {
		con.Options = append(con.Options, Option{ID: SwitchAll, Label: "닌텐도 스위치"})
	}
	if hasSteam {
		con.Options = append(con.Options, Option{ID: SteamAll, Label: "Steam(인기발매예정)"})
	}

	return []Group{sub, con}
}

// Stats summarizes one view.
type Stats struct {
	Shown       int `json:"shown"`
	Total       int `json:"total"`
	Events      int `json:"events"`
	Unscheduled int `json:"unscheduled"`
	Undated     int `json:"undated"`
}

// Label renders the stats line shown above the calendar.
func (s Stats) Label() string {
	return fmt.Sprintf("표시: %d / 전체: %d", s.Shown, s.Total)
}

// ViewOptions bundles the knobs of a full filter+project+sort pass.
type ViewOptions struct {
	Filter   FilterOptions
	Project  ProjectOptions
	Priority []string
}

// View is the calendar content for one selection.
type View struct {
	Events []model.CalendarEvent `json:"events"`
	Stats  Stats                 `json:"stats"`
}

// State is the filter state of one calendar view. It has a single owner
// and is not safe for concurrent use; all changes go through its methods.
type State struct {
	selection  Selection
	subculture []string
}

// NewState starts with the default selection: every game that is not an
// upcoming Steam title, plus both console aggregates.
func NewState(cat *catalog.Catalog, subculture []string) *State {
	s := &State{selection: Selection{}, subculture: append([]string(nil), subculture...)}
	for _, g := range cat.Games {
		if !strings.HasPrefix(g.ID, SteamPrefix) && g.ID != SwitchAll {
			s.selection[g.ID] = struct{}{}
		}
	}
	s.selection[SteamAll] = struct{}{}
	s.selection[SwitchAll] = struct{}{}
	return s
}

// Selection returns a copy of the current selection.
func (s *State) Selection() Selection {
	out := make(Selection, len(s.selection))
	for id := range s.selection {
		out[id] = struct{}{}
	}
	return out
}

// Set replaces the selection.
func (s *State) Set(sel Selection) {
	s.selection = Selection{}
	for id := range sel {
		s.selection[id] = struct{}{}
	}
}

// Toggle adds or removes a single id.
func (s *State) Toggle(id string, on bool) {
	if on {
		s.selection[id] = struct{}{}
		return
	}
	delete(s.selection, id)
}

// SelectAll selects every checkbox.
func (s *State) SelectAll(cat *catalog.Catalog) {
	s.selectWhere(cat, func(string) bool { return true })
}

// SelectNone clears the selection. An empty selection shows everything.
func (s *State) SelectNone() {
	s.selection = Selection{}
}

// SelectConsole keeps only the console aggregates and Steam titles.
func (s *State) SelectConsole(cat *catalog.Catalog) {
	s.selectWhere(cat, func(id string) bool {
		return id == SwitchAll || id == SteamAll || strings.HasPrefix(id, SteamPrefix)
	})
}

// SelectSubculture keeps only the configured subculture games.
func (s *State) SelectSubculture(cat *catalog.Catalog) {
	subs := NewSelection(s.subculture...)
	s.selectWhere(cat, subs.Has)
}

// ApplyPreset applies a named preset: all, none, console or subculture.
func (s *State) ApplyPreset(cat *catalog.Catalog, name string) error {
	switch name {
	case "all":
		s.SelectAll(cat)
	case "none":
		s.SelectNone()
	case "console":
		s.SelectConsole(cat)
	case "subculture":
		s.SelectSubculture(cat)
	default:
		return fmt.Errorf("calendar: unknown preset %q", name)
	}
	return nil
}

func (s *State) selectWhere(cat *catalog.Catalog, keep func(id string) bool) {
	s.selection = Selection{}
	for _, g := range Groups(cat, s.subculture) {
		for _, opt := range g.Options {
			if keep(opt.ID) {
				s.selection[opt.ID] = struct{}{}
			}
		}
	}
}

// View runs filter, projection and sort for the current selection.
func (s *State) View(cat *catalog.Catalog, now time.Time, opts ViewOptions) View {
	filtered := Filter(cat.Updates, s.selection, now, opts.Filter)
	proj := Project(filtered, cat.GameMap(), opts.Project)
	NewOrderer(opts.Priority).Sort(proj.Events)

	return View{
		Events: proj.Events,
		Stats: Stats{
			Shown:       len(filtered),
			Total:       len(cat.Updates),
			Events:      len(proj.Events),
			Unscheduled: proj.Unscheduled,
			Undated:     proj.Undated,
		},
	}
}
