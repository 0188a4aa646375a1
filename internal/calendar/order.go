package calendar

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"gamecal/internal/model"
)

// unrankedOrder sorts unknown games after every listed one.
const unrankedOrder = 999

// DefaultPriority is the order of the filter checkboxes: the subculture
// games, then Switch, then Steam.
var DefaultPriority = []string{"nikke", "ww", "genshin", "star_rail", "zzz", PlatformSwitch, PlatformSteam}

// Orderer sorts events within a day: by game priority, then by title
// using Korean collation, then by start.
type Orderer struct {
	rank map[string]int
	tag  language.Tag
}

// NewOrderer builds an Orderer from a priority list. A nil list uses
// DefaultPriority.
func NewOrderer(priority []string) *Orderer {
	if priority == nil {
		priority = DefaultPriority
	}
	rank := make(map[string]int, len(priority))
	for i, id := range priority {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	return &Orderer{rank: rank, tag: language.Korean}
}

// Rank returns the priority of an event. Platform switch overrides the
// game id; steam_<appid> ids share the "steam" rank.
func (o *Orderer) Rank(props model.EventProps) int {
	if props.Platform == PlatformSwitch {
		if r, ok := o.rank[PlatformSwitch]; ok {
			return r
		}
	}
	id := props.GameID
	if id == "" {
		return unrankedOrder
	}
	if strings.HasPrefix(id, SteamPrefix) {
		if r, ok := o.rank[PlatformSteam]; ok {
			return r
		}
	}
	if r, ok := o.rank[id]; ok {
		return r
	}
	return unrankedOrder
}

// Sort orders events in place and stamps each one's index into
// ExtendedProps.Order. The result is deterministic for identical input.
func (o *Orderer) Sort(events []model.CalendarEvent) {
	// Collators are not safe for concurrent use; build one per call.
	col := collate.New(o.tag)
	slices.SortStableFunc(events, func(a, b model.CalendarEvent) int {
		if ra, rb := o.Rank(a.ExtendedProps), o.Rank(b.ExtendedProps); ra != rb {
			return ra - rb
		}
		if c := col.CompareString(a.Title, b.Title); c != 0 {
			return c
		}
		return strings.Compare(a.Start, b.Start)
	})
	for i := range events {
		events[i].ExtendedProps.Order = i
	}
}
