package calendar

import (
	"errors"
	"strings"
	"time"

	"gamecal/internal/model"
)

const eventTextColor = "#fff"

// ProjectOptions tunes Project. The zero value uses DefaultPalette and
// time.Local.
type ProjectOptions struct {
	Palette  Palette
	Location *time.Location
}

func (o ProjectOptions) withDefaults() ProjectOptions {
	if o.Palette == (Palette{}) {
		o.Palette = DefaultPalette
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Projection is the result of Project: the events plus how many records
// were left out because their date was only a year or did not parse.
type Projection struct {
	Events      []model.CalendarEvent
	Unscheduled int
	Undated     int
}

// Project turns filtered updates into calendar events. Each record yields
// zero, one or two events; a record whose date does not parse yields none
// and does not affect the others.
func Project(updates []model.Update, games map[string]model.Game, opts ProjectOptions) Projection {
	opts = opts.withDefaults()

	p := Projection{Events: make([]model.CalendarEvent, 0, len(updates))}
	for _, u := range updates {
		game, hasGame := games[u.GameID]
		events, err := ProjectOne(u, game, hasGame, opts)
		switch {
		case errors.Is(err, ErrYearOnly):
			p.Unscheduled++
		case err != nil:
			p.Undated++
		}
		p.Events = append(p.Events, events...)
	}
	return p
}

// ProjectOne projects a single update. game is only consulted when
// hasGame is true.
func ProjectOne(u model.Update, game model.Game, hasGame bool, opts ProjectOptions) ([]model.CalendarEvent, error) {
	opts = opts.withDefaults()
	loc := opts.Location

	start, err := ParseDate(u.UpdateDate, loc)
	if err != nil {
		return nil, err
	}

	title := Title(u, game, hasGame)
	kind := Classify(u)
	color := opts.Palette.Color(kind)
	headerImage, candidates := HeaderImage(u)

	name := u.Name
	if name == "" {
		name = title
	}
	platform := u.Platform
	if platform == "" {
		platform = PlatformSteam
	}
	thumb := ""
	if hasGame {
		thumb = game.Thumbnail
	}
	tags := []string(u.Tags)
	if tags == nil {
		tags = []string{}
	}

	props := model.EventProps{
		GameID:           u.GameID,
		Description:      u.Description,
		Version:          u.Version,
		Thumb:            thumb,
		Color:            model.EventColor{BG: color},
		URL:              u.URL,
		IsNew:            IsUpcoming(u.GameID),
		Platform:         platform,
		Name:             name,
		Tags:             tags,
		Summary:          u.Summary,
		HeaderImage:      headerImage,
		HeaderCandidates: candidates,
		Type:             kind,
	}

	end, endErr := ParseDate(u.EndDate, loc)
	if endErr != nil || end.Day(loc) == start.Day(loc) {
		return []model.CalendarEvent{newEvent(title, start, loc, color, props)}, nil
	}

	startProps := props
	startProps.Milestone = model.MilestoneStart

	endProps := props
	endProps.Milestone = model.MilestoneEnd
	endProps.Color = model.EventColor{BG: opts.Palette.End}

	return []model.CalendarEvent{
		newEvent(title, start, loc, color, startProps),
		newEvent(title, end, loc, opts.Palette.End, endProps),
	}, nil
}

// Title picks the game's name, then the record's own name, then its id.
func Title(u model.Update, game model.Game, hasGame bool) string {
	if hasGame && game.Name != "" {
		return game.Name
	}
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.GameID
}

func newEvent(title string, d Date, loc *time.Location, color string, props model.EventProps) model.CalendarEvent {
	return model.CalendarEvent{
		Title:           title,
		Start:           d.Format(loc),
		AllDay:          !d.HasTime,
		BackgroundColor: color,
		BorderColor:     color,
		TextColor:       eventTextColor,
		ExtendedProps:   props,
	}
}
