// Package export renders projected calendar events as an iCalendar feed.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"gamecal/internal/calendar"
	appLog "gamecal/internal/log"
	"gamecal/internal/model"
)

const (
	ProductID   = "-//gamecal//Game Update Calendar//KO"
	uidDomain   = "@gamecal"
	endSuffix   = " 종료"
	feedTTL     = "PT1H"
	defaultName = "게임 업데이트 캘린더"
)

// uidNamespace scopes the name-based UUIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://gamecal.local/events"))

// Options tunes the feed header.
type Options struct {
	Name     string
	Location *time.Location
	// Now stamps DTSTAMP; zero uses time.Now.
	Now time.Time
}

// EventUID returns a stable UID for an event so calendar clients update
// entries in place across refreshes. Events of one game on one day are told
// apart by type, version, text and link.
func EventUID(ev model.CalendarEvent) string {
	p := ev.ExtendedProps
	key := strings.Join([]string{
		p.GameID,
		ev.Start,
		string(p.Milestone),
		ev.Title,
		string(p.Type),
		p.Version,
		p.Description,
		p.URL,
	}, "|")
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + uidDomain
}

// uniqueUID suffixes repeats of the same UID with their occurrence number,
// so fully identical events still get distinct UIDs in feed order.
func uniqueUID(uid string, seen map[string]int) string {
	n := seen[uid]
	seen[uid] = n + 1
	if n == 0 {
		return uid
	}
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(uid, uidDomain), n, uidDomain)
}

// Build converts events into a calendar. Events whose start cannot be read
// back are skipped.
func Build(events []model.CalendarEvent, opts Options) *ical.Calendar {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Name == "" {
		opts.Name = defaultName
	}
	stamp := opts.Now
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName(opts.Name)
	cal.SetXWRTimezone(opts.Location.String())
	cal.SetXPublishedTTL(feedTTL)

	seen := make(map[string]int, len(events))
	for _, ev := range events {
		start, err := calendar.ParseDate(ev.Start, opts.Location)
		if err != nil {
			appLog.Debug("ics export: skip event", "title", ev.Title, "start", ev.Start)
			continue
		}

		ve := cal.AddEvent(uniqueUID(EventUID(ev), seen))
		ve.SetDtStampTime(stamp)

		if ev.AllDay {
			day := start.Time.In(opts.Location)
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
		} else {
			ve.SetStartAt(start.Time)
		}

		summary := ev.Title
		if ev.ExtendedProps.Milestone == model.MilestoneEnd {
			summary += endSuffix
		}
		ve.SetSummary(summary)

		if desc := describe(ev.ExtendedProps); desc != "" {
			ve.SetDescription(desc)
		}
		if ev.ExtendedProps.URL != "" {
			ve.SetURL(ev.ExtendedProps.URL)
		}
		ve.AddProperty(ical.ComponentPropertyCategories, string(ev.ExtendedProps.Type))
	}

	return cal
}

// WriteICS serializes events as an iCalendar document.
func WriteICS(w io.Writer, events []model.CalendarEvent, opts Options) error {
	_, err := io.WriteString(w, Build(events, opts).Serialize())
	return err
}

func describe(p model.EventProps) string {
	parts := make([]string, 0, 3)
	if p.Version != "" {
		parts = append(parts, "v"+p.Version)
	}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	if p.Summary != "" && p.Summary != p.Description {
		parts = append(parts, p.Summary)
	}
	return strings.Join(parts, "\n")
}
