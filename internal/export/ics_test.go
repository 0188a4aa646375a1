package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecal/internal/model"
)

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return loc
}

func testEvents() []model.CalendarEvent {
	return []model.CalendarEvent{
		{
			Title:  "Nikke",
			Start:  "2024-01-15",
			AllDay: true,
			ExtendedProps: model.EventProps{
				GameID:      "nikke",
				Version:     "3.1",
				Description: "event",
				URL:         "https://example.com/notice",
				Type:        model.TypeUpdate,
				Milestone:   model.MilestoneStart,
			},
		},
		{
			Title:  "Nikke",
			Start:  "2024-01-20",
			AllDay: true,
			ExtendedProps: model.EventProps{
				GameID:    "nikke",
				Type:      model.TypeUpdate,
				Milestone: model.MilestoneEnd,
			},
		},
		{
			Title: "Genshin",
			Start: "2024-01-15T10:00:00+09:00",
			ExtendedProps: model.EventProps{
				GameID: "genshin",
				Type:   model.TypeBroadcast,
			},
		},
		{
			Title: "broken",
			Start: "TBA",
		},
	}
}

func TestWriteICS(t *testing.T) {
	loc := seoul(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, testEvents(), Options{Location: loc, Now: now}))
	out := buf.String()

	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.Contains(t, out, "X-WR-TIMEZONE:Asia/Seoul")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20240115")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20240116")
	assert.Contains(t, out, "DTSTART:20240115T010000Z")
	assert.Contains(t, out, "CATEGORIES:broadcast")
	assert.NotContains(t, out, "broken")

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 3)

	summaries := make([]string, 0, len(events))
	for _, e := range events {
		summaries = append(summaries, e.GetProperty(ical.ComponentPropertySummary).Value)
	}
	assert.Equal(t, []string{"Nikke", "Nikke" + endSuffix, "Genshin"}, summaries)

	url := events[0].GetProperty(ical.ComponentPropertyUrl)
	require.NotNil(t, url)
	assert.Equal(t, "https://example.com/notice", url.Value)
}

func TestEventUID(t *testing.T) {
	events := testEvents()

	assert.Equal(t, EventUID(events[0]), EventUID(events[0]))
	assert.NotEqual(t, EventUID(events[0]), EventUID(events[1]))
	assert.True(t, strings.HasSuffix(EventUID(events[2]), uidDomain))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "v3.1\nevent", describe(model.EventProps{Version: "3.1", Description: "event", Summary: "event"}))
	assert.Equal(t, "요약", describe(model.EventProps{Summary: "요약"}))
	assert.Empty(t, describe(model.EventProps{}))
}

func TestEventUID_SameGameSameDay(t *testing.T) {
	patch := model.CalendarEvent{
		Title:  "Nikke",
		Start:  "2025-06-01",
		AllDay: true,
		ExtendedProps: model.EventProps{
			GameID:      "nikke",
			Description: "3.1 업데이트",
			Type:        model.TypeUpdate,
		},
	}
	broadcast := patch
	broadcast.ExtendedProps.Description = "특별 방송"
	broadcast.ExtendedProps.Type = model.TypeBroadcast

	assert.NotEqual(t, EventUID(patch), EventUID(broadcast))

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, []model.CalendarEvent{patch, broadcast, patch}, Options{Location: seoul(t)}))

	cal, err := ical.ParseCalendar(strings.NewReader(buf.String()))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	uids := make(map[string]struct{}, len(events))
	for _, e := range events {
		uids[e.Id()] = struct{}{}
	}
	assert.Len(t, uids, 3)
	assert.Equal(t, EventUID(patch), events[0].Id())
	assert.True(t, strings.HasSuffix(events[2].Id(), "-1"+uidDomain))
}
