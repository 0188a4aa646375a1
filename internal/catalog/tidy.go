package catalog

import (
	"strings"

	"gamecal/internal/model"
)

// pricePlaceholders are scraper leftovers for "no price listed", removed
// longest first.
var pricePlaceholders = []string{" · · 미표기", " · 미표기", " · ·"}

// TidyReport counts what Tidy changed.
type TidyReport struct {
	Cleaned    int
	Duplicates int
}

// CleanDescription removes empty price segments from a description:
// "발매예정 · 액션 · 미표기" becomes "발매예정 · 액션".
func CleanDescription(desc string) string {
	for _, p := range pricePlaceholders {
		desc = strings.ReplaceAll(desc, p, "")
	}
	return desc
}

type dedupeKey struct {
	name     string
	date     string
	platform string
}

// Tidy cleans descriptions and drops duplicate updates sharing name,
// update_date and platform (unnamed records: game id and description).
// The first occurrence wins and order is kept. The input slice is not
// modified.
func Tidy(updates []model.Update) ([]model.Update, TidyReport) {
	var report TidyReport
	seen := make(map[dedupeKey]struct{}, len(updates))
	out := make([]model.Update, 0, len(updates))

	for _, u := range updates {
		if cleaned := CleanDescription(u.Description); cleaned != u.Description {
			u.Description = cleaned
			report.Cleaned++
		}

		key := dedupeKey{name: u.Name, date: u.UpdateDate, platform: u.Platform}
		if strings.TrimSpace(u.Name) == "" {
			// Unnamed records are regular game updates; tell them apart by
			// game and text instead.
			key.name = u.GameID + "|" + u.Description
		}
		if _, dup := seen[key]; dup {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out, report
}
