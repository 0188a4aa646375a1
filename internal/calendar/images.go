package calendar

import (
	"strings"

	"golang.org/x/net/html"

	"gamecal/internal/model"
)

// steamImageTemplates are tried in order; %s is the numeric app id.
var steamImageTemplates = []string{
	"https://shared.fastly.steamstatic.com/store_item_assets/steam/apps/%s/header.jpg",
	"https://cdn.akamai.steamstatic.com/steam/apps/%s/header.jpg",
	"https://cdn.cloudflare.steamstatic.com/steam/apps/%s/header.jpg",
	"https://cdn.akamai.steamstatic.com/steam/apps/%s/capsule_616x353.jpg",
	"https://cdn.cloudflare.steamstatic.com/steam/apps/%s/capsule_616x353.jpg",
}

// SteamImageCandidates returns the CDN header image URLs for a steam_<appid> id.
func SteamImageCandidates(gameID string) []string {
	appID := strings.TrimPrefix(gameID, SteamPrefix)
	out := make([]string, 0, len(steamImageTemplates))
	for _, tmpl := range steamImageTemplates {
		out = append(out, strings.Replace(tmpl, "%s", appID, 1))
	}
	return out
}

// HeaderImage resolves the primary header image and its fallbacks.
func HeaderImage(u model.Update) (primary string, fallbacks []string) {
	primary = u.HeaderImage

	switch {
	case strings.HasPrefix(u.GameID, SteamPrefix):
		candidates := SteamImageCandidates(u.GameID)
		fallbacks = make([]string, 0, len(candidates))
		for _, c := range candidates {
			if c != primary {
				fallbacks = append(fallbacks, c)
			}
		}
		if primary == "" {
			primary = candidates[0]
		}
	case u.Platform == PlatformSwitch && primary != "":
		if src, ok := ImageSource(primary); ok {
			primary = src
		}
		fallbacks = []string{}
	default:
		fallbacks = []string{}
	}
	return primary, fallbacks
}

// ImageSource extracts the src of the first <img> in a markup fragment.
func ImageSource(fragment string) (string, bool) {
	if !strings.Contains(fragment, "<") {
		return "", false
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "img" {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "src" && len(val) > 0 {
					return string(val), true
				}
			}
		}
	}
}
