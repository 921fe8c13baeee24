// Package query turns a raw keyword into provider-ready query strings and locales.
package query

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/amityadav/marketwatch/internal/search"
)

// ErrEmptyKeyword is returned before any network call when the keyword is blank.
var ErrEmptyKeyword = errors.New("keyword is required")

// Query is the builder output for one (keyword, region, platform) combination.
type Query struct {
	Text string `json:"text"`
	// Locales lists the locale variants to query, primary first. Only the news
	// category has more than one.
	Locales []search.Locale `json:"locales"`
}

// Widened reports whether the primary locale was relaxed for diaspora content.
func (q Query) Widened() bool {
	return len(q.Locales) > 0 && q.Locales[0].Widened
}

const (
	siteReddit    = "site:reddit.com"
	sitePinterest = "site:pinterest.com"
	purchaseTerms = "(buy OR price OR deal OR review)"

	worldwideWebRegion = "wt-wt"
	defaultNativeHL    = "zh-TW"
)

var disambiguators = map[search.Region][]string{
	search.RegionUS: {`"United States"`, `"USA"`, `"North America"`},
	search.RegionCA: {`"Canada"`, `"North America"`},
}

type regionProfile struct {
	news      []search.Locale
	webRegion string
}

var profiles = map[search.Region]regionProfile{
	search.RegionUS: {
		news:      []search.Locale{{HL: "en-US", GL: "US", CEID: "US:en"}},
		webRegion: "us-en",
	},
	search.RegionCA: {
		news: []search.Locale{
			{HL: "en-CA", GL: "CA", CEID: "CA:en"},
			{HL: "fr-CA", GL: "CA", CEID: "CA:fr"},
		},
		webRegion: "ca-en",
	},
	search.RegionHK: {
		news: []search.Locale{
			{HL: "zh-HK", GL: "HK", CEID: "HK:zh-Hant"},
			{HL: "en-HK", GL: "HK", CEID: "HK:en"},
		},
		webRegion: "hk-tzh",
	},
}

// Build produces the query text and locale variants for an adapter call.
// Malformed keywords are passed through untouched.
func Build(keyword string, region search.Region, platform search.Platform, languageHint string) (Query, error) {
	if strings.TrimSpace(keyword) == "" {
		return Query{}, ErrEmptyKeyword
	}
	profile, ok := profiles[region]
	if !ok {
		profile = profiles[search.RegionUS]
		region = search.RegionUS
	}

	widen := region.NorthAmerica() && ContainsCJK(keyword)

	text := keyword
	switch {
	case platform.Locked():
		text = appendOnce(keyword, qualifier(platform))
	case widen:
		text = keyword + " (" + strings.Join(disambiguators[region], " OR ") + ")"
	}

	var locales []search.Locale
	if platform == search.PlatformNews {
		if widen {
			locales = append(locales, nativeLocale(region, languageHint))
		}
		for _, l := range profile.news {
			l.WebRegion = profile.webRegion
			locales = append(locales, l)
		}
	} else {
		primary := profile.news[0]
		primary.WebRegion = profile.webRegion
		if widen {
			primary.WebRegion = worldwideWebRegion
			primary.Widened = true
		}
		locales = append(locales, primary)
	}

	return Query{Text: text, Locales: locales}, nil
}

// ContainsCJK reports whether s has any Han, Kana or Hangul character.
func ContainsCJK(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			return true
		}
	}
	return false
}

func qualifier(p search.Platform) string {
	switch p {
	case search.PlatformForum:
		return siteReddit
	case search.PlatformPinboard:
		return sitePinterest
	case search.PlatformShopping:
		return purchaseTerms
	}
	return ""
}

// appendOnce appends the canonical qualifier, dropping any spelling of it the
// user already typed.
func appendOnce(keyword, q string) string {
	if q == "" {
		return keyword
	}
	existing := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(q))
	if !existing.MatchString(keyword) {
		return keyword + " " + q
	}
	rest := strings.Join(strings.Fields(existing.ReplaceAllString(keyword, " ")), " ")
	if rest == "" {
		return q
	}
	return rest + " " + q
}

func nativeLocale(region search.Region, hint string) search.Locale {
	hl := strings.TrimSpace(hint)
	if hl == "" {
		hl = defaultNativeHL
	}
	return search.Locale{
		HL:        hl,
		GL:        string(region),
		CEID:      string(region) + ":" + ceidLanguage(hl),
		WebRegion: worldwideWebRegion,
		Widened:   true,
	}
}

// ceidLanguage maps a display language to the script-qualified form Google News expects.
func ceidLanguage(hl string) string {
	switch strings.ToLower(hl) {
	case "zh-tw", "zh-hk", "zh-hant":
		return "zh-Hant"
	case "zh-cn", "zh-sg", "zh-hans", "zh":
		return "zh-Hans"
	}
	if i := strings.Index(hl, "-"); i > 0 {
		return hl[:i]
	}
	return hl
}
