package search

import (
	"fmt"
	"strings"
	"time"
)

// RecordType tags the origin of a ResultRecord.
type RecordType string

const (
	TypeNews      RecordType = "news"
	TypeForum     RecordType = "forum"
	TypeReddit    RecordType = "reddit"
	TypePinterest RecordType = "pinterest"
	TypeShopping  RecordType = "shopping"
	TypeWeb       RecordType = "web"
)

// Region is a target market.
type Region string

const (
	RegionUS Region = "US"
	RegionCA Region = "CA"
	RegionHK Region = "HK"
)

// AllRegions lists every supported region in display order.
func AllRegions() []Region {
	return []Region{RegionUS, RegionCA, RegionHK}
}

// ParseRegion accepts the region code in any case.
func ParseRegion(s string) (Region, error) {
	switch Region(strings.ToUpper(strings.TrimSpace(s))) {
	case RegionUS:
		return RegionUS, nil
	case RegionCA:
		return RegionCA, nil
	case RegionHK:
		return RegionHK, nil
	}
	return "", fmt.Errorf("unknown region %q", s)
}

// NorthAmerica reports whether the region is US or CA.
func (r Region) NorthAmerica() bool {
	return r == RegionUS || r == RegionCA
}

// Platform is a source category. forum, pinboard and shopping are "locked"
// niches that pin the web search to one platform or intent.
type Platform string

const (
	PlatformNews     Platform = "news"
	PlatformWeb      Platform = "web"
	PlatformForum    Platform = "forum"
	PlatformPinboard Platform = "pinboard"
	PlatformShopping Platform = "shopping"
)

// AllPlatforms lists every category in registration priority order.
func AllPlatforms() []Platform {
	return []Platform{PlatformNews, PlatformWeb, PlatformForum, PlatformPinboard, PlatformShopping}
}

// ParsePlatform accepts the category name and the common aliases used by the dashboard.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "news":
		return PlatformNews, nil
	case "web":
		return PlatformWeb, nil
	case "forum", "reddit", "forum-lock":
		return PlatformForum, nil
	case "pinboard", "pinterest", "pinboard-lock":
		return PlatformPinboard, nil
	case "shopping", "commerce":
		return PlatformShopping, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Locked reports whether the platform appends a fixed qualifier to the query.
func (p Platform) Locked() bool {
	return p == PlatformForum || p == PlatformPinboard || p == PlatformShopping
}

// RecordType is the type stamped on records produced for this category.
// The web category classifies per link instead, so it returns TypeWeb as a default.
func (p Platform) RecordType() RecordType {
	switch p {
	case PlatformNews:
		return TypeNews
	case PlatformForum:
		return TypeReddit
	case PlatformPinboard:
		return TypePinterest
	case PlatformShopping:
		return TypeShopping
	default:
		return TypeWeb
	}
}

// Supports reports whether the category returns meaningful results for the window.
// News feeds do not index history beyond a month; pin boards carry no reliable
// timestamps below a month.
func (p Platform) Supports(w TimeWindow) bool {
	switch p {
	case PlatformNews:
		return w != WindowYear
	case PlatformPinboard:
		return w == WindowMonth || w == WindowYear || w == WindowAll
	default:
		return true
	}
}

// TimeWindow is a recency constraint on a search.
type TimeWindow string

const (
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowYear  TimeWindow = "year"
	WindowAll   TimeWindow = "all"
)

// AllTimeWindows lists every window from narrowest to unbounded.
func AllTimeWindows() []TimeWindow {
	return []TimeWindow{WindowDay, WindowWeek, WindowMonth, WindowYear, WindowAll}
}

// ParseTimeWindow accepts "day", "past-day", "d" and friends. Empty means unbounded.
func ParseTimeWindow(s string) (TimeWindow, error) {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "past-")
	switch v {
	case "d", "day", "24h":
		return WindowDay, nil
	case "w", "week", "7d":
		return WindowWeek, nil
	case "m", "month", "30d":
		return WindowMonth, nil
	case "y", "year":
		return WindowYear, nil
	case "", "all", "none", "any":
		return WindowAll, nil
	}
	return "", fmt.Errorf("unknown time window %q", s)
}

// Duration is the look-back span of the window; zero for unbounded.
func (w TimeWindow) Duration() time.Duration {
	switch w {
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	case WindowYear:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// Locale carries the provider-specific locale parameters chosen by the query builder.
type Locale struct {
	HL        string `json:"hl"`
	GL        string `json:"gl"`
	CEID      string `json:"ceid"`
	WebRegion string `json:"web_region"`
	Widened   bool   `json:"widened"`
}
