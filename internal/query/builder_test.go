package query_test

import (
	"strings"
	"testing"

	"github.com/amityadav/marketwatch/internal/query"
	"github.com/amityadav/marketwatch/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_EmptyKeyword(t *testing.T) {
	_, err := query.Build("   ", search.RegionUS, search.PlatformWeb, "")
	require.ErrorIs(t, err, query.ErrEmptyKeyword)
}

func TestBuild_CJKInNorthAmericaWidens(t *testing.T) {
	for _, region := range []search.Region{search.RegionUS, search.RegionCA} {
		for _, platform := range []search.Platform{search.PlatformNews, search.PlatformWeb} {
			q, err := query.Build("美的 洗碗機", region, platform, "")
			require.NoError(t, err)

			assert.True(t, q.Widened(), "%s/%s", region, platform)
			assert.True(t, strings.HasPrefix(q.Text, "美的 洗碗機 ("), q.Text)
			assert.Contains(t, q.Text, `"North America"`)
			assert.Contains(t, q.Text, " OR ")
		}
	}
}

func TestBuild_PlainKeywordUnchanged(t *testing.T) {
	cases := []struct {
		keyword string
		region  search.Region
	}{
		{"GE Profile range", search.RegionUS},
		{"Whirlpool recall", search.RegionCA},
		{"美的 洗碗機", search.RegionHK},
		{"Samsung oven", search.RegionHK},
	}
	for _, tc := range cases {
		for _, platform := range []search.Platform{search.PlatformNews, search.PlatformWeb} {
			q, err := query.Build(tc.keyword, tc.region, platform, "")
			require.NoError(t, err)
			assert.Equal(t, tc.keyword, q.Text)
			assert.False(t, q.Widened())
		}
	}
}

func TestBuild_PlatformLockQualifierExactlyOnce(t *testing.T) {
	cases := map[search.Platform]string{
		search.PlatformForum:    "site:reddit.com",
		search.PlatformPinboard: "site:pinterest.com",
	}
	for platform, qualifier := range cases {
		for _, region := range search.AllRegions() {
			for _, kw := range []string{"air fryer", "氣炸鍋", "air fryer " + qualifier, "air fryer " + strings.ToUpper(qualifier)} {
				q, err := query.Build(kw, region, platform, "")
				require.NoError(t, err)
				assert.Equal(t, 1, strings.Count(q.Text, qualifier), q.Text)
				assert.Equal(t, 1, strings.Count(strings.ToLower(q.Text), qualifier), q.Text)
				assert.NotContains(t, q.Text, `"North America"`)
			}
		}
	}
}

func TestBuild_UppercaseQualifierIsCanonicalised(t *testing.T) {
	q, err := query.Build("SITE:REDDIT.COM dishwasher", search.RegionUS, search.PlatformForum, "")
	require.NoError(t, err)
	assert.Equal(t, "dishwasher site:reddit.com", q.Text)
}

func TestBuild_ShoppingAppendsPurchaseIntent(t *testing.T) {
	q, err := query.Build("induction cooktop", search.RegionUS, search.PlatformShopping, "")
	require.NoError(t, err)
	assert.Equal(t, "induction cooktop (buy OR price OR deal OR review)", q.Text)
}

func TestBuild_NewsLocaleVariants(t *testing.T) {
	q, err := query.Build("電磁爐", search.RegionCA, search.PlatformNews, "zh-CN")
	require.NoError(t, err)

	require.Len(t, q.Locales, 3)
	assert.Equal(t, search.Locale{HL: "zh-CN", GL: "CA", CEID: "CA:zh-Hans", WebRegion: "wt-wt", Widened: true}, q.Locales[0])
	assert.Equal(t, "CA:en", q.Locales[1].CEID)
	assert.Equal(t, "CA:fr", q.Locales[2].CEID)

	q, err = query.Build("range hood", search.RegionUS, search.PlatformNews, "")
	require.NoError(t, err)
	require.Len(t, q.Locales, 1)
	assert.Equal(t, "US:en", q.Locales[0].CEID)
}

func TestBuild_WebRegionCodes(t *testing.T) {
	want := map[search.Region]string{
		search.RegionUS: "us-en",
		search.RegionCA: "ca-en",
		search.RegionHK: "hk-tzh",
	}
	for region, code := range want {
		q, err := query.Build("dishwasher", region, search.PlatformWeb, "")
		require.NoError(t, err)
		require.Len(t, q.Locales, 1)
		assert.Equal(t, code, q.Locales[0].WebRegion)
	}

	q, err := query.Build("洗碗機", search.RegionUS, search.PlatformWeb, "")
	require.NoError(t, err)
	assert.Equal(t, "wt-wt", q.Locales[0].WebRegion)
}

// Every region × platform combination must build without error.
func TestBuild_CombinationTable(t *testing.T) {
	for _, region := range search.AllRegions() {
		for _, platform := range search.AllPlatforms() {
			q, err := query.Build("fridge", region, platform, "")
			require.NoError(t, err, "%s/%s", region, platform)
			assert.NotEmpty(t, q.Locales, "%s/%s", region, platform)
			assert.NotEmpty(t, q.Text)
		}
	}
}

func TestContainsCJK(t *testing.T) {
	assert.True(t, query.ContainsCJK("LG 冷蔵庫"))
	assert.True(t, query.ContainsCJK("삼성"))
	assert.False(t, query.ContainsCJK("Bosch 800 Series"))
	assert.False(t, query.ContainsCJK("Électroménager"))
}
