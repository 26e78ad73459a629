package m3u

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	dbzip2 "github.com/dsnet/compress/bzip2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const samplePlaylist = `#EXTM3U x-tvg-url="https://example.com/epg.xml"
#EXTINF:-1 tvg-id="cctv1" tvg-name="CCTV-1" tvg-logo="https://example.com/cctv1.png" group-title="央视",CCTV-1 综合
http://cdn.example.com/cctv1/index.m3u8
#EXTINF:-1 tvg-id="cctv5" group-title="央视",CCTV-5 体育 1080P
http://cdn.example.com/cctv5/index.m3u8
#EXTINF:-1,Local News
http://cdn.example.com/news/stream_4k.m3u8
`

func TestParsePlaylist(t *testing.T) {
	pl := Parse("src", samplePlaylist)

	require.Len(t, pl.Channels, 3)
	assert.Equal(t, "https://example.com/epg.xml", pl.TvgURL)

	first := pl.Channels[0]
	assert.Equal(t, "src-0", first.ID)
	assert.Equal(t, "cctv1", first.TvgID)
	assert.Equal(t, "CCTV-1 综合", first.Name)
	assert.Equal(t, "https://example.com/cctv1.png", first.Logo)
	assert.Equal(t, "央视", first.Group)
	assert.Equal(t, "http://cdn.example.com/cctv1/index.m3u8", first.URL)
	assert.Empty(t, first.Resolution)

	second := pl.Channels[1]
	assert.Equal(t, "src-1", second.ID)
	assert.Equal(t, "1080P", second.Resolution)

	third := pl.Channels[2]
	assert.Equal(t, "src-2", third.ID)
	assert.Equal(t, "Local News", third.Name)
	assert.Equal(t, UngroupedLabel, third.Group)
	assert.Equal(t, "4K", third.Resolution)
}

func TestParseDeterministic(t *testing.T) {
	a := Parse("src", samplePlaylist)
	b := Parse("src", samplePlaylist)
	assert.Equal(t, a, b)
}

func TestParseDropRules(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{
			name: "extinf followed by comment is dropped",
			content: "#EXTM3U\n" +
				"#EXTINF:-1,Channel A\n" +
				"#EXTINF:-1,Channel B\n" +
				"http://example.com/b.m3u8\n",
			want: 1,
		},
		{
			name:    "extinf at end of document is dropped",
			content: "#EXTM3U\n#EXTINF:-1,Channel A\n",
			want:    0,
		},
		{
			name: "missing name and tvg-name is dropped",
			content: "#EXTM3U\n" +
				"#EXTINF:-1 tvg-id=\"x\",\n" +
				"http://example.com/x.m3u8\n",
			want: 0,
		},
		{
			name: "tvg-name fallback keeps the entry",
			content: "#EXTM3U\n" +
				"#EXTINF:-1 tvg-name=\"Fallback\",\n" +
				"http://example.com/x.m3u8\n",
			want: 1,
		},
		{
			name:    "url without extinf is ignored",
			content: "#EXTM3U\nhttp://example.com/orphan.m3u8\n",
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl := Parse("src", tt.content)
			assert.Len(t, pl.Channels, tt.want)
		})
	}
}

func TestParseTvgNameFallback(t *testing.T) {
	pl := Parse("src", "#EXTINF:-1 tvg-name=\"CCTV-2\",\nhttp://example.com/cctv2.m3u8\n")
	require.Len(t, pl.Channels, 1)
	assert.Equal(t, "CCTV-2", pl.Channels[0].Name)
}

func TestParseHeaderVariants(t *testing.T) {
	t.Run("url-tvg attribute", func(t *testing.T) {
		pl := Parse("src", `#EXTM3U url-tvg="https://example.com/guide.xml"`)
		assert.Equal(t, "https://example.com/guide.xml", pl.TvgURL)
	})

	t.Run("comma separated list takes the first", func(t *testing.T) {
		pl := Parse("src", `#EXTM3U x-tvg-url="https://a.example/epg.xml,https://b.example/epg.xml"`)
		assert.Equal(t, "https://a.example/epg.xml", pl.TvgURL)
	})

	t.Run("second header is ignored", func(t *testing.T) {
		content := "#EXTM3U x-tvg-url=\"https://first.example/epg.xml\"\n" +
			"#EXTM3U x-tvg-url=\"https://second.example/epg.xml\"\n"
		pl := Parse("src", content)
		assert.Equal(t, "https://first.example/epg.xml", pl.TvgURL)
	})

	t.Run("no header", func(t *testing.T) {
		pl := Parse("src", "#EXTINF:-1,A\nhttp://example.com/a.m3u8\n")
		assert.Empty(t, pl.TvgURL)
		assert.Len(t, pl.Channels, 1)
	})
}

func TestParseCRLFAndBlankLines(t *testing.T) {
	content := "#EXTM3U\r\n\r\n#EXTINF:-1,Channel A\r\nhttp://example.com/a.m3u8\r\n\r\n"
	pl := Parse("src", content)
	require.Len(t, pl.Channels, 1)
	assert.Equal(t, "http://example.com/a.m3u8", pl.Channels[0].URL)
}

func TestDetectResolution(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"CCTV-1 1080P", "http://example.com/1.m3u8", "1080P"},
		{"Movies UHD", "http://example.com/2.m3u8", "UHD"},
		{"Sports hd", "http://example.com/3.m3u8", "HD"},
		{"News", "http://example.com/stream_4k.m3u8", "4K"},
		{"News", "http://example.com/720p/index.m3u8", "720P"},
		{"Plain", "http://example.com/live/ch5.m3u8", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name+" "+tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, detectResolution(tt.name, tt.url))
		})
	}
}

func TestParseCompressed(t *testing.T) {
	p := &Parser{}

	t.Run("plain", func(t *testing.T) {
		pl, err := p.ParseCompressed("src", strings.NewReader(samplePlaylist))
		require.NoError(t, err)
		assert.Len(t, pl.Channels, 3)
	})

	t.Run("gzip", func(t *testing.T) {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		_, err := gw.Write([]byte(samplePlaylist))
		require.NoError(t, err)
		require.NoError(t, gw.Close())

		pl, err := p.ParseCompressed("src", &buf)
		require.NoError(t, err)
		assert.Len(t, pl.Channels, 3)
	})

	t.Run("bzip2", func(t *testing.T) {
		var buf bytes.Buffer
		bw, err := dbzip2.NewWriter(&buf, nil)
		require.NoError(t, err)
		_, err = bw.Write([]byte(samplePlaylist))
		require.NoError(t, err)
		require.NoError(t, bw.Close())

		pl, err := p.ParseCompressed("src", &buf)
		require.NoError(t, err)
		assert.Len(t, pl.Channels, 3)
	})

	t.Run("xz", func(t *testing.T) {
		var buf bytes.Buffer
		xw, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		_, err = xw.Write([]byte(samplePlaylist))
		require.NoError(t, err)
		require.NoError(t, xw.Close())

		pl, err := p.ParseCompressed("src", &buf)
		require.NoError(t, err)
		assert.Len(t, pl.Channels, 3)
	})
}

func TestParserUngroupedLabelOverride(t *testing.T) {
	p := &Parser{UngroupedLabel: "Other"}
	pl := p.Parse("src", "#EXTINF:-1,A\nhttp://example.com/a.m3u8\n")
	require.Len(t, pl.Channels, 1)
	assert.Equal(t, "Other", pl.Channels[0].Group)
}
