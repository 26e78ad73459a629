package xmltv

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const sampleGuide = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
  <channel id="cctv1">
    <display-name>CCTV-1</display-name>
  </channel>
  <programme start="20240101120000 +0800" stop="20240101130000 +0800" channel="cctv1">
    <title lang="zh">新闻联播</title>
  </programme>
  <programme start="20240101130000 +0800" stop="20240101140000 +0800" channel="cctv1">
    <title>午间剧场</title>
  </programme>
  <programme start="20240101120000 +0800" stop="20240101130000 +0800" channel="cctv5">
    <title>体育新闻</title>
  </programme>
</tv>
`

func TestParseGuideFiltersByInterest(t *testing.T) {
	guide := ParseGuide(strings.NewReader(sampleGuide), []string{"cctv1"})

	require.Len(t, guide, 1)
	progs := guide["cctv1"]
	require.Len(t, progs, 2)

	assert.Equal(t, "20240101120000 +0800", progs[0].Start)
	assert.Equal(t, "20240101130000 +0800", progs[0].End)
	assert.Equal(t, "新闻联播", progs[0].Title)
	assert.Equal(t, "午间剧场", progs[1].Title)

	_, ok := guide["cctv5"]
	assert.False(t, ok)
}

func TestParseGuideEmptyInterest(t *testing.T) {
	guide := ParseGuide(strings.NewReader(sampleGuide), nil)
	assert.NotNil(t, guide)
	assert.Empty(t, guide)
}

func TestParseGuideMalformedEntries(t *testing.T) {
	doc := `<tv>
  <programme start="20240101120000 +0800" channel="cctv1">
    <title>Missing stop</title>
  </programme>
  <programme start="20240101120000 +0800" stop="20240101130000 +0800" channel="cctv1">
  </programme>
  <programme start="20240101130000 +0800" stop="20240101140000 +0800" channel="cctv1">
    <title>Valid</title>
  </programme>
</tv>
`
	guide := ParseGuide(strings.NewReader(doc), []string{"cctv1"})
	require.Len(t, guide["cctv1"], 1)
	assert.Equal(t, "Valid", guide["cctv1"][0].Title)
}

// drippingReader returns at most chunk bytes per Read so lines land across
// read boundaries.
type drippingReader struct {
	data  []byte
	chunk int
}

func (d *drippingReader) Read(p []byte) (int, error) {
	if len(d.data) == 0 {
		return 0, io.EOF
	}
	n := d.chunk
	if n > len(d.data) {
		n = len(d.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, d.data[:n])
	d.data = d.data[n:]
	return n, nil
}

func TestParseGuideChunkBoundaries(t *testing.T) {
	want := ParseGuide(strings.NewReader(sampleGuide), []string{"cctv1", "cctv5"})

	for _, chunk := range []int{1, 3, 7, 16, 64} {
		got := ParseGuide(&drippingReader{data: []byte(sampleGuide), chunk: chunk}, []string{"cctv1", "cctv5"})
		assert.Equal(t, want, got, "chunk size %d", chunk)
	}
}

func TestParseGuideNoTrailingNewline(t *testing.T) {
	doc := `<programme start="20240101120000 +0800" stop="20240101130000 +0800" channel="cctv1"><title>X</title></programme>`
	guide := ParseGuide(strings.NewReader(doc), []string{"cctv1"})
	require.Len(t, guide["cctv1"], 1)
	assert.Equal(t, "X", guide["cctv1"][0].Title)
}

func TestParseGuideCompactElements(t *testing.T) {
	doc := `<tv>
<programme start="20240101120000 +0800" stop="20240101130000 +0800" channel="cctv1"><title lang="zh">First</title></programme>
<programme start="20240101130000 +0800" stop="20240101140000 +0800" channel="other"><title>Filtered</title></programme>
<programme start="20240101140000 +0800" stop="20240101150000 +0800" channel="cctv1"><title>Second</title></programme>
</tv>
`
	guide := ParseGuide(strings.NewReader(doc), []string{"cctv1"})
	require.Len(t, guide["cctv1"], 2)
	assert.Equal(t, "First", guide["cctv1"][0].Title)
	assert.Equal(t, "Second", guide["cctv1"][1].Title)
	assert.NotContains(t, guide, "other")
}

func TestParseGuideAttributeOrder(t *testing.T) {
	doc := `<tv>
  <programme channel="cctv1" stop="20240101130000 +0800" start="20240101120000 +0800">
    <title>Reordered</title>
  </programme>
</tv>
`
	guide := ParseGuide(strings.NewReader(doc), []string{"cctv1"})
	require.Len(t, guide["cctv1"], 1)
	assert.Equal(t, "20240101120000 +0800", guide["cctv1"][0].Start)
}

func TestParseGuideCompressed(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		guide := ParseGuideCompressed(strings.NewReader(sampleGuide), []string{"cctv1"})
		assert.Len(t, guide["cctv1"], 2)
	})

	t.Run("gzip", func(t *testing.T) {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		_, err := gw.Write([]byte(sampleGuide))
		require.NoError(t, err)
		require.NoError(t, gw.Close())

		guide := ParseGuideCompressed(&buf, []string{"cctv1"})
		assert.Len(t, guide["cctv1"], 2)
	})

	t.Run("xz", func(t *testing.T) {
		var buf bytes.Buffer
		xw, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		_, err = xw.Write([]byte(sampleGuide))
		require.NoError(t, err)
		require.NoError(t, xw.Close())

		guide := ParseGuideCompressed(&buf, []string{"cctv1"})
		assert.Len(t, guide["cctv1"], 2)
	})
}
