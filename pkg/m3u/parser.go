// Package m3u provides M3U playlist parsing for live channel ingestion.
// It understands extended M3U (#EXTM3U / #EXTINF) with tvg-* attributes and
// tolerates arbitrary line endings, stray whitespace, and malformed entries.
package m3u

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ulikunitz/xz"
)

// UngroupedLabel is the group assigned to channels without a group-title.
const UngroupedLabel = "无分组"

// Channel is a single parsed playlist entry.
type Channel struct {
	// ID is "{sourceKey}-{ordinal}", unique and monotonically increasing
	// within one parse pass.
	ID string

	// TvgID is the EPG channel identifier. Empty when absent.
	TvgID string

	// Name is the EXTINF trailing title, falling back to tvg-name.
	Name string

	// Logo is the channel logo URL from tvg-logo.
	Logo string

	// Group is the group-title value, or the ungrouped label when absent.
	Group string

	// URL is the stream URI, verbatim. No resolution or rewriting happens
	// at parse time.
	URL string

	// Resolution is the quality token matched in the name or URL,
	// uppercased ("1080P", "4K", ...). Empty when nothing matched.
	Resolution string
}

// Playlist is the result of parsing one M3U document.
type Playlist struct {
	// TvgURL is the guide URL discovered on the #EXTM3U header via the
	// x-tvg-url or url-tvg attribute. Empty when absent.
	TvgURL string

	// Channels are the parsed entries in playlist order.
	Channels []Channel
}

// Attribute extraction patterns. Each attribute is scanned independently so
// ordering and presence variance between playlist generators doesn't matter.
var (
	tvgURLRegex     = regexp.MustCompile(`(?:x-tvg-url|url-tvg)="([^"]*)"`)
	tvgIDRegex      = regexp.MustCompile(`tvg-id="([^"]*)"`)
	tvgNameRegex    = regexp.MustCompile(`tvg-name="([^"]*)"`)
	tvgLogoRegex    = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	groupTitleRegex = regexp.MustCompile(`group-title="([^"]*)"`)

	// Quality token heuristic, matched against the name first and the URL
	// second. FHD/UHD come before HD so they win at the same offset.
	resolutionRegex = regexp.MustCompile(`(?i)\d{3,4}p|4k|8k|fhd|uhd|hd`)
)

// Parser parses M3U playlists. The zero value is ready to use.
type Parser struct {
	// UngroupedLabel overrides the default label for channels without a
	// group-title. Empty means UngroupedLabel.
	UngroupedLabel string
}

// Parse parses an M3U document with default options.
// It is a pure function of its inputs: the same content and sourceKey always
// yield the same channels.
func Parse(sourceKey, content string) *Playlist {
	return (&Parser{}).Parse(sourceKey, content)
}

// Parse parses an M3U document into a Playlist.
//
// An #EXTINF line only emits a channel when it is immediately followed by a
// non-comment line and both the display name and URL are non-empty; anything
// else is dropped silently. Malformed input degrades to a partial or empty
// channel list rather than an error.
func (p *Parser) Parse(sourceKey, content string) *Playlist {
	ungrouped := p.UngroupedLabel
	if ungrouped == "" {
		ungrouped = UngroupedLabel
	}

	lines := splitLines(content)
	pl := &Playlist{}
	headerSeen := false

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if strings.HasPrefix(line, "#EXTM3U") {
			// The header is scanned once; later headers are ignored.
			if !headerSeen {
				headerSeen = true
				if m := tvgURLRegex.FindStringSubmatch(line); m != nil {
					pl.TvgURL = strings.TrimSpace(strings.SplitN(m[1], ",", 2)[0])
				}
			}
			continue
		}

		if !strings.HasPrefix(line, "#EXTINF:") {
			continue
		}

		// The stream URL must be the immediately following non-comment line.
		if i+1 >= len(lines) || strings.HasPrefix(lines[i+1], "#") {
			continue
		}
		url := lines[i+1]
		i++

		name := extinfTitle(line)
		if name == "" {
			name = firstSubmatch(tvgNameRegex, line)
		}
		if name == "" || url == "" {
			continue
		}

		group := firstSubmatch(groupTitleRegex, line)
		if group == "" {
			group = ungrouped
		}

		pl.Channels = append(pl.Channels, Channel{
			ID:         fmt.Sprintf("%s-%d", sourceKey, len(pl.Channels)),
			TvgID:      firstSubmatch(tvgIDRegex, line),
			Name:       name,
			Logo:       firstSubmatch(tvgLogoRegex, line),
			Group:      group,
			URL:        url,
			Resolution: detectResolution(name, url),
		})
	}

	return pl
}

// ParseReader reads the full document from r and parses it.
func (p *Parser) ParseReader(sourceKey string, r io.Reader) (*Playlist, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	return p.Parse(sourceKey, string(data)), nil
}

// ParseCompressed parses a potentially compressed M3U document.
// Compression is auto-detected from magic bytes (gzip, bzip2, xz); anything
// else is treated as plain text.
func (p *Parser) ParseCompressed(sourceKey string, r io.Reader) (*Playlist, error) {
	br := bufio.NewReader(r)

	header, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peeking header: %w", err)
	}

	var reader io.Reader = br
	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr

	case len(header) >= 3 && header[0] == 'B' && header[1] == 'Z' && header[2] == 'h':
		reader = bzip2.NewReader(br)

	case len(header) >= 6 && header[0] == 0xfd && header[1] == '7' && header[2] == 'z' &&
		header[3] == 'X' && header[4] == 'Z' && header[5] == 0x00:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("creating xz reader: %w", err)
		}
		reader = xzr
	}

	return p.ParseReader(sourceKey, reader)
}

// splitLines splits content into trimmed, non-empty lines.
// Handles \n, \r\n, and bare \r line endings.
func splitLines(content string) []string {
	raw := strings.FieldsFunc(content, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// extinfTitle returns the display title: the substring after the final comma
// on the EXTINF line, trimmed.
func extinfTitle(line string) string {
	idx := strings.LastIndex(line, ",")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

// detectResolution applies the quality heuristic against the name, then the
// URL. The match is uppercased; empty means no match.
func detectResolution(name, url string) string {
	if m := resolutionRegex.FindString(name); m != "" {
		return strings.ToUpper(m)
	}
	if m := resolutionRegex.FindString(url); m != "" {
		return strings.ToUpper(m)
	}
	return ""
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}
