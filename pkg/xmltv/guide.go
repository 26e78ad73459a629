// Package xmltv provides streaming XMLTV guide parsing.
//
// The parser is line-oriented and single-pass: it never buffers the whole
// document, which matters because public XMLTV feeds routinely reach hundreds
// of megabytes. Programme timestamps are carried through as the raw XMLTV
// strings; interpreting them is left to consumers.
package xmltv

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"regexp"
	"strings"

	"github.com/ulikunitz/xz"
)

// Programme is a single guide entry for a channel.
type Programme struct {
	// Start is the raw XMLTV start timestamp, e.g. "20240101120000 +0000".
	Start string `json:"start"`

	// End is the raw XMLTV stop timestamp.
	End string `json:"end"`

	// Title is the programme title text.
	Title string `json:"title"`
}

// Guide maps a tvg-id to its programmes in document order.
// Entries are neither de-duplicated nor sorted; consumers must tolerate
// overlapping or out-of-order programmes.
type Guide map[string][]Programme

// Attribute and tag extraction patterns. Attribute order within the
// <programme> element varies between feed generators, so each attribute is
// scanned independently.
var (
	channelAttrRegex = regexp.MustCompile(`channel="([^"]*)"`)
	startAttrRegex   = regexp.MustCompile(`start="([^"]*)"`)
	stopAttrRegex    = regexp.MustCompile(`stop="([^"]*)"`)

	// Matches the title inner text even when the tag carries attributes,
	// e.g. <title lang="zh">News</title>.
	titleTextRegex = regexp.MustCompile(`<title[^>]*>(.*?)</title>`)
)

// readChunkSize is the per-read buffer for streaming parses.
const readChunkSize = 32 * 1024

// ParseGuide parses an XMLTV document from r, keeping only programmes whose
// channel id is in tvgIDs. It is best-effort: read errors terminate the scan
// and whatever accumulated so far is returned. The result is never nil.
func ParseGuide(r io.Reader, tvgIDs []string) Guide {
	interest := make(map[string]struct{}, len(tvgIDs))
	for _, id := range tvgIDs {
		if id != "" {
			interest[id] = struct{}{}
		}
	}

	s := &guideScanner{
		guide:    make(Guide),
		interest: interest,
	}

	// Rolling buffer: split completed lines on newlines, retain the trailing
	// partial line across reads so chunk boundaries never corrupt a line.
	buf := make([]byte, readChunkSize)
	var carry string
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := carry + string(buf[:n])
			lines := strings.Split(data, "\n")
			carry = lines[len(lines)-1]
			for _, line := range lines[:len(lines)-1] {
				s.processLine(line)
			}
		}
		if err != nil {
			break
		}
	}
	if carry != "" {
		s.processLine(carry)
	}

	return s.guide
}

// ParseGuideCompressed parses a potentially compressed XMLTV document.
// Compression is auto-detected from magic bytes (gzip, bzip2, xz); anything
// else is treated as plain text.
func ParseGuideCompressed(r io.Reader, tvgIDs []string) Guide {
	br := bufio.NewReader(r)

	header, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return make(Guide)
	}

	var reader io.Reader = br
	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return make(Guide)
		}
		defer gzr.Close()
		reader = gzr

	case len(header) >= 3 && header[0] == 'B' && header[1] == 'Z' && header[2] == 'h':
		reader = bzip2.NewReader(br)

	case len(header) >= 6 && header[0] == 0xfd && header[1] == '7' && header[2] == 'z' &&
		header[3] == 'X' && header[4] == 'Z' && header[5] == 0x00:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return make(Guide)
		}
		reader = xzr
	}

	return ParseGuide(reader, tvgIDs)
}

// guideScanner holds the per-line state machine.
// One programme is open at a time; a <title> match finalizes it, and a
// closing </programme> resets state unconditionally so titleless or
// malformed entries cannot leak into the next element.
type guideScanner struct {
	guide    Guide
	interest map[string]struct{}

	currentID string
	open      *Programme
	skip      bool
}

func (s *guideScanner) processLine(line string) {
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, "<programme"):
		channel := firstSubmatch(channelAttrRegex, line)
		start := firstSubmatch(startAttrRegex, line)
		stop := firstSubmatch(stopAttrRegex, line)
		if channel == "" || start == "" || stop == "" {
			return
		}
		s.currentID = channel
		s.open = &Programme{Start: start, End: stop}
		// Skip title parsing and storage for channels nobody asked about.
		_, wanted := s.interest[channel]
		s.skip = !wanted
		// Compact feeds put the title and close tag on the same line as the
		// element open.
		s.emitTitle(line)
		if strings.Contains(line, "</programme>") {
			s.reset()
		}

	case strings.HasPrefix(line, "<title"):
		s.emitTitle(line)
		if strings.Contains(line, "</programme>") {
			s.reset()
		}

	case strings.Contains(line, "</programme>"):
		s.reset()
	}
}

// emitTitle finalizes the open programme when line carries a complete title
// element. No-op while no programme is open or the channel is filtered.
func (s *guideScanner) emitTitle(line string) {
	if s.open == nil || s.skip {
		return
	}
	m := titleTextRegex.FindStringSubmatch(line)
	if m == nil {
		return
	}
	s.open.Title = m[1]
	s.guide[s.currentID] = append(s.guide[s.currentID], *s.open)
	s.open = nil
}

func (s *guideScanner) reset() {
	s.currentID = ""
	s.open = nil
	s.skip = false
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}
