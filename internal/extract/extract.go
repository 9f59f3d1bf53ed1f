// SPDX-License-Identifier: MIT

// Package extract pulls an HH:MM entrance time out of a rendered report
// body. Report servers answer with whatever the report designer configured:
// structured XML, an HTML viewer page, or CSV/plain text. The extraction is
// a single ordered pipeline over all three kinds instead of one parser per
// kind: semantically named XML fields are preferred, then the flattened
// document text, then the raw body.
package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mleitner/leavetray/internal/timeutil"
)

// Kind classifies the declared content of a report response.
type Kind int

const (
	// KindText is the default for anything not recognisably XML or HTML.
	KindText Kind = iota
	// KindXML marks structured report output.
	KindXML
	// KindHTML marks a rendered report viewer page.
	KindHTML
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindXML:
		return "xml"
	case KindHTML:
		return "html"
	default:
		return "text"
	}
}

// KindForContentType maps a Content-Type header value onto a Kind.
func KindForContentType(ct string) Kind {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "xml"):
		return KindXML
	case strings.Contains(ct, "html"):
		return KindHTML
	default:
		return KindText
	}
}

// Source identifies which pipeline stage produced a match.
type Source string

const (
	// SourceTag means a recognised XML element name carried the value.
	SourceTag Source = "tag"
	// SourceXMLText means the flattened XML character data was scanned.
	SourceXMLText Source = "xml-text"
	// SourceRawText means the raw response body was scanned.
	SourceRawText Source = "raw-text"
)

// Match is a successfully extracted entrance time.
type Match struct {
	// Time is the canonical zero-padded HH:MM value.
	Time string
	// Source names the pipeline stage that matched.
	Source Source
	// Raw preserves the matched substring for diagnostics.
	Raw string
}

var (
	// ErrNoTime reports a body with no recognisable time value.
	ErrNoTime = errors.New("extract: no time value found")
	// ErrOutOfRange reports a candidate like "99:99" whose fields fall
	// outside the 24-hour clock.
	ErrOutOfRange = errors.New("extract: time value out of range")
)

// timeTags are the element names that carry an entrance time, highest
// priority first. The first listed name present anywhere in the document
// wins; within one name the first occurrence in document order wins.
var timeTags = []string{"EntranceTime", "StartTime", "CheckInTime", "ArrivalTime", "TimeIn"}

// timePattern matches 1-2 digits, a colon, and exactly two digits. It will
// happily match unrelated numeric substrings such as a "12:34" report ID;
// the upstream reports give no way to disambiguate, so the first match
// wins and the weakness is accepted.
var timePattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

// Extract runs the pipeline for the declared content kind.
//
// For XML the recognised tag names are tried first; a tag whose content
// does not validate falls through to the next name. With no tag match the
// flattened character data is scanned for the first time-like substring.
// HTML and plain text skip the tag search and scan the raw body directly.
func Extract(body []byte, kind Kind) (Match, error) {
	if kind == KindXML {
		return extractXML(body)
	}
	return scanRaw(body, SourceRawText)
}

func extractXML(body []byte) (Match, error) {
	tagText := make(map[string]string, len(timeTags))
	wanted := make(map[string]string, len(timeTags))
	for _, tag := range timeTags {
		wanted[strings.ToLower(tag)] = tag
	}

	var flat strings.Builder
	var open []string // lowercased element name stack

	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			// Malformed markup past this point: work with what was
			// collected so far.
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			open = append(open, strings.ToLower(t.Name.Local))
		case xml.EndElement:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		case xml.CharData:
			text := string(t)
			flat.WriteString(text)
			if len(open) == 0 {
				continue
			}
			if canonical, ok := wanted[open[len(open)-1]]; ok {
				if _, seen := tagText[canonical]; !seen && strings.TrimSpace(text) != "" {
					tagText[canonical] = strings.TrimSpace(text)
				}
			}
		}
	}

	for _, tag := range timeTags {
		text, ok := tagText[tag]
		if !ok {
			continue
		}
		if m, err := validate(text, SourceTag); err == nil {
			return m, nil
		}
		// Not a usable time in this field; try the next name.
	}

	if flat.Len() > 0 {
		return scanRaw([]byte(flat.String()), SourceXMLText)
	}
	return scanRaw(body, SourceRawText)
}

// scanRaw finds the first time-like substring in the body and validates it.
func scanRaw(body []byte, src Source) (Match, error) {
	raw := timePattern.Find(body)
	if raw == nil {
		return Match{}, ErrNoTime
	}
	return validate(string(raw), src)
}

// validate extracts the HH:MM portion of a candidate string, checks the
// 24-hour range, and renders the canonical zero-padded form.
func validate(candidate string, src Source) (Match, error) {
	raw := timePattern.FindString(candidate)
	if raw == "" {
		return Match{}, ErrNoTime
	}
	parts := strings.SplitN(raw, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return Match{}, ErrNoTime
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return Match{}, ErrNoTime
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Match{}, fmt.Errorf("%w: %q", ErrOutOfRange, raw)
	}
	return Match{
		Time:   timeutil.Clock{Hour: hour, Minute: minute}.String(),
		Source: src,
		Raw:    raw,
	}, nil
}
