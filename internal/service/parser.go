package service

import (
	"bytes"
	"encoding/xml"
	"errors"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/charset"
)

// Batch holds the records extracted from a list document together with
// the records that had to be skipped
type Batch[T any] struct {
	Records []T
	Skipped []*ParseError
}

func (b *Batch[T]) skip(err *ParseError) {
	b.Skipped = append(b.Skipped, err)
}

// Parser extracts typed records from Althingi XML documents
type Parser struct {
	strip *bluemonday.Policy
}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{strip: bluemonday.StrictPolicy()}
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	mnrRe        = regexp.MustCompile(`mnr=(\d+)`)
	numerRe      = regexp.MustCompile(`numer=(\d+)`)
)

var errEmptyDocument = errors.New("empty document")

func newDecoder(body []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(body))
	d.CharsetReader = charset.NewReaderLabel
	d.Entity = xml.HTMLEntity
	return d
}

// eachElement calls fn for every element named local, at any depth. fn is
// expected to consume the element with DecodeElement.
func eachElement(doc string, body []byte, local string, fn func(d *xml.Decoder, start xml.StartElement) error) error {
	d := newDecoder(body)
	sawRoot := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			if !sawRoot {
				return &ParseError{Doc: doc, Err: errEmptyDocument}
			}
			return nil
		}
		if err != nil {
			return &ParseError{Doc: doc, Err: err}
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if se.Name.Local != local {
			continue
		}
		if err := fn(d, se); err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				return err
			}
			return &ParseError{Doc: doc, Err: err}
		}
	}
}

// firstElement decodes the first element named local into v. It reports
// false when no such element exists.
func firstElement(doc string, body []byte, local string, v any) (bool, error) {
	found := false
	errStop := errors.New("stop")
	err := eachElement(doc, body, local, func(d *xml.Decoder, se xml.StartElement) error {
		if err := d.DecodeElement(v, &se); err != nil {
			return err
		}
		found = true
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return false, err
	}
	return found, nil
}

// allText returns the concatenated character data of a document
func allText(doc string, body []byte) (string, error) {
	d := newDecoder(body)
	var b strings.Builder
	sawRoot := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", &ParseError{Doc: doc, Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
		case xml.CharData:
			b.Write(t)
			b.WriteByte(' ')
		}
	}
	if !sawRoot {
		return "", &ParseError{Doc: doc, Err: errEmptyDocument}
	}
	return b.String(), nil
}

// CleanText collapses whitespace. Entities are already decoded by the
// XML decoder.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// stripHTML removes markup and returns clean text. The sanitizer escapes
// its output, which is decoded once here.
func (p *Parser) stripHTML(s string) string {
	return CleanText(html.UnescapeString(p.strip.Sanitize(s)))
}

// ParseDate accepts DD.MM.YYYY and YYYY-MM-DD, ignoring any trailing time
// part separated by a space. It returns nil for anything else.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range []string{"02.01.2006", "2006-01-02", "2.1.2006"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// ParseTimestamp accepts ISO-8601 timestamps with a T separator, with or
// without a zone, and the "YYYY-MM-DD HH:MM" form used by some documents.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = CleanText(v); v != "" {
			return v
		}
	}
	return ""
}
