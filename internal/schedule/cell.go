package schedule

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Segment positions inside a class cell, in line order.
const (
	segDetail = iota
	segCode
	segType
	segTimes
	segLocation
	segUnused
	segInstructor

	// CellSegments is the number of lines a class cell must carry.
	CellSegments
)

// SplitCell breaks class cell markup into its line-break separated
// segments. Inline markup is flattened to text and entities are decoded.
func SplitCell(fragment string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + fragment + "</div>"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCell, err)
	}

	var (
		segments []string
		current  strings.Builder
	)

	var walk func(s *goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, node *goquery.Selection) {
			switch goquery.NodeName(node) {
			case "br":
				segments = append(segments, cleanSegment(current.String()))
				current.Reset()
			case "#text":
				current.WriteString(node.Text())
			case "#comment":
			default:
				walk(node)
			}
		})
	}
	walk(doc.Find("body > div").First())

	return append(segments, cleanSegment(current.String())), nil
}

// cleanSegment collapses whitespace runs, non-breaking spaces included.
func cleanSegment(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cellText returns the visible text of a markup fragment.
func cellText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return cleanSegment(doc.Text())
}
