// Package extract pulls the score line and commentary rows out of a live
// score page. Both extractors run an ordered list of strategies and take the
// first one that produces something, so a markup change on the site costs
// one strategy instead of the whole cycle.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is one fetched page: the raw body plus its parsed tree.
type Document struct {
	raw  string
	tree *goquery.Document
}

// Parse builds a Document from a response body.
func Parse(raw string) (*Document, error) {
	tree, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Document{raw: raw, tree: tree}, nil
}

// Raw returns the unparsed body.
func (d *Document) Raw() string {
	return d.raw
}

// Find runs a CSS selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.tree.Find(selector)
}

// Text is the rendered text of the whole document.
func (d *Document) Text() string {
	return d.tree.Text()
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// cleanText trims s and folds whitespace runs into single spaces.
func cleanText(s string) string {
	return innerWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// hasExactClass matches the class attribute as a whole string, the way the
// site's own markup spells it, rather than as a set of classes.
func hasExactClass(class string) func(int, *goquery.Selection) bool {
	return func(_ int, s *goquery.Selection) bool {
		got, ok := s.Attr("class")
		return ok && cleanText(got) == class
	}
}
