package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ScoreNotFound is returned when no strategy finds a score line.
const ScoreNotFound = "Score not found"

// ScoreStrategy is one way of finding the score line.
type ScoreStrategy struct {
	Name string
	Find func(doc *Document) (string, bool)
}

// ScoreExtractor runs its strategies in order and keeps the first hit.
type ScoreExtractor struct {
	Strategies []ScoreStrategy
}

// NewScoreExtractor returns an extractor for the batting line of team, e.g.
// "NZ 251/4 (49.2)".
func NewScoreExtractor(team string) *ScoreExtractor {
	return &ScoreExtractor{Strategies: DefaultScoreStrategies(team)}
}

// Extract returns the score line, or ScoreNotFound.
func (e *ScoreExtractor) Extract(doc *Document) string {
	score, _ := e.ExtractWith(doc)
	return score
}

// ExtractWith is Extract that also names the strategy that matched.
func (e *ScoreExtractor) ExtractWith(doc *Document) (score, strategy string) {
	for _, s := range e.Strategies {
		if v, ok := s.Find(doc); ok {
			return v, s.Name
		}
	}
	return ScoreNotFound, ""
}

// DefaultScoreStrategies is the cascade used against cricbuzz pages:
// pattern on the raw body, the score heading, the mini batting row, then the
// pattern again on rendered text for bodies where the score is escaped.
func DefaultScoreStrategies(team string) []ScoreStrategy {
	pattern := scorePattern(team)
	return []ScoreStrategy{
		{Name: "raw-pattern", Find: func(doc *Document) (string, bool) {
			return firstMatch(pattern, doc.Raw())
		}},
		{Name: "score-heading", Find: func(doc *Document) (string, bool) {
			return firstText(doc.Find("h2.cb-font-20.text-bold.inline-block.ng-binding"), func(text string) bool {
				return strings.Contains(text, team) && strings.Contains(text, "/") && strings.Contains(text, "(")
			})
		}},
		{Name: "mini-batting-row", Find: func(doc *Document) (string, bool) {
			var score string
			doc.Find("div.cb-min-bat-rw").EachWithBreak(func(_ int, row *goquery.Selection) bool {
				h2 := row.Find("h2").First()
				if h2.Length() == 0 {
					return true
				}
				if text := cleanText(h2.Text()); strings.Contains(text, team) {
					score = text
					return false
				}
				return true
			})
			return score, score != ""
		}},
		{Name: "text-pattern", Find: func(doc *Document) (string, bool) {
			return firstMatch(pattern, doc.Text())
		}},
	}
}

func scorePattern(team string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`%s\s+\d+/\d+\s+\(\d+\.?\d*\)`, regexp.QuoteMeta(team)))
}

func firstMatch(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindString(s)
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(m), true
}

func firstText(sel *goquery.Selection, keep func(string) bool) (string, bool) {
	var found string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := cleanText(s.Text()); keep(text) {
			found = text
			return false
		}
		return true
	})
	return found, found != ""
}
