package extract

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

// Row pairs an over marker with the commentary line printed next to it.
type Row struct {
	Position string
	Text     string
}

// RowStrategy is one way of reading commentary rows off a page.
type RowStrategy struct {
	Name string
	Find func(doc *Document) []Row
}

// CommentaryExtractor runs its strategies in order and keeps the first one
// that yields any rows.
type CommentaryExtractor struct {
	Strategies []RowStrategy
}

// NewCommentaryExtractor returns an extractor with the default cascade.
func NewCommentaryExtractor() *CommentaryExtractor {
	return &CommentaryExtractor{Strategies: DefaultRowStrategies()}
}

// Extract returns rows in page order. An empty result is not an error.
func (e *CommentaryExtractor) Extract(doc *Document) []Row {
	rows, _ := e.ExtractWith(doc)
	return rows
}

// ExtractWith is Extract that also names the strategy that matched.
func (e *CommentaryExtractor) ExtractWith(doc *Document) ([]Row, string) {
	for _, s := range e.Strategies {
		if rows := s.Find(doc); len(rows) > 0 {
			return rows, s.Name
		}
	}
	return nil, ""
}

// DefaultRowStrategies reads the cricbuzz commentary block by its exact
// class names first, then by class membership, and finally falls back to
// "<over> <text>" lines in the rendered page.
func DefaultRowStrategies() []RowStrategy {
	return []RowStrategy{
		{Name: "exact-classes", Find: func(doc *Document) []Row {
			return pairedRows(doc.Find("div").FilterFunction(hasExactClass("cb-col cb-col-100")),
				func(s *goquery.Selection) *goquery.Selection {
					return s.Find("div").FilterFunction(hasExactClass("cb-col cb-col-8 text-bold"))
				},
				func(s *goquery.Selection) *goquery.Selection {
					return s.Find("div").FilterFunction(hasExactClass("cb-mat-mnu-wrp cb-ovr-num")).First()
				})
		}},
		{Name: "class-members", Find: func(doc *Document) []Row {
			return pairedRows(doc.Find("div.cb-col.cb-col-100"),
				func(s *goquery.Selection) *goquery.Selection {
					return s.Find("div.cb-col.cb-col-8.text-bold")
				},
				func(s *goquery.Selection) *goquery.Selection {
					return s.Find("div.cb-ovr-num").First()
				})
		}},
		{Name: "text-lines", Find: func(doc *Document) []Row {
			return textRows(doc.Text())
		}},
	}
}

// pairedRows zips over cells with commentary paragraphs inside each section.
// Cells without an over number are skipped, keeping their partner paragraph
// consumed.
func pairedRows(
	sections *goquery.Selection,
	overCells func(*goquery.Selection) *goquery.Selection,
	overNumber func(*goquery.Selection) *goquery.Selection,
) []Row {
	var rows []Row
	sections.Each(func(_ int, section *goquery.Selection) {
		overs := overCells(section)
		lines := section.Find("p.cb-com-ln")
		n := min(overs.Length(), lines.Length())
		for i := 0; i < n; i++ {
			num := overNumber(overs.Eq(i))
			if num.Length() == 0 {
				continue
			}
			rows = append(rows, Row{
				Position: cleanText(num.Text()),
				Text:     cleanText(lines.Eq(i).Text()),
			})
		}
	})
	return rows
}

var commentaryLine = regexp.MustCompile(`(?m)^[ \t]*(\d{1,3}\.\d)[ \t]+(\S[^\r\n]*?)[ \t]*$`)

func textRows(text string) []Row {
	var rows []Row
	for _, m := range commentaryLine.FindAllStringSubmatch(text, -1) {
		rows = append(rows, Row{Position: m[1], Text: cleanText(m[2])})
	}
	return rows
}
