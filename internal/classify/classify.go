package classify

import (
	"fmt"
	"strings"
)

// Result is the outcome category of a single delivery.
type Result int

const (
	Generic Result = iota
	Wicket
	Dot
	One
	Two
	Three
	Four
	Six
	Wide
	NoBall
	Bye
	LegBye
)

var labels = map[Result]string{
	Generic: "event",
	Wicket:  "wicket",
	Dot:     "dot",
	One:     "1 run",
	Two:     "2 runs",
	Three:   "3 runs",
	Four:    "4",
	Six:     "6",
	Wide:    "wide",
	NoBall:  "no ball",
	Bye:     "bye",
	LegBye:  "leg bye",
}

// rule maps a set of lower-case substrings to a result. Rules are tested in
// slice order and the first hit wins.
type rule struct {
	needles []string
	result  Result
}

// "bye" precedes "leg bye", so LegBye is unreachable. Kept as observed on
// the live feed; changing the order changes which alerts go out.
var rules = []rule{
	{[]string{"wicket", "out"}, Wicket},
	{[]string{"no run"}, Dot},
	{[]string{"1 run"}, One},
	{[]string{"2 run"}, Two},
	{[]string{"3 run"}, Three},
	{[]string{"four", "4 runs"}, Four},
	{[]string{"six", "6 runs"}, Six},
	{[]string{"wide"}, Wide},
	{[]string{"no ball"}, NoBall},
	{[]string{"bye"}, Bye},
	{[]string{"leg bye"}, LegBye},
}

// Classify maps free commentary text to a Result.
func Classify(text string) Result {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(lower, needle) {
				return r.result
			}
		}
	}
	return Generic
}

// Notable reports whether the result is worth admitting at all.
func (r Result) Notable() bool {
	return r != Generic
}

func (r Result) String() string {
	if l, ok := labels[r]; ok {
		return l
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// MarshalText renders the result by its label so status JSON stays readable.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a label produced by MarshalText.
func (r *Result) UnmarshalText(b []byte) error {
	s := string(b)
	for res, l := range labels {
		if l == s {
			*r = res
			return nil
		}
	}
	return fmt.Errorf("unknown result label %q", s)
}
