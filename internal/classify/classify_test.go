package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPriority(t *testing.T) {
	cases := []struct {
		text string
		want Result
	}{
		{"OUT! clean bowled", Wicket},
		{"FOUR! cracking shot", Four},
		{"1 run taken", One},
		{"just a dot ball, no run", Dot},
		{"leg bye taken", Bye},
		{"2 runs, pushed into the gap", Two},
		{"3 runs, good running", Three},
		{"SIX! into the stands", Six},
		{"6 runs over long on", Six},
		{"4 runs through cover", Four},
		{"wide down leg", Wide},
		{"no ball, free hit coming", NoBall},
		{"Drinks break", Generic},
		{"", Generic},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.text))
		})
	}
}

func TestClassifyWicketBeatsEverything(t *testing.T) {
	// "out" also matches words like "outside"; that is how the feed has
	// always been read.
	assert.Equal(t, Wicket, Classify("FOUR, outside edge past slip"))
	assert.Equal(t, Wicket, Classify("wicket! caught at six"))
}

func TestLegByeIsShadowedByBye(t *testing.T) {
	for _, text := range []string{"leg bye", "LEG BYE, off the pad", "1 leg bye"} {
		got := Classify(text)
		assert.NotEqual(t, LegBye, got, text)
	}
	assert.Equal(t, Bye, Classify("leg bye"))
}

func TestNotable(t *testing.T) {
	assert.False(t, Generic.Notable())
	assert.True(t, Dot.Notable())
	assert.True(t, Wicket.Notable())
}

func TestLabelsRoundTrip(t *testing.T) {
	assert.Equal(t, "4", Four.String())
	assert.Equal(t, "no ball", NoBall.String())
	assert.Equal(t, "Result(99)", Result(99).String())

	var r Result
	require.NoError(t, r.UnmarshalText([]byte("2 runs")))
	assert.Equal(t, Two, r)
	assert.Error(t, r.UnmarshalText([]byte("boundary")))
}
