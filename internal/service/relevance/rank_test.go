package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"call", "ato", "now"}, Tokenize("Call ATO, now!"))
	assert.Equal(t, []string{"tax", "refund"}, Tokenize("  tax-refund  "))
	assert.Empty(t, Tokenize(" ... "))
	assert.Equal(t, []string{"c++", "course"}, Tokenize("C++ course"))
	assert.Equal(t, []string{"$50", "fee"}, Tokenize("$50 fee"))
}

func TestScore_SymbolsStayInWords(t *testing.T) {
	e := ServiceEntry{ServiceName: "C++ training", Agency: "TAFE NSW"}

	// full query in name +100, word in name +20
	assert.Equal(t, 120, Score("c++", e))
}

func TestScore(t *testing.T) {
	ato := ServiceEntry{
		ServiceName: "Tax help line",
		Agency:      "Australian Taxation Office",
		Keywords:    []string{"tax", "ato"},
		Category:    "Government",
	}

	// name +100, agency +80, word in name +20, word in agency +15,
	// keyword equal +30, keyword has query +25, keyword has word +10
	assert.Equal(t, 280, Score("tax", ato))
	assert.Equal(t, 280, Score("TAX", ato))
	assert.Zero(t, Score("library", ato))
	assert.Zero(t, Score("   ", ato))

	assert.Equal(t, ScoreWordInCategory, Score("govern", ServiceEntry{Category: "Government"}))
}

func TestRank_StableAndExcludesZeroScores(t *testing.T) {
	entries := []ServiceEntry{
		{ID: "a", ServiceName: "Medicare enquiries", Agency: "Services Australia", Category: "Health"},
		{ID: "b", ServiceName: "Public library", Agency: "City Council", Category: "Community"},
		{ID: "c", ServiceName: "Medicare enquiries", Agency: "Services Australia", Category: "Health"},
		{ID: "d", ServiceName: "Medicare", Agency: "Medicare Australia", Category: "Health"},
	}

	got := Rank("medicare", entries, 10)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"d", "a", "c"}, ids(got))

	for i := 0; i < 20; i++ {
		assert.Equal(t, []string{"d", "a", "c"}, ids(Rank("medicare", entries, 10)))
	}
}

func TestRank_Limits(t *testing.T) {
	entries := []ServiceEntry{
		{ID: "1", Agency: "Tax Office"},
		{ID: "2", Agency: "Tax Office"},
		{ID: "3", Agency: "Tax Office"},
	}

	assert.Equal(t, []string{"1", "2"}, ids(Rank("tax", entries, 2)))
	assert.Empty(t, Rank("tax", entries, 0))
	assert.Empty(t, Rank("tax", entries, -1))
	assert.Empty(t, Rank("", entries, 5))
	assert.Empty(t, Rank("tax", nil, 5))
}

func TestRank_TravelBoost(t *testing.T) {
	entries := []ServiceEntry{
		{ID: "passport", ServiceName: "Passport office", Agency: "DFAT"},
		{ID: "consular", ServiceName: "Consular help", Agency: "Smartraveller"},
	}

	scored := RankScored("travel advice", entries, 5)
	require.Len(t, scored, 1)
	assert.Equal(t, "consular", scored[0].Entry.ID)
	assert.Equal(t, ScoreTravelBoost+ScoreWordInAgency, scored[0].Score)
}

func ids(entries []ServiceEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
