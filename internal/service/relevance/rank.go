package relevance

import (
	"slices"
	"sort"
	"strings"
	"unicode"
)

// Score weights
const (
	ScoreQueryInName     = 100
	ScoreQueryInAgency   = 80
	ScoreWordInName      = 20
	ScoreWordInAgency    = 15
	ScoreKeywordEqual    = 30
	ScoreKeywordHasQuery = 25
	ScoreKeywordHasWord  = 10
	ScoreWordInCategory  = 5
	ScoreTravelBoost     = 200
)

var (
	travelTriggers  = []string{"travel", "advice"}
	travelAgencies  = []string{"travel", "smartraveller"}
	travelNameTerms = []string{"travel"}
)

// Tokenize lowercases a query and splits it on whitespace and punctuation
func Tokenize(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

// Score returns the additive relevance of an entry to a query
func Score(query string, e ServiceEntry) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	words := Tokenize(q)
	name := strings.ToLower(e.ServiceName)
	agency := strings.ToLower(e.Agency)
	category := strings.ToLower(e.Category)

	score := 0
	if strings.Contains(name, q) {
		score += ScoreQueryInName
	}
	if strings.Contains(agency, q) {
		score += ScoreQueryInAgency
	}

	for _, w := range words {
		if strings.Contains(name, w) {
			score += ScoreWordInName
		}
		if strings.Contains(agency, w) {
			score += ScoreWordInAgency
		}
	}

	for _, kw := range e.Keywords {
		kw = strings.ToLower(kw)
		if slices.Contains(words, kw) {
			score += ScoreKeywordEqual
		}
		if strings.Contains(kw, q) {
			score += ScoreKeywordHasQuery
		}
		for _, w := range words {
			if strings.Contains(kw, w) {
				score += ScoreKeywordHasWord
			}
		}
	}

	for _, w := range words {
		if strings.Contains(category, w) {
			score += ScoreWordInCategory
		}
	}

	if anyIn(words, travelTriggers) && (containsAny(agency, travelAgencies) || containsAny(name, travelNameTerms)) {
		score += ScoreTravelBoost
	}
	return score
}

// Scored pairs an entry with its score
type Scored struct {
	Entry ServiceEntry `json:"entry"`
	Score int          `json:"score"`
}

// RankScored returns the entries scoring above zero, best first. Equal
// scores keep their input order. At most limit entries are returned.
func RankScored(query string, entries []ServiceEntry, limit int) []Scored {
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return []Scored{}
	}

	scored := make([]Scored, 0, len(entries))
	for _, e := range entries {
		if s := Score(query, e); s > 0 {
			scored = append(scored, Scored{Entry: e, Score: s})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Rank is RankScored without the scores
func Rank(query string, entries []ServiceEntry, limit int) []ServiceEntry {
	scored := RankScored(query, entries, limit)
	out := make([]ServiceEntry, len(scored))
	for i, s := range scored {
		out[i] = s.Entry
	}
	return out
}

func anyIn(words, targets []string) bool {
	for _, t := range targets {
		if slices.Contains(words, t) {
			return true
		}
	}
	return false
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
