// Package similarity provides the pluggable scoring capability the
// deduplicator ranks against a threshold. Scores are in [0,1]; 1 means
// identical surfaces.
package similarity

import (
	"context"
	"strings"
	"unicode"
)

type Scorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// Lexical scores two texts with a Dice coefficient over character trigrams of
// the normalized text. Trigrams are forgiving of inflection ("compound" vs
// "compounding") where plain word overlap is not.
type Lexical struct{}

func NewLexical() *Lexical {
	return &Lexical{}
}

func (l *Lexical) Score(_ context.Context, a, b string) (float64, error) {
	ta := trigrams(normalize(a))
	tb := trigrams(normalize(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0, nil
	}

	shared := 0
	for g, ca := range ta {
		if cb, ok := tb[g]; ok {
			if ca < cb {
				shared += ca
			} else {
				shared += cb
			}
		}
	}

	return 2 * float64(shared) / float64(size(ta)+size(tb)), nil
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func trigrams(s string) map[string]int {
	grams := make(map[string]int)
	runes := []rune(" " + s + " ")
	for i := 0; i+3 <= len(runes); i++ {
		grams[string(runes[i:i+3])]++
	}
	return grams
}

func size(grams map[string]int) int {
	total := 0
	for _, c := range grams {
		total += c
	}
	return total
}
