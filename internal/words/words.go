// Package words holds the static drawable word bank, bucketed by difficulty.
package words

import (
	"errors"
	"math/rand"
)

// Difficulty selects one of the three word buckets.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ErrInsufficientWords is returned when a bucket cannot supply the requested
// number of distinct words.
var ErrInsufficientWords = errors.New("not enough words for difficulty")

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Hard
}

var buckets = categorize()

// Words up to 5 letters are easy, up to 8 medium, anything longer hard.
func categorize() map[Difficulty][]string {
	b := map[Difficulty][]string{}
	for _, w := range drawable {
		switch {
		case len(w) <= 5:
			b[Easy] = append(b[Easy], w)
		case len(w) <= 8:
			b[Medium] = append(b[Medium], w)
		default:
			b[Hard] = append(b[Hard], w)
		}
	}
	return b
}

// Pick returns count distinct random words at the given difficulty. It fails
// closed instead of looping forever when the bucket is too small.
func Pick(d Difficulty, count int) ([]string, error) {
	bucket := buckets[d]
	if len(bucket) < count {
		return nil, ErrInsufficientWords
	}

	shuffled := make([]string, len(bucket))
	copy(shuffled, bucket)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:count], nil
}

// Stats reports bucket sizes, logged once at startup.
type BankStats struct {
	Total  int `json:"total"`
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

func Stats() BankStats {
	return BankStats{
		Total:  len(drawable),
		Easy:   len(buckets[Easy]),
		Medium: len(buckets[Medium]),
		Hard:   len(buckets[Hard]),
	}
}
