package game

import (
	"strings"
	"time"
)

// viewFor projects the room into the shape safe to hand to viewerID.
// Non-drawers never see the literal word: during word-selection the choices
// are omitted, during play the word is replaced by a progressively revealed
// hint. Expects r.mu held.
func (r *Room) viewFor(viewerID string, now time.Time) View {
	players := make([]Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}

	drawing := make([]Stroke, len(r.strokes))
	copy(drawing, r.strokes)

	guesses := make([]Guess, len(r.guesses))
	copy(guesses, r.guesses)

	scores := make(map[string]int, len(r.roundScores))
	for id, pts := range r.roundScores {
		scores[id] = pts
	}

	var snap *DrawingSnapshot
	if r.snapshot != nil {
		s := *r.snapshot
		snap = &s
	}

	v := View{
		RoomID:          r.id,
		Status:          r.status,
		Players:         players,
		Settings:        r.settings,
		CurrentRound:    r.currentRound,
		CurrentTurn:     r.currentTurn,
		TotalTurns:      r.totalTurns,
		CurrentDrawer:   r.currentDrawer,
		TimeRemaining:   r.timeRemaining(now),
		Drawing:         drawing,
		DrawingSnapshot: snap,
		Guesses:         guesses,
		RoundScores:     scores,
		CreatedAt:       r.createdAt.UnixMilli(),
		LastActivity:    r.lastActivity.UnixMilli(),
	}

	if r.status == StatusWordSelection {
		v.TimeRemaining = r.settings.TimePerRound
		v.WordSelectionDeadline = r.wordSelectionDeadline.UnixMilli()
		if viewerID == r.currentDrawer {
			v.WordChoices = append([]string(nil), r.wordChoices...)
		}
	}

	if r.status == StatusPlaying {
		if viewerID == r.currentDrawer {
			v.CurrentWord = r.currentWord
		} else {
			v.CurrentWord = r.hint(now)
		}
	}

	return v
}

// hint renders the masked word with the time-earned letters filled in.
func (r *Room) hint(now time.Time) string {
	revealed := r.revealedPositions(now)
	return renderHint(r.currentWord, revealed)
}

// revealedPositions returns a prefix of the per-turn reveal order. The
// order is fixed when the word is chosen and the prefix length only grows
// with elapsed time, so a revealed letter can never change or disappear
// within a turn.
func (r *Room) revealedPositions(now time.Time) map[int]bool {
	budget := revealBudget(r.currentWord, r.settings.TimePerRound, now.Sub(r.turnStartTime).Seconds())
	if budget > len(r.revealOrder) {
		budget = len(r.revealOrder)
	}
	revealed := make(map[int]bool, budget)
	for _, pos := range r.revealOrder[:budget] {
		revealed[pos] = true
	}
	return revealed
}

// revealBudget is how many letters elapsed time has earned: nothing before
// half the turn, then ramping up to at most half the letters by the end.
func revealBudget(word string, timePerRound int, elapsed float64) int {
	total := float64(timePerRound)
	if total <= 0 || elapsed < total*0.5 {
		return 0
	}
	progress := (elapsed - total*0.5) / (total * 0.5)
	if progress > 1 {
		progress = 1
	}
	letters := len(strings.ReplaceAll(word, " ", ""))
	return int(float64(letters) * progress * 0.5)
}

// renderHint formats a word as spaced underscores, keeping revealed letters
// and widening word gaps, e.g. "cat" -> "_ a _".
func renderHint(word string, revealed map[int]bool) string {
	cells := make([]string, 0, len(word))
	for i, ch := range word {
		switch {
		case ch == ' ':
			cells = append(cells, "  ")
		case revealed[i]:
			cells = append(cells, string(ch))
		default:
			cells = append(cells, "_")
		}
	}
	return strings.Join(cells, " ")
}
