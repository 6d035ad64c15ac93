package game

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
)

// Methods in this file expect r.mu to already be held by the caller.

const (
	// wordSelectionTimeout is how long the drawer gets before the first
	// choice is auto-selected.
	wordSelectionTimeout = 10 * time.Second

	// closeGuessDistance is the edit distance treated as a near miss.
	closeGuessDistance = 2
)

func newRoom(id string, hostName string, settings Settings, pick wordPicker, now time.Time) (*Room, *Player) {
	host := &Player{
		ID:       uuid.NewString(),
		Name:     hostName,
		IsHost:   true,
		IsOnline: true,
	}
	r := &Room{
		id:           id,
		status:       StatusWaiting,
		settings:     settings,
		players:      []*Player{host},
		roundScores:  map[string]int{},
		createdAt:    now,
		lastActivity: now,
		pick:         pick,
	}
	return r, host
}

func (r *Room) findPlayer(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) touch(now time.Time) {
	r.lastActivity = now
}

// join appends a new non-host online player. Names are unique
// case-insensitively within the room.
func (r *Room) join(name string, now time.Time) (*Player, error) {
	if r.status != StatusWaiting {
		return nil, ErrGameInProgress
	}
	if len(r.players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return nil, ErrNameTaken
		}
	}

	p := &Player{
		ID:       uuid.NewString(),
		Name:     name,
		IsOnline: true,
	}
	r.players = append(r.players, p)
	r.touch(now)
	return p, nil
}

// start fixes the drawing order and total turn count for the rest of the
// game, then begins the first turn. Later joins or leaves do not change
// totalTurns.
func (r *Room) start(playerID string, now time.Time) error {
	p := r.findPlayer(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.IsHost {
		return ErrNotHost
	}
	if r.status != StatusWaiting {
		return ErrWrongPhase
	}

	order := make([]string, 0, len(r.players))
	for _, pl := range r.players {
		if pl.IsOnline {
			order = append(order, pl.ID)
		}
	}
	if len(order) < 2 {
		return ErrNotEnoughPlayers
	}

	r.drawingOrder = order
	r.totalTurns = len(order) * r.settings.Rounds
	r.currentTurn = 1
	r.currentRound = 1
	r.touch(now)
	return r.startTurn(now)
}

// startTurn resets the per-turn state, rotates the drawer and enters the
// word-selection phase. The caller schedules the auto-select timer keyed on
// the new timerGen.
func (r *Room) startTurn(now time.Time) error {
	choices, err := r.pick(r.settings.Difficulty, WordChoiceCount)
	if err != nil {
		return err
	}

	r.strokes = nil
	r.snapshot = nil
	r.guesses = nil
	r.roundScores = map[string]int{}
	r.currentWord = ""
	r.revealOrder = nil

	r.currentDrawer = r.nextDrawer()
	r.wordChoices = choices
	r.status = StatusWordSelection
	r.wordSelectionDeadline = now.Add(wordSelectionTimeout)
	r.timerGen++
	r.touch(now)
	return nil
}

// nextDrawer indexes the fixed drawing order by turn number, skipping
// players who have since left or gone offline. Falls back to the indexed
// slot when nobody in the order is reachable, so the game can still finish.
func (r *Room) nextDrawer() string {
	n := len(r.drawingOrder)
	base := (r.currentTurn - 1) % n
	for i := 0; i < n; i++ {
		id := r.drawingOrder[(base+i)%n]
		if p := r.findPlayer(id); p != nil && p.IsOnline {
			return id
		}
	}
	for i := 0; i < n; i++ {
		id := r.drawingOrder[(base+i)%n]
		if r.findPlayer(id) != nil {
			return id
		}
	}
	return r.drawingOrder[base]
}

// selectWord moves the room from word-selection into playing and anchors
// the turn clock. The reveal order for progressive hints is fixed here so
// revealed positions only ever grow during the turn.
func (r *Room) selectWord(playerID string, index int, now time.Time) error {
	if r.status != StatusWordSelection {
		return ErrWrongPhase
	}
	if playerID != r.currentDrawer {
		return ErrNotDrawer
	}
	if index < 0 || index >= len(r.wordChoices) {
		return ErrBadWordIndex
	}

	r.currentWord = r.wordChoices[index]
	r.wordChoices = nil
	r.revealOrder = shuffledLetterPositions(r.currentWord)
	r.status = StatusPlaying
	r.turnStartTime = now
	r.wordSelectionDeadline = time.Time{}
	r.timerGen++
	r.touch(now)
	return nil
}

func shuffledLetterPositions(word string) []int {
	positions := make([]int, 0, len(word))
	for i, ch := range word {
		if ch != ' ' {
			positions = append(positions, i)
		}
	}
	rand.Shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})
	return positions
}

// applyDrawing handles the three update shapes exhaustively.
func (r *Room) applyDrawing(playerID string, upd DrawingUpdate, now time.Time) error {
	if r.status != StatusPlaying {
		return ErrWrongPhase
	}
	if playerID != r.currentDrawer {
		return ErrNotDrawer
	}

	switch upd.Kind {
	case UpdateStroke:
		if upd.Stroke == nil {
			return ErrUnknownUpdateKind
		}
		r.strokes = append(r.strokes, *upd.Stroke)
	case UpdateClear:
		r.strokes = nil
		r.snapshot = nil
	case UpdateSnapshot:
		if upd.Snapshot == nil {
			return ErrUnknownUpdateKind
		}
		if r.snapshot != nil && upd.Snapshot.Timestamp < r.snapshot.Timestamp {
			return ErrStaleSnapshot
		}
		snap := *upd.Snapshot
		r.snapshot = &snap
	default:
		return ErrUnknownUpdateKind
	}

	r.touch(now)
	return nil
}

// submitGuess records the attempt and, when correct, scores it and ends the
// turn early once every eligible guesser has the word. turnEnded reports
// whether this guess closed out the turn.
func (r *Room) submitGuess(playerID, text string, now time.Time) (res GuessResult, turnEnded bool, err error) {
	if r.status != StatusPlaying {
		return res, false, ErrWrongPhase
	}
	if playerID == r.currentDrawer {
		return res, false, ErrIsDrawer
	}
	p := r.findPlayer(playerID)
	if p == nil {
		return res, false, ErrPlayerNotFound
	}
	if r.hasCorrectGuess(playerID) {
		return res, false, ErrAlreadyGuessed
	}

	guess := strings.TrimSpace(text)
	target := strings.ToLower(strings.TrimSpace(r.currentWord))
	normalized := strings.ToLower(guess)

	res.Correct = normalized == target
	if !res.Correct && levenshtein.ComputeDistance(normalized, target) <= closeGuessDistance {
		res.Close = true
	}

	r.guesses = append(r.guesses, Guess{
		PlayerID:   playerID,
		PlayerName: p.Name,
		Text:       guess,
		Timestamp:  now.UnixMilli(),
		IsCorrect:  res.Correct,
		IsClose:    res.Close,
	})

	if res.Correct {
		points := r.guessPoints(now)
		p.Score += points
		r.roundScores[playerID] += points

		if drawer := r.findPlayer(r.currentDrawer); drawer != nil {
			bonus := points / 2
			drawer.Score += bonus
			r.roundScores[drawer.ID] += bonus
		}

		if r.allEligibleGuessed() {
			r.endTurn(now)
			turnEnded = true
		}
	}

	r.touch(now)
	return res, turnEnded, nil
}

func (r *Room) hasCorrectGuess(playerID string) bool {
	for _, g := range r.guesses {
		if g.PlayerID == playerID && g.IsCorrect {
			return true
		}
	}
	return false
}

// guessPoints is computed from the server-anchored turn clock only; client
// supplied time values never influence scoring.
func (r *Room) guessPoints(now time.Time) int {
	total := float64(r.settings.TimePerRound)
	elapsed := now.Sub(r.turnStartTime).Seconds()
	frac := math.Max(0, total-elapsed) / total
	return 100 + int(math.Round(100*frac))
}

// allEligibleGuessed holds when every online non-drawer has a correct guess
// this turn. Vacuously true when no eligible guessers remain.
func (r *Room) allEligibleGuessed() bool {
	for _, p := range r.players {
		if p.ID == r.currentDrawer || !p.IsOnline {
			continue
		}
		if !r.hasCorrectGuess(p.ID) {
			return false
		}
	}
	return true
}

// timeout forces the turn to expire. Only legal while playing.
func (r *Room) timeout(now time.Time) error {
	if r.status != StatusPlaying {
		return ErrWrongPhase
	}
	r.endTurn(now)
	r.touch(now)
	return nil
}

// endTurn advances to the next turn or finishes the game once the fixed
// turn budget is spent. Bumping timerGen first invalidates any in-flight
// timer firing for the turn that just ended.
func (r *Room) endTurn(now time.Time) {
	r.timerGen++

	if r.currentTurn >= r.totalTurns {
		r.status = StatusFinished
		r.currentDrawer = ""
		r.currentWord = ""
		r.wordChoices = nil
		r.revealOrder = nil
		r.turnStartTime = time.Time{}
		r.wordSelectionDeadline = time.Time{}
		return
	}

	r.currentTurn++
	r.currentRound = (r.currentTurn + len(r.drawingOrder) - 1) / len(r.drawingOrder)
	// Word bank exhaustion cannot happen with the shipped lists; if it ever
	// does, finish the game instead of wedging the room.
	if err := r.startTurn(now); err != nil {
		r.status = StatusFinished
		r.currentDrawer = ""
		r.currentWord = ""
	}
}

// leave removes the player, reassigns the host role to the first remaining
// player if needed, and ends the turn early when the leaver was drawing.
// empty reports that the room should be deleted.
func (r *Room) leave(playerID string, now time.Time) (empty bool, err error) {
	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, ErrPlayerNotFound
	}

	wasHost := r.players[idx].IsHost
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if len(r.players) == 0 {
		// The caller will delete the room; invalidate any timer firing
		// already in flight for it.
		r.timerGen++
		return true, nil
	}
	if wasHost {
		r.players[0].IsHost = true
	}

	switch r.status {
	case StatusPlaying, StatusWordSelection:
		if playerID == r.currentDrawer {
			r.endTurn(now)
		} else if r.status == StatusPlaying && r.allEligibleGuessed() {
			// The leaver may have been the last guesser still missing the word.
			r.endTurn(now)
		}
	}

	r.touch(now)
	return false, nil
}

// setOnline toggles presence without removing the player, supporting
// reconnection. It never advances the turn by itself.
func (r *Room) setOnline(playerID string, online bool, now time.Time) error {
	p := r.findPlayer(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.IsOnline = online
	r.touch(now)
	return nil
}

// timeRemaining is always derived from the anchored start time, never
// decremented, so polling cadence cannot drift it.
func (r *Room) timeRemaining(now time.Time) int {
	if r.status != StatusPlaying {
		return 0
	}
	elapsed := int(now.Sub(r.turnStartTime).Seconds())
	remaining := r.settings.TimePerRound - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
