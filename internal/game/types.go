package game

import (
	"encoding/json"
	"sync"
	"time"

	"sketchguess/internal/words"
)

// Status is the lifecycle phase of a room.
type Status string

const (
	StatusWaiting       Status = "waiting"
	StatusWordSelection Status = "word-selection"
	StatusPlaying       Status = "playing"
	StatusFinished      Status = "finished"
)

const (
	// MaxPlayers caps room membership.
	MaxPlayers = 8
	// WordChoiceCount is how many candidate words the drawer picks from.
	WordChoiceCount = 3
)

// Settings are fixed at room creation. Bounds are validated by the caller
// layer before they reach the core.
type Settings struct {
	Rounds       int              `json:"rounds"`
	TimePerRound int              `json:"timePerRound"`
	Difficulty   words.Difficulty `json:"difficulty"`
}

// Player is one room member. Score is cumulative and never decreases.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	IsHost   bool   `json:"isHost"`
	IsOnline bool   `json:"isOnline"`
}

// Guess is one entry in the current turn's guess log. PlayerName is a
// snapshot taken at guess time so the log survives the player leaving.
type Guess struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
	IsCorrect  bool   `json:"isCorrect"`
	IsClose    bool   `json:"isClose,omitempty"`
}

// Point is a single canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one drawn line. The core treats it as opaque payload.
type Stroke struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
}

// DrawingSnapshot is a full-canvas replacement blob. Timestamp orders
// snapshots so a late-arriving older frame never overwrites a newer one.
type DrawingSnapshot struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// UpdateKind discriminates the drawing update union.
type UpdateKind string

const (
	UpdateStroke   UpdateKind = "stroke"
	UpdateClear    UpdateKind = "clear"
	UpdateSnapshot UpdateKind = "snapshot"
)

// DrawingUpdate is a tagged union: exactly one of Stroke or Snapshot is set
// depending on Kind; UpdateClear carries no payload.
type DrawingUpdate struct {
	Kind     UpdateKind       `json:"kind"`
	Stroke   *Stroke          `json:"stroke,omitempty"`
	Snapshot *DrawingSnapshot `json:"snapshot,omitempty"`
}

// wordPicker supplies candidate words; tests substitute a deterministic one.
type wordPicker func(d words.Difficulty, count int) ([]string, error)

// Room owns the authoritative state of one game session. Every mutation and
// read of its fields goes through mu; different rooms are fully independent.
type Room struct {
	mu sync.Mutex

	id       string
	status   Status
	settings Settings
	players  []*Player

	currentRound int
	currentTurn  int
	totalTurns   int
	drawingOrder []string

	currentDrawer string
	currentWord   string
	wordChoices   []string
	revealOrder   []int

	wordSelectionDeadline time.Time
	turnStartTime         time.Time

	strokes  []Stroke
	snapshot *DrawingSnapshot
	guesses  []Guess

	roundScores map[string]int

	createdAt    time.Time
	lastActivity time.Time

	// timerGen guards against stale scheduler firings: it is bumped whenever
	// the active timer's reason to exist goes away, and every firing carries
	// the generation it was scheduled under.
	timerGen uint64

	pick wordPicker
}

// View is the per-viewer projection of a room, the only shape that leaves
// the core. For non-drawers CurrentWord carries the masked hint and
// WordChoices is omitted.
type View struct {
	RoomID                string           `json:"roomId"`
	Status                Status           `json:"status"`
	Players               []Player         `json:"players"`
	Settings              Settings         `json:"settings"`
	CurrentRound          int              `json:"currentRound"`
	CurrentTurn           int              `json:"currentTurn"`
	TotalTurns            int              `json:"totalTurns"`
	CurrentDrawer         string           `json:"currentDrawer,omitempty"`
	CurrentWord           string           `json:"currentWord,omitempty"`
	WordChoices           []string         `json:"wordChoices,omitempty"`
	TimeRemaining         int              `json:"timeRemaining"`
	WordSelectionDeadline int64            `json:"wordSelectionDeadline,omitempty"`
	Drawing               []Stroke         `json:"drawing"`
	DrawingSnapshot       *DrawingSnapshot `json:"drawingSnapshot,omitempty"`
	Guesses               []Guess          `json:"guesses"`
	RoundScores           map[string]int   `json:"roundScores"`
	CreatedAt             int64            `json:"createdAt"`
	LastActivity          int64            `json:"lastActivity"`
}

// GuessResult is returned to the guesser. Close flags a near miss without
// ever exposing the word itself.
type GuessResult struct {
	Correct bool `json:"isCorrect"`
	Close   bool `json:"isClose"`
}

// Notifier delivers fresh per-viewer state to room members after every
// successful mutation. Implementations must not block: delivery is
// fire-and-forget from the core's point of view.
type Notifier interface {
	Publish(roomID string, views map[string]View)
}

// NopNotifier discards all publishes.
type NopNotifier struct{}

func (NopNotifier) Publish(string, map[string]View) {}
