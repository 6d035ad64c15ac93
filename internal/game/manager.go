package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sketchguess/internal/words"
)

const roomIDChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Manager is the registry of active rooms and the entry point for every
// player action. It serializes per-room mutations behind each room's mutex,
// drives the turn scheduler and publishes sanitized views after every
// successful mutation.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	sched    turnScheduler
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
	pick     wordPicker
}

// Option customizes a Manager, mostly for tests.
type Option func(*Manager)

// WithNotifier sets the delivery sink for post-mutation views.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithClock substitutes the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithScheduler substitutes the turn scheduler.
func WithScheduler(s turnScheduler) Option {
	return func(m *Manager) { m.sched = s }
}

// WithWordPicker substitutes the word bank.
func WithWordPicker(pick func(words.Difficulty, int) ([]string, error)) Option {
	return func(m *Manager) { m.pick = pick }
}

func NewManager(log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		rooms:    make(map[string]*Room),
		notifier: NopNotifier{},
		log:      log,
		now:      time.Now,
		pick:     words.Pick,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sched == nil {
		m.sched = newScheduler(log)
	}
	return m
}

// CreateGame creates a room with the given host as its only player.
func (m *Manager) CreateGame(hostName string, settings Settings) (roomID, hostID string, v View, err error) {
	now := m.now()

	m.mu.Lock()
	roomID = m.generateRoomIDLocked()
	r, host := newRoom(roomID, strings.TrimSpace(hostName), settings, m.pick, now)
	m.rooms[roomID] = r
	m.mu.Unlock()

	m.log.Info().Str("room", roomID).Str("host", host.Name).Msg("room created")

	r.mu.Lock()
	v = r.viewFor(host.ID, now)
	views := m.viewsLocked(r, now)
	r.mu.Unlock()

	m.notifier.Publish(roomID, views)
	return roomID, host.ID, v, nil
}

// generateRoomIDLocked retries until the 6-character code is unused.
// Expects m.mu held, which also makes concurrent creations collision-safe.
func (m *Manager) generateRoomIDLocked() string {
	for {
		b := make([]byte, 6)
		for i := range b {
			b[i] = roomIDChars[rand.Intn(len(roomIDChars))]
		}
		id := string(b)
		if _, exists := m.rooms[id]; !exists {
			return id
		}
	}
}

func (m *Manager) room(roomID string) (*Room, error) {
	m.mu.RLock()
	r, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// mutate runs op under the room's lock, and on success reconciles the
// scheduler with any timer-generation change and publishes fresh views.
// The returned view is for viewerID.
func (m *Manager) mutate(roomID, viewerID string, op func(r *Room, now time.Time) error) (View, error) {
	r, err := m.room(roomID)
	if err != nil {
		return View{}, err
	}
	now := m.now()

	r.mu.Lock()
	genBefore := r.timerGen
	if err := op(r, now); err != nil {
		r.mu.Unlock()
		return View{}, err
	}
	v := r.viewFor(viewerID, now)
	views := m.viewsLocked(r, now)
	if r.timerGen != genBefore {
		m.reconcileLocked(r, now)
	}
	r.mu.Unlock()

	m.notifier.Publish(roomID, views)
	return v, nil
}

// viewsLocked builds the per-player sanitized views handed to the
// notification sink. Expects r.mu held.
func (m *Manager) viewsLocked(r *Room, now time.Time) map[string]View {
	views := make(map[string]View, len(r.players))
	for _, p := range r.players {
		views[p.ID] = r.viewFor(p.ID, now)
	}
	return views
}

// reconcileLocked points the room's single live timer at whatever the
// current phase needs. Expects r.mu held; the scheduler has its own lock
// and never calls back into the room synchronously.
func (m *Manager) reconcileLocked(r *Room, now time.Time) {
	switch r.status {
	case StatusWordSelection:
		m.sched.ScheduleDeadline(r.id, r.timerGen, r.wordSelectionDeadline.Sub(now), m.onWordDeadline)
	case StatusPlaying:
		m.sched.ScheduleTick(r.id, r.timerGen, m.onRoundTick)
	default:
		m.sched.Cancel(r.id)
	}
}

// JoinGame adds a named player to a waiting room.
func (m *Manager) JoinGame(roomID, name string) (playerID string, v View, err error) {
	var joined *Player
	var joinedView View
	_, err = m.mutate(roomID, "", func(r *Room, now time.Time) error {
		p, err := r.join(strings.TrimSpace(name), now)
		if err != nil {
			return err
		}
		joined = p
		// Built under the lock so a successful join always returns the
		// joiner's view, even if the room is evicted right after.
		joinedView = r.viewFor(p.ID, now)
		return nil
	})
	if err != nil {
		return "", View{}, err
	}
	m.log.Info().Str("room", roomID).Str("player", joined.Name).Msg("player joined")
	return joined.ID, joinedView, nil
}

// StartGame begins the first turn. Host only, two players minimum.
func (m *Manager) StartGame(roomID, playerID string) (View, error) {
	v, err := m.mutate(roomID, playerID, func(r *Room, now time.Time) error {
		return r.start(playerID, now)
	})
	if err == nil {
		m.log.Info().Str("room", roomID).Msg("game started")
	}
	return v, err
}

// SelectWord lets the drawer fix the secret word and starts the countdown.
func (m *Manager) SelectWord(roomID, playerID string, index int) (View, error) {
	return m.mutate(roomID, playerID, func(r *Room, now time.Time) error {
		return r.selectWord(playerID, index, now)
	})
}

// UpdateDrawing applies a stroke, clear or snapshot from the drawer.
func (m *Manager) UpdateDrawing(roomID, playerID string, upd DrawingUpdate) (View, error) {
	return m.mutate(roomID, playerID, func(r *Room, now time.Time) error {
		return r.applyDrawing(playerID, upd, now)
	})
}

// SubmitGuess records a guess; a correct one scores and may end the turn.
func (m *Manager) SubmitGuess(roomID, playerID, text string) (GuessResult, View, error) {
	var res GuessResult
	v, err := m.mutate(roomID, playerID, func(r *Room, now time.Time) error {
		var err error
		res, _, err = r.submitGuess(playerID, text, now)
		return err
	})
	return res, v, err
}

// HandleTimeout force-expires the current turn.
func (m *Manager) HandleTimeout(roomID string) (View, error) {
	return m.mutate(roomID, "", func(r *Room, now time.Time) error {
		return r.timeout(now)
	})
}

// SetOnline toggles a player's presence, e.g. on reconnect or socket drop.
func (m *Manager) SetOnline(roomID, playerID string, online bool) (View, error) {
	return m.mutate(roomID, playerID, func(r *Room, now time.Time) error {
		return r.setOnline(playerID, online, now)
	})
}

// LeaveGame removes the player, reassigning the host role and ending the
// turn as needed. An emptied room is deleted together with its timer.
func (m *Manager) LeaveGame(roomID, playerID string) error {
	r, err := m.room(roomID)
	if err != nil {
		return err
	}
	now := m.now()

	r.mu.Lock()
	genBefore := r.timerGen
	empty, err := r.leave(playerID, now)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	var views map[string]View
	if !empty {
		views = m.viewsLocked(r, now)
		if r.timerGen != genBefore {
			m.reconcileLocked(r, now)
		}
	}
	r.mu.Unlock()

	if empty {
		m.deleteRoom(roomID)
		return nil
	}
	m.notifier.Publish(roomID, views)
	return nil
}

func (m *Manager) deleteRoom(roomID string) {
	m.mu.Lock()
	delete(m.rooms, roomID)
	m.mu.Unlock()
	m.sched.Cancel(roomID)
	m.log.Info().Str("room", roomID).Msg("room deleted")
}

// GetViewModel returns the sanitized snapshot for one viewer. Unknown
// viewers get the fully masked projection.
func (m *Manager) GetViewModel(roomID, viewerID string) (View, error) {
	r, err := m.room(roomID)
	if err != nil {
		return View{}, err
	}
	now := m.now()
	r.mu.Lock()
	v := r.viewFor(viewerID, now)
	r.mu.Unlock()
	return v, nil
}

// RoomCount reports how many rooms are live.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// SweepInactive evicts rooms idle longer than ttl, canceling their timers
// first so nothing fires for an evicted room.
func (m *Manager) SweepInactive(ttl time.Duration) int {
	now := m.now()
	var evicted []string

	m.mu.Lock()
	for id, r := range m.rooms {
		r.mu.Lock()
		stale := now.Sub(r.lastActivity) > ttl
		if stale {
			// A timer handler may already hold this room pointer; bumping
			// the generation makes its firing a no-op.
			r.timerGen++
		}
		r.mu.Unlock()
		if stale {
			m.sched.Cancel(id)
			delete(m.rooms, id)
			evicted = append(evicted, id)
		}
	}
	m.mu.Unlock()

	for _, id := range evicted {
		m.log.Info().Str("room", id).Msg("inactive room evicted")
	}
	return len(evicted)
}

// onWordDeadline is the scheduler firing for an expired word-selection
// phase: it behaves as the drawer picking the first choice. Stale
// generations and vanished rooms are no-ops, not errors.
func (m *Manager) onWordDeadline(roomID string, gen uint64) {
	r, err := m.room(roomID)
	if err != nil {
		return
	}
	now := m.now()

	r.mu.Lock()
	if r.timerGen != gen || r.status != StatusWordSelection {
		r.mu.Unlock()
		return
	}
	if err := r.selectWord(r.currentDrawer, 0, now); err != nil {
		r.mu.Unlock()
		return
	}
	views := m.viewsLocked(r, now)
	m.reconcileLocked(r, now)
	r.mu.Unlock()

	m.log.Debug().Str("room", roomID).Msg("word auto-selected")
	m.notifier.Publish(roomID, views)
}

// onRoundTick runs once per second while a turn is being drawn. It ends the
// turn when the derived remaining time hits zero and otherwise republishes
// so viewers see the countdown without polling.
func (m *Manager) onRoundTick(roomID string, gen uint64) {
	r, err := m.room(roomID)
	if err != nil {
		return
	}
	now := m.now()

	r.mu.Lock()
	if r.timerGen != gen || r.status != StatusPlaying {
		r.mu.Unlock()
		return
	}
	if r.timeRemaining(now) <= 0 {
		r.endTurn(now)
		r.touch(now)
		m.reconcileLocked(r, now)
		m.log.Debug().Str("room", roomID).Msg("turn expired")
	}
	views := m.viewsLocked(r, now)
	r.mu.Unlock()

	m.notifier.Publish(roomID, views)
}
