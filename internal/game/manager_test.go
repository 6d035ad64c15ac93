package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchguess/internal/words"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeScheduler records scheduling calls and keeps the fire callbacks so
// tests can trigger timer firings deterministically.
type fakeScheduler struct {
	mu        sync.Mutex
	deadlines []scheduledTimer
	ticks     []scheduledTimer
	cancels   []string
}

type scheduledTimer struct {
	roomID string
	gen    uint64
	fire   func(string, uint64)
}

func (s *fakeScheduler) ScheduleDeadline(roomID string, gen uint64, _ time.Duration, fire func(string, uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadlines = append(s.deadlines, scheduledTimer{roomID, gen, fire})
}

func (s *fakeScheduler) ScheduleTick(roomID string, gen uint64, fire func(string, uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, scheduledTimer{roomID, gen, fire})
}

func (s *fakeScheduler) Cancel(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels = append(s.cancels, roomID)
}

func (s *fakeScheduler) lastDeadline() scheduledTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadlines[len(s.deadlines)-1]
}

func (s *fakeScheduler) lastTick() scheduledTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks[len(s.ticks)-1]
}

func (s *fakeScheduler) canceled(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.cancels {
		if id == roomID {
			return true
		}
	}
	return false
}

// recordingNotifier counts publishes per room.
type recordingNotifier struct {
	mu       sync.Mutex
	byRoom   map[string]int
	lastView map[string]map[string]View
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{byRoom: map[string]int{}, lastView: map[string]map[string]View{}}
}

func (n *recordingNotifier) Publish(roomID string, views map[string]View) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.byRoom[roomID]++
	n.lastView[roomID] = views
}

func (n *recordingNotifier) count(roomID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.byRoom[roomID]
}

func fixedPicker(ws ...string) func(words.Difficulty, int) ([]string, error) {
	return func(_ words.Difficulty, count int) ([]string, error) {
		if len(ws) < count {
			return nil, words.ErrInsufficientWords
		}
		return ws[:count], nil
	}
}

type managerFixture struct {
	mgr   *Manager
	clock *fakeClock
	sched *fakeScheduler
	sink  *recordingNotifier
}

func newFixture(t *testing.T, opts ...Option) *managerFixture {
	t.Helper()
	f := &managerFixture{
		clock: newFakeClock(),
		sched: &fakeScheduler{},
		sink:  newRecordingNotifier(),
	}
	base := []Option{
		WithClock(f.clock.Now),
		WithScheduler(f.sched),
		WithNotifier(f.sink),
		WithWordPicker(fixedPicker("apple", "bread", "candy")),
	}
	f.mgr = NewManager(zerolog.Nop(), append(base, opts...)...)
	return f
}

func defaultSettings() Settings {
	return Settings{Rounds: 2, TimePerRound: 60, Difficulty: words.Easy}
}

// startedGame creates a room with the given players, starts it and selects
// choice 0, leaving it in the playing phase. Returns roomID and player IDs
// keyed by name.
func startedGame(t *testing.T, f *managerFixture, names ...string) (string, map[string]string) {
	t.Helper()
	roomID, hostID, _, err := f.mgr.CreateGame(names[0], defaultSettings())
	require.NoError(t, err)

	ids := map[string]string{names[0]: hostID}
	for _, name := range names[1:] {
		pid, _, err := f.mgr.JoinGame(roomID, name)
		require.NoError(t, err)
		ids[name] = pid
	}

	v, err := f.mgr.StartGame(roomID, hostID)
	require.NoError(t, err)
	require.Equal(t, StatusWordSelection, v.Status)

	v, err = f.mgr.SelectWord(roomID, v.CurrentDrawer, 0)
	require.NoError(t, err)
	require.Equal(t, StatusPlaying, v.Status)
	return roomID, ids
}

func drawerOf(t *testing.T, f *managerFixture, roomID string) string {
	t.Helper()
	v, err := f.mgr.GetViewModel(roomID, "")
	require.NoError(t, err)
	require.NotEmpty(t, v.CurrentDrawer)
	return v.CurrentDrawer
}

// guesserOf returns any player ID that is not the current drawer.
func guesserOf(t *testing.T, ids map[string]string, drawer string) string {
	t.Helper()
	for _, id := range ids {
		if id != drawer {
			return id
		}
	}
	t.Fatal("no guesser found")
	return ""
}

func TestCreateGame(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	roomID, hostID, v, err := f.mgr.CreateGame("Alice", defaultSettings())
	require.NoError(t, err)

	assert.Regexp(t, `^[A-Z0-9]{6}$`, roomID)
	assert.NotEmpty(t, hostID)
	assert.Equal(t, StatusWaiting, v.Status)
	require.Len(t, v.Players, 1)
	assert.Equal(t, "Alice", v.Players[0].Name)
	assert.True(t, v.Players[0].IsHost)
	assert.True(t, v.Players[0].IsOnline)
	assert.Equal(t, 1, f.mgr.RoomCount())
	assert.Equal(t, 1, f.sink.count(roomID))
}

func TestCreateGame_ConcurrentIDsUnique(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	const n = 50
	idsCh := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			roomID, _, _, err := f.mgr.CreateGame(fmt.Sprintf("host%d", i), defaultSettings())
			assert.NoError(t, err)
			idsCh <- roomID
		}(i)
	}
	wg.Wait()
	close(idsCh)

	seen := map[string]bool{}
	for id := range idsCh {
		assert.False(t, seen[id], "duplicate room ID %s", id)
		seen[id] = true
	}
	assert.Equal(t, n, f.mgr.RoomCount())
}

func TestJoinGame(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		desc    string
		setup   func(t *testing.T, f *managerFixture, roomID, hostID string)
		name    string
		wantErr error
	}{
		{
			desc: "happy path",
			name: "Bob",
		},
		{
			desc:    "case-insensitive name collision",
			name:    "alice",
			wantErr: ErrNameTaken,
		},
		{
			desc: "room already playing",
			setup: func(t *testing.T, f *managerFixture, roomID, hostID string) {
				_, _, err := f.mgr.JoinGame(roomID, "Bob")
				require.NoError(t, err)
				_, err = f.mgr.StartGame(roomID, hostID)
				require.NoError(t, err)
			},
			name:    "Carol",
			wantErr: ErrGameInProgress,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			roomID, hostID, _, err := f.mgr.CreateGame("Alice", defaultSettings())
			require.NoError(t, err)
			if tc.setup != nil {
				tc.setup(t, f, roomID, hostID)
			}

			playerID, v, err := f.mgr.JoinGame(roomID, tc.name)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, playerID)
			assert.Len(t, v.Players, 2)
			assert.False(t, v.Players[1].IsHost)
		})
	}
}

func TestJoinGame_RoomNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, _, err := f.mgr.JoinGame("ZZZZZZ", "Bob")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinGame_CapacityEight(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, _, _, err := f.mgr.CreateGame("p1", defaultSettings())
	require.NoError(t, err)

	for i := 2; i <= MaxPlayers; i++ {
		_, _, err := f.mgr.JoinGame(roomID, fmt.Sprintf("p%d", i))
		require.NoError(t, err)
	}

	_, _, err = f.mgr.JoinGame(roomID, "p9")
	assert.ErrorIs(t, err, ErrRoomFull)

	v, err := f.mgr.GetViewModel(roomID, "")
	require.NoError(t, err)
	assert.Len(t, v.Players, MaxPlayers)
}

func TestStartGame(t *testing.T) {
	t.Parallel()

	t.Run("requires host", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		roomID, _, _, err := f.mgr.CreateGame("Alice", defaultSettings())
		require.NoError(t, err)
		bobID, _, err := f.mgr.JoinGame(roomID, "Bob")
		require.NoError(t, err)

		_, err = f.mgr.StartGame(roomID, bobID)
		assert.ErrorIs(t, err, ErrNotHost)
	})

	t.Run("requires two players", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		roomID, hostID, _, err := f.mgr.CreateGame("Alice", defaultSettings())
		require.NoError(t, err)

		_, err = f.mgr.StartGame(roomID, hostID)
		assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	})

	t.Run("fixes total turns and schedules word deadline", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		roomID, hostID, _, err := f.mgr.CreateGame("Alice", defaultSettings())
		require.NoError(t, err)
		_, _, err = f.mgr.JoinGame(roomID, "Bob")
		require.NoError(t, err)
		_, _, err = f.mgr.JoinGame(roomID, "Carol")
		require.NoError(t, err)

		v, err := f.mgr.StartGame(roomID, hostID)
		require.NoError(t, err)

		assert.Equal(t, StatusWordSelection, v.Status)
		assert.Equal(t, 6, v.TotalTurns) // 3 players x 2 rounds
		assert.Equal(t, 1, v.CurrentTurn)
		assert.Equal(t, 1, v.CurrentRound)
		assert.NotEmpty(t, v.CurrentDrawer)

		last := f.sched.lastDeadline()
		assert.Equal(t, roomID, last.roomID)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		roomID, hostID, _, err := f.mgr.CreateGame("Alice", defaultSettings())
		require.NoError(t, err)
		_, _, err = f.mgr.JoinGame(roomID, "Bob")
		require.NoError(t, err)
		_, err = f.mgr.StartGame(roomID, hostID)
		require.NoError(t, err)

		_, err = f.mgr.StartGame(roomID, hostID)
		assert.ErrorIs(t, err, ErrWrongPhase)
	})
}

func TestSelectWord(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, hostID, _, err := f.mgr.CreateGame("Alice", defaultSettings())
	require.NoError(t, err)
	bobID, _, err := f.mgr.JoinGame(roomID, "Bob")
	require.NoError(t, err)
	v, err := f.mgr.StartGame(roomID, hostID)
	require.NoError(t, err)

	drawer := v.CurrentDrawer
	other := hostID
	if drawer == hostID {
		other = bobID
	}

	_, err = f.mgr.SelectWord(roomID, other, 0)
	assert.ErrorIs(t, err, ErrNotDrawer)

	_, err = f.mgr.SelectWord(roomID, drawer, 3)
	assert.ErrorIs(t, err, ErrBadWordIndex)

	v, err = f.mgr.SelectWord(roomID, drawer, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, v.Status)
	assert.Empty(t, v.WordChoices)
	assert.Equal(t, 60, v.TimeRemaining)

	// the drawer's view carries the selected word
	dv, err := f.mgr.GetViewModel(roomID, drawer)
	require.NoError(t, err)
	assert.Equal(t, "bread", dv.CurrentWord)

	// selecting again is a phase error
	_, err = f.mgr.SelectWord(roomID, drawer, 0)
	assert.ErrorIs(t, err, ErrWrongPhase)

	// round countdown is now scheduled
	assert.Equal(t, roomID, f.sched.lastTick().roomID)
}

func TestAutoSelectOnDeadline(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, hostID, _, err := f.mgr.CreateGame("Alice", defaultSettings())
	require.NoError(t, err)
	_, _, err = f.mgr.JoinGame(roomID, "Bob")
	require.NoError(t, err)
	_, err = f.mgr.StartGame(roomID, hostID)
	require.NoError(t, err)

	drawer := drawerOf(t, f, roomID)
	deadline := f.sched.lastDeadline()
	deadline.fire(deadline.roomID, deadline.gen)

	dv, err := f.mgr.GetViewModel(roomID, drawer)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, dv.Status)
	assert.Equal(t, "apple", dv.CurrentWord, "deadline picks the first choice")

	// a stale firing after the phase advanced is a no-op
	deadline.fire(deadline.roomID, deadline.gen)
	dv, err = f.mgr.GetViewModel(roomID, drawer)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, dv.Status)
	assert.Equal(t, "apple", dv.CurrentWord)
}

func TestSubmitGuess_ScoringAnchoredToServerClock(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		desc          string
		advance       time.Duration
		guesserPoints int
		drawerPoints  int
	}{
		{desc: "instant guess", advance: 0, guesserPoints: 200, drawerPoints: 100},
		{desc: "half time", advance: 30 * time.Second, guesserPoints: 150, drawerPoints: 75},
		{desc: "expired clock", advance: 60 * time.Second, guesserPoints: 100, drawerPoints: 50},
		{desc: "beyond expiry", advance: 90 * time.Second, guesserPoints: 100, drawerPoints: 50},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			roomID, ids := startedGame(t, f, "Alice", "Bob")
			drawer := drawerOf(t, f, roomID)
			guesser := guesserOf(t, ids, drawer)

			f.clock.Advance(tc.advance)

			res, v, err := f.mgr.SubmitGuess(roomID, guesser, "Apple ")
			require.NoError(t, err)
			assert.True(t, res.Correct)

			assert.Equal(t, tc.guesserPoints, playerByID(t, v, guesser).Score)
			assert.Equal(t, tc.drawerPoints, playerByID(t, v, drawer).Score)
		})
	}
}

func playerByID(t *testing.T, v View, id string) Player {
	t.Helper()
	for _, p := range v.Players {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("player %s not in view", id)
	return Player{}
}

func TestSubmitGuess_Failures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, ids := startedGame(t, f, "Alice", "Bob")
	drawer := drawerOf(t, f, roomID)
	guesser := guesserOf(t, ids, drawer)

	_, _, err := f.mgr.SubmitGuess(roomID, drawer, "apple")
	assert.ErrorIs(t, err, ErrIsDrawer)

	_, _, err = f.mgr.SubmitGuess("ZZZZZZ", guesser, "apple")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, _, err = f.mgr.SubmitGuess(roomID, "ghost", "apple")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestSubmitGuess_CloseGuessFlag(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, ids := startedGame(t, f, "Alice", "Bob", "Carol")
	drawer := drawerOf(t, f, roomID)
	guesser := guesserOf(t, ids, drawer)

	res, v, err := f.mgr.SubmitGuess(roomID, guesser, "appel")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.True(t, res.Close)
	require.Len(t, v.Guesses, 1)
	assert.False(t, v.Guesses[0].IsCorrect)

	res, _, err = f.mgr.SubmitGuess(roomID, guesser, "zebra")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.False(t, res.Close)
}

func TestSubmitGuess_AllCorrectEndsTurnEarly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, ids := startedGame(t, f, "Alice", "Bob")
	drawer := drawerOf(t, f, roomID)
	guesser := guesserOf(t, ids, drawer)

	// two players: one eligible guesser, so a correct guess ends the turn
	res, v, err := f.mgr.SubmitGuess(roomID, guesser, "apple")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, StatusWordSelection, v.Status, "next turn begins immediately")
	assert.Equal(t, 2, v.CurrentTurn)

	// second correct guess for the same player in the new turn is fine,
	// but within one turn it is a conflict
	_, err = f.mgr.SelectWord(roomID, drawerOf(t, f, roomID), 0)
	require.NoError(t, err)
}

func TestSubmitGuess_OneCorrectGuessPerTurn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, ids := startedGame(t, f, "Alice", "Bob", "Carol")
	drawer := drawerOf(t, f, roomID)
	guesser := guesserOf(t, ids, drawer)

	res, _, err := f.mgr.SubmitGuess(roomID, guesser, "apple")
	require.NoError(t, err)
	require.True(t, res.Correct)

	// three players: one more eligible guesser, turn still running
	_, _, err = f.mgr.SubmitGuess(roomID, guesser, "apple")
	assert.ErrorIs(t, err, ErrAlreadyGuessed)
}

func TestSubmitGuess_ConcurrentGuessersStayConsistent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	names := []string{"Alice", "Bob", "Carol", "Dave", "Erin"}
	roomID, ids := startedGame(t, f, names...)
	drawer := drawerOf(t, f, roomID)

	var wg sync.WaitGroup
	for _, id := range ids {
		if id == drawer {
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _, err := f.mgr.SubmitGuess(roomID, id, "apple")
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	// all four eligible guessers correct: the turn must have ended exactly once
	v, err := f.mgr.GetViewModel(roomID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, v.CurrentTurn)

	total := 0
	for _, p := range v.Players {
		total += p.Score
	}
	// 4 guessers x 200 plus 4 drawer bonuses x 100
	assert.Equal(t, 1200, total)
}

func TestHandleTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, _ := startedGame(t, f, "Alice", "Bob")

	v, err := f.mgr.HandleTimeout(roomID)
	require.NoError(t, err)
	assert.Equal(t, StatusWordSelection, v.Status)
	assert.Equal(t, 2, v.CurrentTurn)

	// timeout outside the playing phase is rejected
	_, err = f.mgr.HandleTimeout(roomID)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestRoundTick_ExpiresTurn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, _ := startedGame(t, f, "Alice", "Bob")

	tick := f.sched.lastTick()

	// before expiry the tick only republishes
	before := f.sink.count(roomID)
	tick.fire(tick.roomID, tick.gen)
	v, err := f.mgr.GetViewModel(roomID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, v.Status)
	assert.Greater(t, f.sink.count(roomID), before)

	f.clock.Advance(61 * time.Second)
	tick.fire(tick.roomID, tick.gen)

	v, err = f.mgr.GetViewModel(roomID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusWordSelection, v.Status)
	assert.Equal(t, 2, v.CurrentTurn)

	// a stale tick firing after the turn advanced is a no-op
	tick.fire(tick.roomID, tick.gen)
	v, err = f.mgr.GetViewModel(roomID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, v.CurrentTurn)
}

func TestGameFinishesAfterTotalTurns(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, _ := startedGame(t, f, "Alice", "Bob")

	// 2 players x 2 rounds = 4 turns; the first is already running
	for turn := 1; turn <= 4; turn++ {
		v, err := f.mgr.GetViewModel(roomID, "")
		require.NoError(t, err)
		if v.Status == StatusWordSelection {
			_, err = f.mgr.SelectWord(roomID, v.CurrentDrawer, 0)
			require.NoError(t, err)
		}
		_, err = f.mgr.HandleTimeout(roomID)
		require.NoError(t, err)
	}

	v, err := f.mgr.GetViewModel(roomID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, v.Status)
	assert.Empty(t, v.CurrentDrawer)
	assert.Empty(t, v.CurrentWord)
	assert.Zero(t, v.TimeRemaining)
	assert.True(t, f.sched.canceled(roomID))
}

func TestLeaveGame(t *testing.T) {
	t.Parallel()

	t.Run("host leaving reassigns host and drawer leaving ends turn", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		roomID, ids := startedGame(t, f, "Alice", "Bob", "Carol")
		drawer := drawerOf(t, f, roomID)

		require.NoError(t, f.mgr.LeaveGame(roomID, drawer))

		v, err := f.mgr.GetViewModel(roomID, "")
		require.NoError(t, err)
		assert.Len(t, v.Players, 2)
		assert.NotEqual(t, drawer, v.CurrentDrawer)
		assert.Equal(t, 2, v.CurrentTurn, "drawer leaving ends the turn")
		assert.Equal(t, 6, v.TotalTurns, "leave does not shrink the turn budget")

		hosts := 0
		for _, p := range v.Players {
			if p.IsHost {
				hosts++
			}
		}
		assert.Equal(t, 1, hosts, "exactly one host after reassignment")
		_ = ids
	})

	t.Run("last guesser leaving ends the turn", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		roomID, ids := startedGame(t, f, "Alice", "Bob", "Carol")
		drawer := drawerOf(t, f, roomID)

		// one of the two guessers gets the word, the other leaves
		var guessed, leaver string
		for _, id := range ids {
			if id == drawer {
				continue
			}
			if guessed == "" {
				guessed = id
			} else {
				leaver = id
			}
		}
		_, _, err := f.mgr.SubmitGuess(roomID, guessed, "apple")
		require.NoError(t, err)

		require.NoError(t, f.mgr.LeaveGame(roomID, leaver))

		v, err := f.mgr.GetViewModel(roomID, "")
		require.NoError(t, err)
		assert.Equal(t, 2, v.CurrentTurn)
	})

	t.Run("room deleted when emptied", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		roomID, hostID, _, err := f.mgr.CreateGame("Alice", defaultSettings())
		require.NoError(t, err)

		require.NoError(t, f.mgr.LeaveGame(roomID, hostID))
		assert.Equal(t, 0, f.mgr.RoomCount())
		assert.True(t, f.sched.canceled(roomID))

		_, err = f.mgr.GetViewModel(roomID, "")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("unknown player", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		roomID, _, _, err := f.mgr.CreateGame("Alice", defaultSettings())
		require.NoError(t, err)
		assert.ErrorIs(t, f.mgr.LeaveGame(roomID, "ghost"), ErrPlayerNotFound)
	})
}

func TestSetOnline(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, hostID, _, err := f.mgr.CreateGame("Alice", defaultSettings())
	require.NoError(t, err)

	v, err := f.mgr.SetOnline(roomID, hostID, false)
	require.NoError(t, err)
	assert.False(t, v.Players[0].IsOnline)
	assert.Len(t, v.Players, 1, "going offline does not remove the player")

	v, err = f.mgr.SetOnline(roomID, hostID, true)
	require.NoError(t, err)
	assert.True(t, v.Players[0].IsOnline)

	_, err = f.mgr.SetOnline(roomID, "ghost", true)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestSweepInactive(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	staleID, _, _, err := f.mgr.CreateGame("Alice", defaultSettings())
	require.NoError(t, err)

	f.clock.Advance(31 * time.Minute)

	freshID, _, _, err := f.mgr.CreateGame("Bob", defaultSettings())
	require.NoError(t, err)

	removed := f.mgr.SweepInactive(30 * time.Minute)
	assert.Equal(t, 1, removed)
	assert.True(t, f.sched.canceled(staleID), "evicted room's timer is canceled")

	_, err = f.mgr.GetViewModel(staleID, "")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = f.mgr.GetViewModel(freshID, "")
	assert.NoError(t, err)
}

func TestSweepInactive_InvalidatesEvictedRoomTimers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	roomID, _, _, err := f.mgr.CreateGame("Alice", defaultSettings())
	require.NoError(t, err)

	r, err := f.mgr.room(roomID)
	require.NoError(t, err)
	r.mu.Lock()
	gen := r.timerGen
	r.mu.Unlock()

	f.clock.Advance(31 * time.Minute)
	require.Equal(t, 1, f.mgr.SweepInactive(30*time.Minute))

	// A deadline handler already holding the room pointer must fail its
	// generation check instead of rescheduling for the evicted room.
	r.mu.Lock()
	assert.Greater(t, r.timerGen, gen)
	r.mu.Unlock()
}

type funcNotifier struct {
	fn func(roomID string, views map[string]View)
}

func (n funcNotifier) Publish(roomID string, views map[string]View) { n.fn(roomID, views) }

func TestJoinGame_SurvivesEvictionDuringPublish(t *testing.T) {
	t.Parallel()

	// The notifier fires between the mutation and the reply. Evicting the
	// room in that window must not turn a successful join into an error.
	var mgr *Manager
	clock := newFakeClock()
	publishes := 0
	n := funcNotifier{fn: func(string, map[string]View) {
		publishes++
		if publishes == 2 { // the create publishes first, the join second
			mgr.SweepInactive(-1)
		}
	}}
	mgr = NewManager(zerolog.Nop(),
		WithClock(clock.Now),
		WithScheduler(&fakeScheduler{}),
		WithNotifier(n),
		WithWordPicker(fixedPicker("apple", "bread", "candy")),
	)

	roomID, _, _, err := mgr.CreateGame("Alice", defaultSettings())
	require.NoError(t, err)

	bobID, v, err := mgr.JoinGame(roomID, "Bob")
	require.NoError(t, err)
	assert.NotEmpty(t, bobID)
	assert.Len(t, v.Players, 2)
	assert.Equal(t, 0, mgr.RoomCount(), "room evicted during the publish")
}

// TestFullGameScenario walks the complete happy path from the API surface.
func TestFullGameScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	roomID, aliceID, _, err := f.mgr.CreateGame("Alice", Settings{Rounds: 2, TimePerRound: 30, Difficulty: words.Easy})
	require.NoError(t, err)

	bobID, _, err := f.mgr.JoinGame(roomID, "Bob")
	require.NoError(t, err)

	v, err := f.mgr.StartGame(roomID, aliceID)
	require.NoError(t, err)
	assert.Equal(t, StatusWordSelection, v.Status)
	assert.Equal(t, 4, v.TotalTurns)
	assert.Contains(t, []string{aliceID, bobID}, v.CurrentDrawer)

	drawerView, err := f.mgr.GetViewModel(roomID, v.CurrentDrawer)
	require.NoError(t, err)
	require.Len(t, drawerView.WordChoices, 3)

	selected := drawerView.WordChoices[1]
	v, err = f.mgr.SelectWord(roomID, drawerView.CurrentDrawer, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, v.Status)

	drawerView, err = f.mgr.GetViewModel(roomID, drawerView.CurrentDrawer)
	require.NoError(t, err)
	assert.Equal(t, selected, drawerView.CurrentWord)

	guesser := aliceID
	if drawerView.CurrentDrawer == aliceID {
		guesser = bobID
	}
	res, v, err := f.mgr.SubmitGuess(roomID, guesser, selected)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Positive(t, playerByID(t, v, guesser).Score)
	assert.Positive(t, playerByID(t, v, drawerView.CurrentDrawer).Score)
	assert.Equal(t, 2, v.CurrentTurn, "single eligible guesser ends the turn")

	// play out the remaining three turns
	for {
		v, err = f.mgr.GetViewModel(roomID, "")
		require.NoError(t, err)
		if v.Status == StatusFinished {
			break
		}
		if v.Status == StatusWordSelection {
			_, err = f.mgr.SelectWord(roomID, v.CurrentDrawer, 0)
			require.NoError(t, err)
			continue
		}
		_, err = f.mgr.HandleTimeout(roomID)
		require.NoError(t, err)
	}

	assert.Equal(t, StatusFinished, v.Status)
	assert.Equal(t, 4, v.CurrentTurn)
}
