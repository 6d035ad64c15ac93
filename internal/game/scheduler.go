package game

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// turnScheduler owns at most one live timer per room: either the
// word-selection deadline or the round countdown tick. Firings carry the
// timer generation they were scheduled under so the manager can discard
// anything that outlived its turn. Tests substitute a recording fake.
type turnScheduler interface {
	// ScheduleDeadline fires once after d unless replaced or canceled.
	ScheduleDeadline(roomID string, gen uint64, d time.Duration, fire func(roomID string, gen uint64))
	// ScheduleTick fires repeatedly every second until replaced or canceled.
	ScheduleTick(roomID string, gen uint64, fire func(roomID string, gen uint64))
	// Cancel stops the room's live timer, if any. Idempotent.
	Cancel(roomID string)
}

type scheduler struct {
	mu     sync.Mutex
	timers map[string]*roomTimer
	log    zerolog.Logger
}

type roomTimer struct {
	gen   uint64
	timer *time.Timer
	stop  chan struct{}
}

func newScheduler(log zerolog.Logger) *scheduler {
	return &scheduler{
		timers: make(map[string]*roomTimer),
		log:    log,
	}
}

func (s *scheduler) ScheduleDeadline(roomID string, gen uint64, d time.Duration, fire func(string, uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(roomID)
	rt := &roomTimer{gen: gen}
	rt.timer = time.AfterFunc(d, func() {
		s.clear(roomID, rt)
		fire(roomID, gen)
	})
	s.timers[roomID] = rt
	s.log.Debug().Str("room", roomID).Uint64("gen", gen).Dur("after", d).Msg("deadline scheduled")
}

func (s *scheduler) ScheduleTick(roomID string, gen uint64, fire func(string, uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(roomID)
	rt := &roomTimer{gen: gen, stop: make(chan struct{})}
	s.timers[roomID] = rt

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-rt.stop:
				return
			case <-ticker.C:
				fire(roomID, gen)
			}
		}
	}()
	s.log.Debug().Str("room", roomID).Uint64("gen", gen).Msg("round tick scheduled")
}

func (s *scheduler) Cancel(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(roomID)
}

func (s *scheduler) cancelLocked(roomID string) {
	rt, ok := s.timers[roomID]
	if !ok {
		return
	}
	delete(s.timers, roomID)
	if rt.timer != nil {
		rt.timer.Stop()
	}
	if rt.stop != nil {
		close(rt.stop)
	}
}

// clear removes a timer entry after its one-shot firing, but only if it is
// still the live one; a replacement scheduled in the meantime stays.
func (s *scheduler) clear(roomID string, rt *roomTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.timers[roomID]; ok && cur == rt {
		delete(s.timers, roomID)
	}
}
