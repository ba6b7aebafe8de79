package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// kindPriority orders kinds for deterministic tie-breaks when several
// sessions are active at once.
var kindPriority = []Kind{Overlap, London, NewYork, Asian}

// trigger is one pending daily transition. Each session contributes a
// start and an end trigger; after firing, the trigger is rescheduled for
// the next calendar day.
type trigger struct {
	kind Kind
	edge Edge
	next time.Time
}

// Clock answers "which sessions are active now" and fires start/end
// transitions once per calendar day. State is always recomputed from the
// current time, so a missed wall-clock trigger can only delay the
// notification, never corrupt the active flags.
type Clock struct {
	mu       sync.RWMutex
	sessions map[Kind]*Session
	order    []Kind
	handlers map[Kind][]func(Event)
	triggers []*trigger
	now      func() time.Time
	log      zerolog.Logger
}

func NewClock(log zerolog.Logger) *Clock {
	return &Clock{
		sessions: make(map[Kind]*Session),
		handlers: make(map[Kind][]func(Event)),
		now:      time.Now,
		log:      log.With().Str("component", "session_clock").Logger(),
	}
}

// AddSession registers a session window. Invalid time strings or an
// unrecognized timezone reject the whole registration with a ConfigError.
// Enabled sessions get a daily start and end trigger.
func (c *Clock) AddSession(cfg Config) error {
	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sessions[cfg.Kind]; !ok {
		c.order = append(c.order, cfg.Kind)
	} else {
		// Re-registration replaces the window wholesale, including the
		// triggers the previous registration scheduled.
		kept := c.triggers[:0]
		for _, tr := range c.triggers {
			if tr.kind != cfg.Kind {
				kept = append(kept, tr)
			}
		}
		c.triggers = kept
	}
	c.sessions[cfg.Kind] = s

	if cfg.Enabled {
		now := c.now()
		c.triggers = append(c.triggers,
			&trigger{kind: cfg.Kind, edge: Start, next: s.nextAt(s.start, now)},
			&trigger{kind: cfg.Kind, edge: End, next: s.nextAt(s.end, now)},
		)
		c.log.Info().
			Str("session", string(cfg.Kind)).
			Str("start", s.start.String()).
			Str("end", s.end.String()).
			Str("timezone", cfg.Timezone).
			Msg("Scheduled session")
	}
	return nil
}

// OnTransition registers a handler for one session's start/end events.
// Handler panics are recovered per-handler so one failing subscriber
// cannot block the others.
func (c *Clock) OnTransition(kind Kind, fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = append(c.handlers[kind], fn)
}

// IsActive reports whether the session window contains the given time
// (current time when omitted). Disabled and unknown sessions are never
// active.
func (c *Clock) IsActive(kind Kind, at ...time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[kind]
	if !ok || !s.cfg.Enabled {
		return false
	}
	return s.ActiveAt(c.at(at))
}

// ActiveSessions evaluates every registered, enabled session and returns
// the active set in priority order.
func (c *Clock) ActiveSessions(at ...time.Time) []Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t := c.at(at)
	var active []Kind
	for _, kind := range c.orderedKinds() {
		s := c.sessions[kind]
		if s.cfg.Enabled && s.ActiveAt(t) {
			active = append(active, kind)
		}
	}
	return active
}

// CurrentSession returns the single session a new position should be
// tagged with. When sessions overlap the fixed kind priority breaks the
// tie; callers needing a different policy use ActiveSessions.
func (c *Clock) CurrentSession(at ...time.Time) (Kind, bool) {
	active := c.ActiveSessions(at...)
	if len(active) == 0 {
		return "", false
	}
	return active[0], true
}

// Overlapping returns the active set only when more than one session is
// active at the given time.
func (c *Clock) Overlapping(at ...time.Time) []Kind {
	active := c.ActiveSessions(at...)
	if len(active) > 1 {
		return active
	}
	return nil
}

// NextTransition returns the earliest pending trigger.
func (c *Clock) NextTransition() (Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var earliest *trigger
	for _, tr := range c.triggers {
		if earliest == nil || tr.next.Before(earliest.next) {
			earliest = tr
		}
	}
	if earliest == nil {
		return Event{}, false
	}
	return Event{Kind: earliest.kind, Edge: earliest.edge, Time: earliest.next}, true
}

// Sessions returns a reporting snapshot of every registered session.
func (c *Clock) Sessions(at ...time.Time) []Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t := c.at(at)
	infos := make([]Info, 0, len(c.sessions))
	for _, kind := range c.orderedKinds() {
		s := c.sessions[kind]
		infos = append(infos, Info{
			Kind:      kind,
			Active:    s.cfg.Enabled && s.ActiveAt(t),
			Start:     s.start.String(),
			End:       s.end.String(),
			Timezone:  s.loc.String(),
			Duration:  s.Duration(),
			NextStart: s.NextStart(t),
		})
	}
	return infos
}

// Run fires due triggers at ~1 Hz until the context is cancelled. An
// in-flight dispatch finishes before Run returns.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	c.log.Info().Msg("Session clock started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("Session clock stopped")
			return
		case <-ticker.C:
			c.firePending()
		}
	}
}

// firePending dispatches every trigger whose fire time has passed and
// reschedules it for the next day. Exported indirectly through Run; split
// out so tests can drive the clock without the ticker.
func (c *Clock) firePending() {
	now := c.now()

	c.mu.Lock()
	var due []Event
	for _, tr := range c.triggers {
		if tr.next.After(now) {
			continue
		}
		due = append(due, Event{Kind: tr.kind, Edge: tr.edge, Time: tr.next})
		s := c.sessions[tr.kind]
		at := s.start
		if tr.edge == End {
			at = s.end
		}
		tr.next = s.nextAt(at, now)
	}
	handlers := make(map[Kind][]func(Event), len(c.handlers))
	for k, hs := range c.handlers {
		handlers[k] = hs
	}
	c.mu.Unlock()

	for _, ev := range due {
		c.log.Info().
			Str("session", string(ev.Kind)).
			Str("edge", ev.Edge.String()).
			Msg("Session transition")
		for _, fn := range handlers[ev.Kind] {
			c.dispatch(fn, ev)
		}
	}
}

func (c *Clock) dispatch(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Str("session", string(ev.Kind)).
				Str("edge", ev.Edge.String()).
				Interface("panic", r).
				Msg("Session transition handler failed")
		}
	}()
	fn(ev)
}

func (c *Clock) at(at []time.Time) time.Time {
	if len(at) > 0 {
		return at[0]
	}
	return c.now()
}

func (c *Clock) orderedKinds() []Kind {
	seen := make(map[Kind]bool, len(c.order))
	var kinds []Kind
	for _, k := range kindPriority {
		if _, ok := c.sessions[k]; ok {
			kinds = append(kinds, k)
			seen[k] = true
		}
	}
	// Kinds outside the fixed priority list follow in registration order.
	rest := make([]Kind, 0)
	for _, k := range c.order {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(kinds, rest...)
}
