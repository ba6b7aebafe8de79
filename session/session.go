// Package session tracks named recurring daily trading windows and fires
// start/end transitions in each window's own timezone.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies a market session.
type Kind string

const (
	Asian   Kind = "asian"
	London  Kind = "london"
	NewYork Kind = "new_york"
	Overlap Kind = "overlap"
)

// Edge marks which side of a session window a transition crossed.
type Edge int

const (
	Start Edge = iota
	End
)

func (e Edge) String() string {
	if e == End {
		return "end"
	}
	return "start"
}

// Event is delivered to transition handlers at session start and end.
type Event struct {
	Kind Kind
	Edge Edge
	Time time.Time
}

// Config describes one session window. Start and End are local
// times-of-day in "HH:MM" form.
type Config struct {
	Kind     Kind   `json:"kind" yaml:"kind"`
	Start    string `json:"start" yaml:"start"`
	End      string `json:"end" yaml:"end"`
	Timezone string `json:"timezone" yaml:"timezone"`
	Enabled  bool   `json:"enabled" yaml:"enabled"`
}

// ConfigError reports an invalid session configuration. Registration is
// rejected whole; a bad session is never partially applied.
type ConfigError struct {
	Kind   Kind
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("session %s: %s", e.Kind, e.Reason)
}

// Validate reports whether the window would be accepted by a Clock.
func (c Config) Validate() error {
	_, err := newSession(c)
	return err
}

// tod is a time-of-day in seconds since local midnight.
type tod int

func parseTimeOfDay(s string) (tod, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("time %q must be in HH:MM format", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time %q must be in HH:MM format", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q must be in HH:MM format", s)
	}
	return tod((h*60 + m) * 60), nil
}

func (t tod) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/3600, int(t)%3600/60)
}

// Session is one registered window.
type Session struct {
	cfg   Config
	loc   *time.Location
	start tod
	end   tod
}

func newSession(cfg Config) (*Session, error) {
	start, err := parseTimeOfDay(cfg.Start)
	if err != nil {
		return nil, &ConfigError{Kind: cfg.Kind, Reason: err.Error()}
	}
	end, err := parseTimeOfDay(cfg.End)
	if err != nil {
		return nil, &ConfigError{Kind: cfg.Kind, Reason: err.Error()}
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &ConfigError{Kind: cfg.Kind, Reason: fmt.Sprintf("unknown timezone %q", tz)}
	}
	return &Session{cfg: cfg, loc: loc, start: start, end: end}, nil
}

// ActiveAt reports whether t falls inside the window. Windows with
// start > end wrap midnight: active iff t >= start or t <= end.
func (s *Session) ActiveAt(t time.Time) bool {
	lt := t.In(s.loc)
	now := tod(lt.Hour()*3600 + lt.Minute()*60 + lt.Second())
	if s.start > s.end {
		return now >= s.start || now <= s.end
	}
	return now >= s.start && now <= s.end
}

// Duration is the length of the window, wrapping midnight when needed.
func (s *Session) Duration() time.Duration {
	d := int(s.end) - int(s.start)
	if d < 0 {
		d += 24 * 3600
	}
	return time.Duration(d) * time.Second
}

// nextAt returns the first wall-clock occurrence of the given
// time-of-day strictly after the reference time, in the session's zone.
func (s *Session) nextAt(t tod, after time.Time) time.Time {
	lt := after.In(s.loc)
	next := time.Date(lt.Year(), lt.Month(), lt.Day(), int(t)/3600, int(t)%3600/60, 0, 0, s.loc)
	if !next.After(after) {
		next = time.Date(lt.Year(), lt.Month(), lt.Day()+1, int(t)/3600, int(t)%3600/60, 0, 0, s.loc)
	}
	return next
}

// NextStart returns the next session start after the given time.
func (s *Session) NextStart(after time.Time) time.Time {
	return s.nextAt(s.start, after)
}

// Info is a read-only snapshot of one session for reporting.
type Info struct {
	Kind      Kind
	Active    bool
	Start     string
	End       string
	Timezone  string
	Duration  time.Duration
	NextStart time.Time
}
