// Package alarm holds the alarm collection and the matcher that turns a
// matching time sample into a single ringing alarm.
package alarm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLabel is used when an alarm is added without a label.
const DefaultLabel = "Alarm"

var (
	// ErrInvalidTime is returned for times not in 24-hour HH:MM form.
	ErrInvalidTime = errors.New("invalid alarm time")
	// ErrNotFound is returned when no alarm has the requested id.
	ErrNotFound = errors.New("alarm not found")
)

var hhmm = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidateTime checks that s is a 24-hour "HH:MM" time.
func ValidateTime(s string) error {
	if !hhmm.MatchString(s) {
		return fmt.Errorf("%w: %q (want HH:MM, 00:00-23:59)", ErrInvalidTime, s)
	}
	return nil
}

// Alarm is a configured wake-up time. Only Enabled changes after creation.
type Alarm struct {
	ID        string    `json:"id"`
	Time      string    `json:"time"`
	Label     string    `json:"label"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is an insertion-ordered, in-memory alarm collection.
type Store struct {
	mu     sync.RWMutex
	alarms []Alarm
	newID  func() (uuid.UUID, error)
}

// NewStore creates an empty store. IDs are time-ordered UUIDv7 values.
func NewStore() *Store {
	return &Store{newID: uuid.NewV7}
}

// Add appends a new enabled alarm.
func (s *Store) Add(at, label string, now time.Time) (Alarm, error) {
	at = strings.TrimSpace(at)
	if err := ValidateTime(at); err != nil {
		return Alarm{}, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultLabel
	}

	id, err := s.newID()
	if err != nil {
		return Alarm{}, fmt.Errorf("failed to generate alarm id: %w", err)
	}

	a := Alarm{
		ID:        id.String(),
		Time:      at,
		Label:     label,
		Enabled:   true,
		CreatedAt: now,
	}

	s.mu.Lock()
	s.alarms = append(s.alarms, a)
	s.mu.Unlock()
	return a, nil
}

// Toggle flips Enabled and returns the updated alarm.
func (s *Store) Toggle(id string) (Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alarms {
		if s.alarms[i].ID == id {
			s.alarms[i].Enabled = !s.alarms[i].Enabled
			return s.alarms[i], nil
		}
	}
	return Alarm{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the alarm and returns it.
func (s *Store) Delete(id string) (Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alarms {
		if s.alarms[i].ID == id {
			removed := s.alarms[i]
			s.alarms = append(s.alarms[:i], s.alarms[i+1:]...)
			return removed, nil
		}
	}
	return Alarm{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Get returns the alarm with the given id.
func (s *Store) Get(id string) (Alarm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.alarms {
		if a.ID == id {
			return a, true
		}
	}
	return Alarm{}, false
}

// List returns a copy of all alarms in insertion order.
func (s *Store) List() []Alarm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alarm, len(s.alarms))
	copy(out, s.alarms)
	return out
}

// Len returns the number of alarms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alarms)
}

// EnabledCount returns the number of enabled alarms.
func (s *Store) EnabledCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.alarms {
		if a.Enabled {
			n++
		}
	}
	return n
}
