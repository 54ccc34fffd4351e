package positions

import (
	"errors"
	"sync"
	"time"

	"github.com/travigo/livebus/pkg/ctdf"
)

var ErrPositionNotFound = errors.New("position not found")

// Store holds the last known position of every vehicle currently sharing.
// All access goes through a single lock over the whole map.
type Store struct {
	mutex     sync.RWMutex
	positions map[string]ctdf.Position

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		positions: map[string]ctdf.Position{},
		now:       time.Now,
	}
}

// Upsert records the position for busNumber stamped with the current server time,
// replacing any previous one. The boolean reports whether the vehicle was not sharing before.
func (s *Store) Upsert(busNumber string, latitude float64, longitude float64) (ctdf.Position, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, exists := s.positions[busNumber]

	position := ctdf.Position{
		Latitude:  latitude,
		Longitude: longitude,
		Timestamp: s.now().UnixMilli(),
	}
	s.positions[busNumber] = position

	return position, !exists
}

func (s *Store) Get(busNumber string) (ctdf.Position, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	position, exists := s.positions[busNumber]
	if !exists {
		return ctdf.Position{}, ErrPositionNotFound
	}

	return position, nil
}

// Remove ends sharing for busNumber. ErrPositionNotFound means there was nothing to stop.
func (s *Store) Remove(busNumber string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.positions[busNumber]; !exists {
		return ErrPositionNotFound
	}
	delete(s.positions, busNumber)

	return nil
}

func (s *Store) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.positions)
}
