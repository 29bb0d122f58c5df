package simulator

import (
	"math/rand"
	"time"
)

// SimulationState tracks the cumulative counters a real door sensor
// would report. Entries and exits only ever grow; occupancy is their
// difference clamped to capacity.
type SimulationState struct {
	rng      *rand.Rand
	capacity int

	current int
	entries int
	exits   int

	songIndex    int
	songSwitchAt time.Time
}

// NewSimulationState seeds a fresh state for a venue of the given capacity.
func NewSimulationState(capacity int, seed int64) *SimulationState {
	return &SimulationState{
		rng:      rand.New(rand.NewSource(seed)),
		capacity: capacity,
	}
}

// Advance moves the crowd forward one tick. Arrival and departure
// pressure follow the evening activity curve for the wall-clock hour.
func (s *SimulationState) Advance(at time.Time) {
	activity := activityForHour(at.Hour())

	// Arrivals scale with activity and free capacity.
	free := s.capacity - s.current
	if free < 0 {
		free = 0
	}
	arrivals := s.rng.Intn(maxArrivalsPerTick+1) * free / max(s.capacity, 1)
	arrivals = int(float64(arrivals) * activity)

	// Departures pick up as activity fades and the room is full.
	departPressure := (1 - activity) + float64(s.current)/float64(max(s.capacity, 1))
	departures := int(float64(s.rng.Intn(maxDeparturesPerTick+1)) * departPressure / 2)
	if departures > s.current+arrivals {
		departures = s.current + arrivals
	}

	s.entries += arrivals
	s.exits += departures
	s.current += arrivals - departures
	if s.current < 0 {
		s.current = 0
	}
	if s.current > s.capacity {
		s.current = s.capacity
	}

	if at.After(s.songSwitchAt) {
		s.songIndex = s.rng.Intn(len(playlist))
		s.songSwitchAt = at.Add(time.Duration(150+s.rng.Intn(120)) * time.Second)
	}
}

// Occupancy returns the current cumulative counters.
func (s *SimulationState) Occupancy() (current, entries, exits int) {
	return s.current, s.entries, s.exits
}
