package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/brunoga/deep"
)

// SnapshotVersion tags persisted snapshots. Payloads carrying any other
// version are discarded on load.
const SnapshotVersion = 3

// Snapshot is a frozen copy of a quote and its computed prices.
type Snapshot struct {
	ID           string    `json:"id"`
	Version      int       `json:"version"`
	FrozenAt     time.Time `json:"frozenAt"`
	AircraftName string    `json:"aircraftName"`
	State        State     `json:"state"`
	Results      Results   `json:"results"`
	MapImage     string    `json:"mapImage,omitempty"`
}

// NewSnapshot deep-copies state and results so later edits to the session
// cannot leak into the snapshot.
func NewSnapshot(id string, state State, results Results, aircraftName, mapImage string, at time.Time) (Snapshot, error) {
	s, err := deep.Copy(state)
	if err != nil {
		return Snapshot{}, fmt.Errorf("copy quote state: %w", err)
	}
	r, err := deep.Copy(results)
	if err != nil {
		return Snapshot{}, fmt.Errorf("copy quote results: %w", err)
	}

	return Snapshot{
		ID:           id,
		Version:      SnapshotVersion,
		FrozenAt:     at.UTC(),
		AircraftName: aircraftName,
		State:        s,
		Results:      r,
		MapImage:     mapImage,
	}, nil
}

// Clone returns an independent copy of s.
func (s Snapshot) Clone() Snapshot {
	return deep.MustCopy(s)
}

// Title is the human label used when listing saved quotes.
func (s Snapshot) Title() string {
	codes := s.State.RouteCodes()
	title := s.AircraftName
	if len(codes) >= 2 {
		title = strings.TrimSpace(fmt.Sprintf("%s %s-%s", title, codes[0], codes[1]))
	}
	if s.State.ClientName != "" {
		title = s.State.ClientName + ": " + title
	}
	return title
}

// PrimaryTotal is the distance total when present, else the time total.
func (s Snapshot) PrimaryTotal() float64 {
	if s.Results.Distance != nil {
		return s.Results.Distance.Total
	}
	if s.Results.Time != nil {
		return s.Results.Time.Total
	}
	return 0
}
