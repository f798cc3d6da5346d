package history

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
)

const (
	// DefaultLimit is used when List is called with a non-positive limit.
	DefaultLimit = 50

	// MaxLimit caps a single List call.
	MaxLimit = 200
)

var (
	// ErrLightIDRequired is returned when an operation is given an empty light ID.
	ErrLightIDRequired = errors.New("history: light id is required")

	// ErrInvalidRetention is returned by Prune for a non-positive duration.
	ErrInvalidRetention = errors.New("history: retention must be positive")
)

// Entry is one recorded state snapshot.
type Entry struct {
	ID         int64     `json:"id"`
	LightID    string    `json:"light_id"`
	State      State     `json:"state"`
	RecordedAt time.Time `json:"recorded_at"`
}

// State is the stored form of a light.State. Colors are kept as RRGGBB hex.
type State struct {
	On         bool    `json:"on"`
	Brightness *uint8  `json:"brightness,omitempty"`
	Color      *string `json:"rgb_color,omitempty"`
	Effect     *string `json:"effect,omitempty"`
}

// FromLight converts a light snapshot to its stored form.
func FromLight(s light.State) State {
	out := State{On: s.On, Brightness: s.Brightness, Effect: s.Effect}
	if s.Color != nil {
		hex := s.Color.Hex()
		out.Color = &hex
	}
	return out
}

// Repository stores and retrieves light state history.
//
// Implementations must be safe for concurrent use and store UTC timestamps.
type Repository interface {
	// Record appends a snapshot for lightID taken at the given time.
	Record(ctx context.Context, lightID string, state State, at time.Time) error

	// List returns up to limit entries for lightID, newest first.
	// limit is clamped to 1..MaxLimit, with DefaultLimit for limit <= 0.
	List(ctx context.Context, lightID string, limit int) ([]Entry, error)

	// Prune deletes entries older than now-olderThan and returns the count.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
