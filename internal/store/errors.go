package store

import (
	"errors"
	"fmt"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCorpus is returned when a corpus carries a cycle mode the engine does not know.
var ErrInvalidCorpus = errors.New("invalid corpus")

func checkDecision(d domain.CycleDecision) error {
	if !domain.ValidCycleMode(string(d.Mode)) {
		return fmt.Errorf("%w: unknown cycle mode %q", ErrInvalidCorpus, d.Mode)
	}
	return nil
}
