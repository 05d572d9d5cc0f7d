package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chiselcad/qrelief/pkg/importer"
)

// BatchState is the explicit batch lifecycle: keys are loaded from a file,
// the user confirms, and only then does the batch run. Modeling this as a
// state machine keeps the load and execute steps honest about ordering
// instead of coordinating through ad hoc flags.
type BatchState int

const (
	// Idle: no key file loaded yet.
	Idle BatchState = iota
	// FileLoaded: keys are loaded and await confirmation.
	FileLoaded
	// Confirmed: the batch may run.
	Confirmed
)

func (s BatchState) String() string {
	switch s {
	case Idle:
		return "idle"
	case FileLoaded:
		return "file-loaded"
	case Confirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("BatchState(%d)", int(s))
	}
}

// ErrBatchState is returned when a transition is attempted out of order.
var ErrBatchState = errors.New("invalid batch state transition")

// BatchSession tracks one load-confirm-run cycle.
type BatchSession struct {
	state BatchState
	keys  []string
}

// NewBatchSession starts an idle session.
func NewBatchSession() *BatchSession {
	return &BatchSession{state: Idle}
}

// State returns the current lifecycle state.
func (b *BatchSession) State() BatchState {
	return b.state
}

// Keys returns the loaded keys in file order.
func (b *BatchSession) Keys() []string {
	return b.keys
}

// LoadFile reads keys from a tabular file (.csv or .xlsx by extension) and
// moves the session to FileLoaded. Loading is allowed from any state and
// replaces previously loaded keys, the way re-browsing for a file does.
func (b *BatchSession) LoadFile(path string) error {
	var (
		keys []string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		keys, err = importer.KeysFromExcel(path)
	default:
		keys, err = importer.Keys(path)
	}
	if err != nil {
		b.state = Idle
		b.keys = nil
		return err
	}
	b.keys = keys
	b.state = FileLoaded
	return nil
}

// Confirm marks the loaded keys as approved for execution.
func (b *BatchSession) Confirm() error {
	if b.state != FileLoaded {
		return fmt.Errorf("confirm from %s: %w", b.state, ErrBatchState)
	}
	if len(b.keys) == 0 {
		return fmt.Errorf("confirm with no keys: %w", ErrBatchState)
	}
	b.state = Confirmed
	return nil
}

// Run executes the confirmed batch and resets the session to Idle.
func (b *BatchSession) Run(r *Runner, proto Request) ([]KeyResult, error) {
	if b.state != Confirmed {
		return nil, fmt.Errorf("run from %s: %w", b.state, ErrBatchState)
	}
	results := r.RunBatch(b.keys, proto)
	b.state = Idle
	b.keys = nil
	return results, nil
}
