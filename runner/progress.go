package runner

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-verbench/types"
)

// ProgressIndicator receives lifecycle events from the driver
type ProgressIndicator interface {
	StartBatch(suite string, tag string, repetition int, inputs int)
	StartInput(input string)
	CompleteInput(input string, outcome types.Outcome, skipped bool)
	CompleteBatch(suite string, tag string)
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartBatch(suite string, tag string, repetition int, inputs int) {}
func (n *noOpProgressIndicator) StartInput(input string)                                         {}
func (n *noOpProgressIndicator) CompleteInput(input string, outcome types.Outcome, skipped bool) {}
func (n *noOpProgressIndicator) CompleteBatch(suite string, tag string)                          {}

// ProgressSnapshot is a point-in-time view of a session.
type ProgressSnapshot struct {
	RunID        string         `json:"run_id"`
	Suite        string         `json:"suite"`
	Tag          string         `json:"tag"`
	Repetition   int            `json:"repetition"`
	CurrentInput string         `json:"current_input,omitempty"`
	InputStarted *time.Time     `json:"input_started,omitempty"`
	Completed    int            `json:"completed"`
	Skipped      int            `json:"skipped"`
	Total        int            `json:"total"`
	Outcomes     map[string]int `json:"outcomes"`
	StartedAt    time.Time      `json:"started_at"`
	Elapsed      string         `json:"elapsed"`
}

// Tracker is a ProgressIndicator that logs every event and keeps a snapshot
// for the status endpoint.
type Tracker struct {
	logger log.Logger
	mu     sync.RWMutex

	runID        string
	total        int
	completed    int
	skipped      int
	outcomes     map[string]int
	suite        string
	tag          string
	repetition   int
	currentInput string
	inputStarted time.Time
	startedAt    time.Time
}

// NewTracker creates a tracker for a session of total inputs across all batches.
func NewTracker(logger log.Logger, runID string, total int) *Tracker {
	return &Tracker{
		logger:    logger,
		runID:     runID,
		total:     total,
		outcomes:  make(map[string]int),
		startedAt: time.Now(),
	}
}

func (t *Tracker) StartBatch(suite string, tag string, repetition int, inputs int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.suite = suite
	t.tag = tag
	t.repetition = repetition

	t.logger.Info("Starting batch", "suite", suite, "tags", tag, "i", repetition, "inputs", inputs)
}

func (t *Tracker) StartInput(input string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.currentInput = input
	t.inputStarted = time.Now()
}

func (t *Tracker) CompleteInput(input string, outcome types.Outcome, skipped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	if skipped {
		t.skipped++
	} else {
		t.outcomes[outcome.String()]++
	}
	t.currentInput = ""

	t.logger.Info("Progress",
		"completed", t.completed,
		"total", t.total,
		"skipped", t.skipped,
		"elapsed", time.Since(t.startedAt).Truncate(time.Second))
}

func (t *Tracker) CompleteBatch(suite string, tag string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.logger.Info("Completed batch", "suite", suite, "tags", tag, "completed", t.completed, "total", t.total)
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() ProgressSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	outcomes := make(map[string]int, len(t.outcomes))
	for k, v := range t.outcomes {
		outcomes[k] = v
	}
	snap := ProgressSnapshot{
		RunID:        t.runID,
		Suite:        t.suite,
		Tag:          t.tag,
		Repetition:   t.repetition,
		CurrentInput: t.currentInput,
		Completed:    t.completed,
		Skipped:      t.skipped,
		Total:        t.total,
		Outcomes:     outcomes,
		StartedAt:    t.startedAt,
		Elapsed:      time.Since(t.startedAt).Truncate(time.Second).String(),
	}
	if t.currentInput != "" {
		started := t.inputStarted
		snap.InputStarted = &started
	}
	return snap
}
