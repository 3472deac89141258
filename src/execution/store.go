package execution

import (
	"errors"
	"sync"
	"time"

	"panicpod/src/model"
)

var (
	ErrAlreadyLaunched = errors.New("an evacuation run is already in progress")
	ErrNoSuchNode      = errors.New("execution node does not exist")
	ErrNodeSkipped     = errors.New("skipped nodes are immutable")
	ErrBadTransition   = errors.New("illegal status transition")
)

// StepUpdate carries the mutable fields of a node update. TxHash and
// Warning are applied only when non-empty.
type StepUpdate struct {
	Status  model.StepStatus
	TxHash  string
	Warning string
}

const subscriberBuffer = 64

// Store holds the state of the current evacuation run: the execution tree
// and the append-only log stream. All access is serialized; readers get
// deep copies so callers never observe partial updates. One run at a time:
// Start refuses while a run is launched, and only Reset rearms it.
type Store struct {
	mu          sync.Mutex
	launched    bool
	executions  []model.ChainExecution
	logs        []model.ExecutionLogEntry
	subscribers map[int]chan model.ExecutionLogEntry
	nextSub     int
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		subscribers: make(map[int]chan model.ExecutionLogEntry),
		now:         time.Now,
	}
}

// Start installs a freshly seeded tree and arms the single-run guard.
func (s *Store) Start(tree []model.ChainExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.launched {
		return ErrAlreadyLaunched
	}
	s.launched = true
	s.executions = copyExecutions(tree)
	s.logs = nil
	return nil
}

func (s *Store) Launched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launched
}

// Reset clears the run state so a new evacuation can start. Subscribers
// stay attached across runs.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launched = false
	s.executions = nil
	s.logs = nil
}

func (s *Store) Executions() []model.ChainExecution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyExecutions(s.executions)
}

func (s *Store) Logs() []model.ExecutionLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	logs := make([]model.ExecutionLogEntry, len(s.logs))
	copy(logs, s.logs)
	return logs
}

// AppendLog records a log entry and fans it out to subscribers. A
// subscriber that is not keeping up misses entries rather than blocking
// the run; the full history stays available through Logs.
func (s *Store) AppendLog(message string, logType model.LogType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := model.ExecutionLogEntry{
		Timestamp: s.now(),
		Message:   message,
		Type:      logType,
	}
	s.logs = append(s.logs, entry)

	for _, ch := range s.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
}

// Subscribe returns a channel receiving every log entry appended after the
// call, plus a cancel func that detaches and closes it.
func (s *Store) Subscribe() (<-chan model.ExecutionLogEntry, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan model.ExecutionLogEntry, subscriberBuffer)
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// UpdateStep transitions a top-level step and recomputes the chain root.
func (s *Store) UpdateStep(chainIdx, stepIdx int, update StepUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	step, err := s.step(chainIdx, stepIdx)
	if err != nil {
		return err
	}
	if err := applyUpdate(step, update); err != nil {
		return err
	}
	s.recomputeChain(chainIdx)
	return nil
}

// UpdateSubStep transitions a swap substep, then recomputes its parent
// step and the chain root.
func (s *Store) UpdateSubStep(chainIdx, stepIdx, subIdx int, update StepUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	step, err := s.step(chainIdx, stepIdx)
	if err != nil {
		return err
	}
	if subIdx < 0 || subIdx >= len(step.SubSteps) {
		return ErrNoSuchNode
	}
	if err := applyUpdate(&step.SubSteps[subIdx], update); err != nil {
		return err
	}

	// A failed parent is set explicitly by FailStep and stays failed.
	if step.Status != model.StatusFailed {
		step.Status = Aggregate(step.SubSteps)
	}
	s.recomputeChain(chainIdx)
	return nil
}

// FailStep forces a composite step into failed after one of its substeps
// failed. Aggregation never produces failed on its own.
func (s *Store) FailStep(chainIdx, stepIdx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	step, err := s.step(chainIdx, stepIdx)
	if err != nil {
		return err
	}
	step.Status = model.StatusFailed
	s.executions[chainIdx].Status = model.StatusFailed
	return nil
}

// FailChain marks a whole chain failed. Other chains are unaffected.
func (s *Store) FailChain(chainIdx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chainIdx < 0 || chainIdx >= len(s.executions) {
		return ErrNoSuchNode
	}
	s.executions[chainIdx].Status = model.StatusFailed
	return nil
}

func (s *Store) step(chainIdx, stepIdx int) (*model.ExecutionStep, error) {
	if chainIdx < 0 || chainIdx >= len(s.executions) {
		return nil, ErrNoSuchNode
	}
	chain := &s.executions[chainIdx]
	if stepIdx < 0 || stepIdx >= len(chain.Steps) {
		return nil, ErrNoSuchNode
	}
	return &chain.Steps[stepIdx], nil
}

func (s *Store) recomputeChain(chainIdx int) {
	chain := &s.executions[chainIdx]
	if chain.Status == model.StatusFailed {
		return
	}
	chain.Status = Aggregate(chain.Steps)
}

func applyUpdate(step *model.ExecutionStep, update StepUpdate) error {
	if step.Skipped() {
		return ErrNodeSkipped
	}
	if !CanTransition(step.Status, update.Status) {
		return ErrBadTransition
	}
	step.Status = update.Status
	if update.TxHash != "" {
		step.TxHash = update.TxHash
	}
	if update.Warning != "" {
		step.Warning = update.Warning
	}
	return nil
}

func copyExecutions(tree []model.ChainExecution) []model.ChainExecution {
	out := make([]model.ChainExecution, len(tree))
	for i, chain := range tree {
		out[i] = chain
		out[i].Steps = copySteps(chain.Steps)
	}
	return out
}

func copySteps(steps []model.ExecutionStep) []model.ExecutionStep {
	if steps == nil {
		return nil
	}
	out := make([]model.ExecutionStep, len(steps))
	for i, step := range steps {
		out[i] = step
		out[i].SubSteps = copySteps(step.SubSteps)
	}
	return out
}
