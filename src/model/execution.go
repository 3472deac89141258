package model

import "time"

type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusProcessing StepStatus = "processing"
	StatusSuccess    StepStatus = "success"
	StatusFailed     StepStatus = "failed"
)

// Terminal reports whether a status admits no further transitions.
func (s StepStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// ExecutionStep is one node of the execution tree (depth <= 2:
// chain -> step -> substep). A step carrying SkipReason is constructed in
// StatusSuccess and is never transitioned.
type ExecutionStep struct {
	Name       string          `json:"name"`
	Status     StepStatus      `json:"status"`
	TxHash     string          `json:"tx_hash,omitempty"`
	SkipReason string          `json:"skip_reason,omitempty"`
	Warning    string          `json:"warning,omitempty"`
	SubSteps   []ExecutionStep `json:"sub_steps,omitempty"`
}

// Skipped reports whether the step is a terminal skip node.
func (s *ExecutionStep) Skipped() bool {
	return s.SkipReason != ""
}

// ChainExecution is the per-chain root of the execution tree, created fresh
// for every run and discarded on reset.
type ChainExecution struct {
	Chain  string          `json:"chain"`
	Status StepStatus      `json:"status"`
	Steps  []ExecutionStep `json:"steps"`
}

type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogError   LogType = "error"
	LogWarning LogType = "warning"
)

// ExecutionLogEntry is one observable transition of a run. Entries are
// append-only for the lifetime of the run.
type ExecutionLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Type      LogType   `json:"type"`
}
