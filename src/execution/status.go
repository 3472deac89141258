package execution

import "panicpod/src/model"

// CanTransition encodes the legal node transitions:
// pending -> processing -> {success, failed}. Terminal states are frozen;
// the only way a node is born success is the skip shortcut at construction.
func CanTransition(from, to model.StepStatus) bool {
	switch from {
	case model.StatusPending:
		return to == model.StatusProcessing
	case model.StatusProcessing:
		return to == model.StatusSuccess || to == model.StatusFailed
	default:
		return false
	}
}

// Aggregate rolls child statuses up to their parent. The rule is total over
// the step variants: success iff every child is success (skip nodes are
// constructed success), processing if any child is processing, else
// pending. A failed child does not propagate here; the orchestrator marks
// parents failed explicitly.
func Aggregate(children []model.ExecutionStep) model.StepStatus {
	if len(children) == 0 {
		return model.StatusPending
	}

	allSuccess := true
	for _, child := range children {
		if child.Status == model.StatusProcessing {
			return model.StatusProcessing
		}
		if child.Status != model.StatusSuccess {
			allSuccess = false
		}
	}

	if allSuccess {
		return model.StatusSuccess
	}
	return model.StatusPending
}
