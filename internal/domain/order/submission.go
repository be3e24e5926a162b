package order

import (
	"fmt"

	"github.com/farmstore/backend/internal/domain/shared"
)

// SubmissionState is a step of the two-phase order write
type SubmissionState string

const (
	StateDraft        SubmissionState = "DRAFT"
	StateValidating   SubmissionState = "VALIDATING"
	StateWritingOrder SubmissionState = "WRITING_ORDER"
	StateWritingLines SubmissionState = "WRITING_LINES"
	StateCompensating SubmissionState = "COMPENSATING"
	StateCommitted    SubmissionState = "COMMITTED"
	StateRejected     SubmissionState = "REJECTED"
	// StateQueued is reached when the store is unreachable and the order is kept locally
	StateQueued SubmissionState = "QUEUED"
)

var submissionEdges = map[SubmissionState][]SubmissionState{
	StateDraft:        {StateValidating},
	StateValidating:   {StateWritingOrder, StateRejected, StateQueued},
	StateWritingOrder: {StateWritingLines, StateRejected, StateQueued},
	StateWritingLines: {StateCommitted, StateCompensating},
	StateCompensating: {StateRejected},
}

// IsTerminal returns true for states with no outgoing edge
func (s SubmissionState) IsTerminal() bool {
	return len(submissionEdges[s]) == 0
}

// Submission tracks one pass through the submission state machine
type Submission struct {
	state SubmissionState
	trace []SubmissionState
}

// NewSubmission starts in DRAFT
func NewSubmission() *Submission {
	return &Submission{state: StateDraft, trace: []SubmissionState{StateDraft}}
}

// State returns the current state
func (s *Submission) State() SubmissionState {
	return s.state
}

// Trace returns every state visited, in order
func (s *Submission) Trace() []SubmissionState {
	out := make([]SubmissionState, len(s.trace))
	copy(out, s.trace)
	return out
}

// To moves to next, failing on an edge the machine does not have
func (s *Submission) To(next SubmissionState) error {
	for _, allowed := range submissionEdges[s.state] {
		if allowed == next {
			s.state = next
			s.trace = append(s.trace, next)
			return nil
		}
	}
	return shared.ErrInvalidState.WithMessage(fmt.Sprintf("submission cannot move from %s to %s", s.state, next))
}
