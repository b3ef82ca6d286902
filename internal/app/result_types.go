package app

import (
	"uniform-tracker/internal/ai"
	"uniform-tracker/internal/core"
)

// SchoolListResult is returned by ListSchools.
type SchoolListResult struct {
	Schools []core.School `json:"schools"`
}

// PolicyListResult is returned by ListPolicies.
type PolicyListResult struct {
	SchoolID string        `json:"schoolId"`
	Policies []core.Policy `json:"policies"`
}

// RemovePolicyResult is returned by RemovePolicy.
type RemovePolicyResult struct {
	School  *core.School `json:"school"`
	Removed int          `json:"removed"`
}

// UniformListResult is returned by ListUniforms.
type UniformListResult struct {
	Uniforms []core.Uniform `json:"uniforms"`
}

// StudentListResult is returned by ListStudents.
type StudentListResult struct {
	Students []core.Student `json:"students"`
}

// SummaryListResult is returned by SchoolSummaries.
type SummaryListResult struct {
	Schools []core.SchoolSummary `json:"schools"`
}

// BatchListResult is returned by ListBatches.
type BatchListResult struct {
	Batches []core.Batch `json:"batches"`
}

// StockResult is returned by StockLevels.
type StockResult struct {
	Levels []core.StockLevel `json:"levels"`
}

// NoteResult is returned by InterpretNote. Entry is the drafted log entry, nil
// when the agent asked for clarification.
type NoteResult struct {
	Proposal *ai.NoteProposal `json:"proposal"`
	Entry    *core.LogEntry   `json:"entry,omitempty"`
}
