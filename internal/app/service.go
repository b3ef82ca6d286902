package app

import (
	"context"
	"io"

	"uniform-tracker/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// ListSchools returns every school with its policy list.
	ListSchools(ctx context.Context) (*SchoolListResult, error)
	GetSchool(ctx context.Context, id string) (*core.School, error)
	CreateSchool(ctx context.Context, req CreateSchoolRequest) (*core.School, error)

	// ListPolicies returns the school's uniform policy list in stored order.
	ListPolicies(ctx context.Context, schoolID string) (*PolicyListResult, error)
	// AddPolicy appends a policy. The uniform must exist and fit the level/gender.
	AddPolicy(ctx context.Context, req AddPolicyRequest) (*core.School, error)
	// RemovePolicy removes policies by ID, or by (uniformId, level, gender) for
	// policies stored without an ID.
	RemovePolicy(ctx context.Context, req RemovePolicyRequest) (*RemovePolicyResult, error)

	ListUniforms(ctx context.Context, schoolID string) (*UniformListResult, error)
	CreateUniform(ctx context.Context, req CreateUniformRequest) (*core.Uniform, error)

	ListStudents(ctx context.Context, schoolID string) (*StudentListResult, error)
	GetStudent(ctx context.Context, id string) (*core.Student, error)
	EnrollStudent(ctx context.Context, req EnrollStudentRequest) (*core.Student, error)

	// StudentDeficit computes one student's outstanding uniforms.
	StudentDeficit(ctx context.Context, studentID string) (*core.StudentDeficit, error)

	// RecordIssue logs uniforms handed to a student and, when a batch is named,
	// deducts the stock in the same write.
	RecordIssue(ctx context.Context, req IssueRequest) (*core.IssueResult, error)
	// RecordSizeRequest logs that a wanted size was unavailable.
	RecordSizeRequest(ctx context.Context, req SizeRequestRequest) (*core.IssueResult, error)
	// FulfillSizeRequest replaces an open size request with a received entry.
	FulfillSizeRequest(ctx context.Context, req FulfillRequest) (*core.IssueResult, error)

	// InterpretNote asks the AI agent to read a staff note into a proposed log
	// entry. Nothing is persisted.
	InterpretNote(ctx context.Context, req NoteRequest) (*NoteResult, error)

	// SchoolReport aggregates deficits and open size requests for one school.
	SchoolReport(ctx context.Context, schoolID string) (*core.SchoolDeficitReport, error)
	// ExportSchoolReport writes the school report as an xlsx workbook.
	ExportSchoolReport(ctx context.Context, schoolID string, w io.Writer) error
	// SchoolSummaries returns the headline numbers for every school.
	SchoolSummaries(ctx context.Context) (*SummaryListResult, error)

	ListBatches(ctx context.Context) (*BatchListResult, error)
	GetBatch(ctx context.Context, id string) (*core.Batch, error)
	ReceiveBatch(ctx context.Context, req ReceiveBatchRequest) (*core.Batch, error)
	WriteOff(ctx context.Context, req WriteOffRequest) (*core.SizeStock, error)

	// CheckStock sums matching stock across all batches.
	CheckStock(ctx context.Context, req StockCheckRequest) (*core.StockCheck, error)
	// StockLevels returns one row per batch, variant and size.
	StockLevels(ctx context.Context) (*StockResult, error)
}
