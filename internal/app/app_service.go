package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"uniform-tracker/internal/ai"
	"uniform-tracker/internal/core"
	"uniform-tracker/internal/export"

	"github.com/go-playground/validator/v10"
)

type appService struct {
	schools     core.SchoolService
	policies    core.PolicyService
	fulfillment core.FulfillmentService
	deficits    core.DeficitService
	stock       core.StockService
	agent       ai.AgentService
	validator   *validator.Validate
}

// NewAppService constructs an appService that satisfies ApplicationService.
// agent may be nil, in which case InterpretNote reports that intake is disabled.
func NewAppService(
	schools core.SchoolService,
	policies core.PolicyService,
	fulfillment core.FulfillmentService,
	deficits core.DeficitService,
	stock core.StockService,
	agent ai.AgentService,
) ApplicationService {
	return &appService{
		schools:     schools,
		policies:    policies,
		fulfillment: fulfillment,
		deficits:    deficits,
		stock:       stock,
		agent:       agent,
		validator:   newValidator(),
	}
}

// ── Schools & policies ───────────────────────────────────────────────────────

func (s *appService) ListSchools(ctx context.Context) (*SchoolListResult, error) {
	schools, err := s.schools.ListSchools(ctx)
	if err != nil {
		return nil, err
	}
	return &SchoolListResult{Schools: schools}, nil
}

func (s *appService) GetSchool(ctx context.Context, id string) (*core.School, error) {
	return s.schools.GetSchool(ctx, id)
}

func (s *appService) CreateSchool(ctx context.Context, req CreateSchoolRequest) (*core.School, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.schools.CreateSchool(ctx, strings.TrimSpace(req.Name))
}

func (s *appService) ListPolicies(ctx context.Context, schoolID string) (*PolicyListResult, error) {
	policies, err := s.policies.ListPolicies(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return &PolicyListResult{SchoolID: schoolID, Policies: policies}, nil
}

func (s *appService) AddPolicy(ctx context.Context, req AddPolicyRequest) (*core.School, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.policies.AddPolicy(ctx, req.SchoolID, core.Policy{
		UniformID:          req.UniformID,
		Level:              req.Level,
		Gender:             req.Gender,
		IsRequired:         req.IsRequired,
		QuantityPerStudent: req.QuantityPerStudent,
	})
}

func (s *appService) RemovePolicy(ctx context.Context, req RemovePolicyRequest) (*RemovePolicyResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	var ref core.PolicyRef
	if req.ID != "" {
		ref = core.PolicyByID{ID: req.ID}
	} else {
		ref = core.PolicyByComposite{UniformID: req.UniformID, Level: req.Level, Gender: req.Gender}
	}
	school, removed, err := s.policies.RemovePolicy(ctx, req.SchoolID, ref)
	if err != nil {
		return nil, err
	}
	return &RemovePolicyResult{School: school, Removed: removed}, nil
}

// ── Uniforms & students ──────────────────────────────────────────────────────

func (s *appService) ListUniforms(ctx context.Context, schoolID string) (*UniformListResult, error) {
	uniforms, err := s.schools.ListUniforms(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return &UniformListResult{Uniforms: uniforms}, nil
}

func (s *appService) CreateUniform(ctx context.Context, req CreateUniformRequest) (*core.Uniform, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.schools.CreateUniform(ctx, core.Uniform{
		SchoolID: req.SchoolID,
		Name:     strings.TrimSpace(req.Name),
		Type:     strings.TrimSpace(req.Type),
		Level:    req.Level,
		Gender:   req.Gender,
	})
}

func (s *appService) ListStudents(ctx context.Context, schoolID string) (*StudentListResult, error) {
	students, err := s.schools.ListStudents(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return &StudentListResult{Students: students}, nil
}

func (s *appService) GetStudent(ctx context.Context, id string) (*core.Student, error) {
	return s.schools.GetStudent(ctx, id)
}

func (s *appService) EnrollStudent(ctx context.Context, req EnrollStudentRequest) (*core.Student, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.schools.EnrollStudent(ctx, core.Student{
		SchoolID: req.SchoolID,
		Name:     strings.TrimSpace(req.Name),
		Form:     strings.TrimSpace(req.Form),
		Level:    req.Level,
		Gender:   req.Gender,
	})
}

func (s *appService) StudentDeficit(ctx context.Context, studentID string) (*core.StudentDeficit, error) {
	return s.deficits.StudentDeficit(ctx, studentID)
}

// ── Fulfilment ───────────────────────────────────────────────────────────────

func (s *appService) RecordIssue(ctx context.Context, req IssueRequest) (*core.IssueResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.fulfillment.RecordIssue(ctx, core.IssueInput{
		StudentID:      req.StudentID,
		UniformID:      req.UniformID,
		Size:           strings.TrimSpace(req.Size),
		Quantity:       req.Quantity,
		LoggedBy:       req.LoggedBy,
		BatchID:        req.BatchID,
		Variant:        core.VariantKey{VariantType: req.Variant.VariantType, Color: req.Variant.Color},
		Override:       req.Override,
		IdempotencyKey: req.IdempotencyKey,
	})
}

func (s *appService) RecordSizeRequest(ctx context.Context, req SizeRequestRequest) (*core.IssueResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.fulfillment.RecordSizeRequest(ctx, core.SizeRequestInput{
		StudentID:      req.StudentID,
		UniformID:      req.UniformID,
		SizeWanted:     strings.TrimSpace(req.SizeWanted),
		LoggedBy:       req.LoggedBy,
		IdempotencyKey: req.IdempotencyKey,
	})
}

func (s *appService) FulfillSizeRequest(ctx context.Context, req FulfillRequest) (*core.IssueResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.fulfillment.FulfillSizeRequest(ctx, core.FulfillInput{
		StudentID:      req.StudentID,
		EntryID:        req.EntryID,
		Quantity:       req.Quantity,
		LoggedBy:       req.LoggedBy,
		BatchID:        req.BatchID,
		Variant:        core.VariantKey{VariantType: req.Variant.VariantType, Color: req.Variant.Color},
		Override:       req.Override,
		IdempotencyKey: req.IdempotencyKey,
	})
}

func (s *appService) InterpretNote(ctx context.Context, req NoteRequest) (*NoteResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if s.agent == nil {
		return nil, fmt.Errorf("note intake is disabled: OPENAI_API_KEY is not set")
	}
	student, err := s.schools.GetStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	uniforms, err := s.schools.ListUniforms(ctx, student.SchoolID)
	if err != nil {
		return nil, err
	}
	proposal, err := s.agent.InterpretNote(ctx, req.Text, *student, uniforms)
	if err != nil {
		return nil, err
	}
	return &NoteResult{Proposal: proposal, Entry: proposal.LogEntry(uniforms)}, nil
}

// ── Reports ──────────────────────────────────────────────────────────────────

func (s *appService) SchoolReport(ctx context.Context, schoolID string) (*core.SchoolDeficitReport, error) {
	return s.deficits.SchoolReport(ctx, schoolID)
}

func (s *appService) ExportSchoolReport(ctx context.Context, schoolID string, w io.Writer) error {
	school, err := s.schools.GetSchool(ctx, schoolID)
	if err != nil {
		return err
	}
	report, err := s.deficits.SchoolReport(ctx, schoolID)
	if err != nil {
		return err
	}
	return export.WriteSchoolReport(w, *school, *report)
}

func (s *appService) SchoolSummaries(ctx context.Context) (*SummaryListResult, error) {
	summaries, err := s.deficits.SchoolSummaries(ctx)
	if err != nil {
		return nil, err
	}
	return &SummaryListResult{Schools: summaries}, nil
}

// ── Stock ────────────────────────────────────────────────────────────────────

func (s *appService) ListBatches(ctx context.Context) (*BatchListResult, error) {
	batches, err := s.stock.ListBatches(ctx)
	if err != nil {
		return nil, err
	}
	return &BatchListResult{Batches: batches}, nil
}

func (s *appService) GetBatch(ctx context.Context, id string) (*core.Batch, error) {
	return s.stock.GetBatch(ctx, id)
}

func (s *appService) ReceiveBatch(ctx context.Context, req ReceiveBatchRequest) (*core.Batch, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	b := core.Batch{Name: strings.TrimSpace(req.Name), Items: make([]core.BatchItem, 0, len(req.Items))}
	for _, it := range req.Items {
		item := core.BatchItem{
			VariantType: strings.TrimSpace(it.VariantType),
			Color:       strings.TrimSpace(it.Color),
			Price:       it.Price,
			Sizes:       make([]core.SizeStock, 0, len(it.Sizes)),
		}
		for _, sz := range it.Sizes {
			item.Sizes = append(item.Sizes, core.SizeStock{Size: strings.TrimSpace(sz.Size), Quantity: sz.Quantity})
		}
		b.Items = append(b.Items, item)
	}
	return s.stock.ReceiveBatch(ctx, b)
}

func (s *appService) WriteOff(ctx context.Context, req WriteOffRequest) (*core.SizeStock, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	key := core.VariantKey{VariantType: req.Variant.VariantType, Color: req.Variant.Color}
	return s.stock.WriteOff(ctx, req.BatchID, key, req.Size, req.Quantity)
}

func (s *appService) CheckStock(ctx context.Context, req StockCheckRequest) (*core.StockCheck, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.fulfillment.CheckStock(ctx, core.VariantKey{VariantType: req.VariantType, Color: req.Color}, req.Size, req.Quantity)
}

func (s *appService) StockLevels(ctx context.Context) (*StockResult, error) {
	levels, err := s.stock.StockLevels(ctx)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels}, nil
}
