package core_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"uniform-tracker/internal/core"
	"uniform-tracker/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type fixture struct {
	store   *memstore.Store
	logger  *logrus.Logger
	school  *core.School
	uniform *core.Uniform
	student *core.Student
	batch   *core.Batch
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := memstore.New()

	schools := core.NewSchoolService(store)
	school, err := schools.CreateSchool(ctx, "Hillcrest")
	if err != nil {
		t.Fatalf("CreateSchool failed: %v", err)
	}
	uniform, err := schools.CreateUniform(ctx, core.Uniform{SchoolID: school.ID, Name: "Shirt", Type: "Shirt"})
	if err != nil {
		t.Fatalf("CreateUniform failed: %v", err)
	}
	school, err = core.NewPolicyService(store, logger).AddPolicy(ctx, school.ID, core.Policy{
		UniformID: uniform.ID, Level: core.LevelJunior, Gender: core.GenderBoys, IsRequired: true, QuantityPerStudent: 2,
	})
	if err != nil {
		t.Fatalf("AddPolicy failed: %v", err)
	}
	student, err := schools.EnrollStudent(ctx, core.Student{SchoolID: school.ID, Name: "Sam", Form: "1A", Level: core.LevelJunior, Gender: core.GenderBoys})
	if err != nil {
		t.Fatalf("EnrollStudent failed: %v", err)
	}
	batch, err := core.NewStockService(store, logger).ReceiveBatch(ctx, core.Batch{Name: "Term 1", Items: []core.BatchItem{{
		VariantType: "Shirt", Color: "White", Price: decimal.RequireFromString("10"),
		Sizes: []core.SizeStock{{Size: "M", Quantity: 3}},
	}}})
	if err != nil {
		t.Fatalf("ReceiveBatch failed: %v", err)
	}
	return fixture{store: store, logger: logger, school: school, uniform: uniform, student: student, batch: batch}
}

func (f fixture) stockOf(t *testing.T, size string) int {
	t.Helper()
	b, err := f.store.GetBatch(context.Background(), f.batch.ID)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	for _, s := range b.Items[0].Sizes {
		if s.Size == size {
			return s.Quantity
		}
	}
	return -1
}

func (f fixture) logOf(t *testing.T) []core.LogEntry {
	t.Helper()
	st, err := f.store.GetStudent(context.Background(), f.student.ID)
	if err != nil {
		t.Fatalf("GetStudent failed: %v", err)
	}
	return st.UniformLog
}

func TestFulfillment_IssueDeductsStock(t *testing.T) {
	f := newFixture(t)
	svc := core.NewFulfillmentService(f.store, f.logger)

	res, err := svc.RecordIssue(context.Background(), core.IssueInput{
		StudentID: f.student.ID, UniformID: f.uniform.ID, Size: "M", Quantity: 2, BatchID: f.batch.ID, LoggedBy: "staff",
	})
	if err != nil {
		t.Fatalf("RecordIssue failed: %v", err)
	}
	if res.Stock == nil || res.Stock.Quantity != 1 {
		t.Errorf("expected 1 left, got %+v", res.Stock)
	}
	if res.Entry.UniformName != "Shirt" || res.Entry.IdempotencyKey == "" {
		t.Errorf("entry not denormalised or missing key: %+v", res.Entry)
	}
	if f.stockOf(t, "M") != 1 {
		t.Errorf("stored stock = %d, want 1", f.stockOf(t, "M"))
	}

	d, err := core.NewDeficitService(f.store).StudentDeficit(context.Background(), f.student.ID)
	if err != nil {
		t.Fatalf("StudentDeficit failed: %v", err)
	}
	if d.Status != core.StatusComplete {
		t.Errorf("status = %s, want complete", d.Status)
	}
}

func TestFulfillment_InsufficientStockIsAtomic(t *testing.T) {
	f := newFixture(t)
	svc := core.NewFulfillmentService(f.store, f.logger)

	_, err := svc.RecordIssue(context.Background(), core.IssueInput{
		StudentID: f.student.ID, UniformID: f.uniform.ID, Size: "M", Quantity: 5, BatchID: f.batch.ID,
	})
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if len(f.logOf(t)) != 0 {
		t.Errorf("failed issue must not be logged")
	}
	if f.stockOf(t, "M") != 3 {
		t.Errorf("failed issue must not deduct stock")
	}
}

func TestFulfillment_OverrideSkipsDeduction(t *testing.T) {
	f := newFixture(t)
	svc := core.NewFulfillmentService(f.store, f.logger)

	res, err := svc.RecordIssue(context.Background(), core.IssueInput{
		StudentID: f.student.ID, UniformID: f.uniform.ID, Size: "M", Quantity: 5, BatchID: f.batch.ID, Override: true,
	})
	if err != nil {
		t.Fatalf("override issue failed: %v", err)
	}
	if !res.StockSkipped || res.Stock != nil {
		t.Errorf("expected stock to be skipped, got %+v", res)
	}
	if len(f.logOf(t)) != 1 || f.stockOf(t, "M") != 3 {
		t.Errorf("expected logged entry with stock untouched")
	}
}

func TestFulfillment_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	svc := core.NewFulfillmentService(f.store, f.logger)
	in := core.IssueInput{
		StudentID: f.student.ID, UniformID: f.uniform.ID, Size: "M", Quantity: 1, BatchID: f.batch.ID, IdempotencyKey: "device-42",
	}

	first, err := svc.RecordIssue(context.Background(), in)
	if err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	second, err := svc.RecordIssue(context.Background(), in)
	if err != nil {
		t.Fatalf("replayed issue failed: %v", err)
	}
	if !second.Replayed || second.Entry.ID != first.Entry.ID {
		t.Errorf("expected replay of %s, got %+v", first.Entry.ID, second)
	}
	if len(f.logOf(t)) != 1 || f.stockOf(t, "M") != 2 {
		t.Errorf("replay must not write twice")
	}
}

func TestFulfillment_FulfillRetryAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := core.NewFulfillmentService(f.store, f.logger)

	req, err := svc.RecordSizeRequest(ctx, core.SizeRequestInput{StudentID: f.student.ID, UniformID: f.uniform.ID, SizeWanted: "M"})
	if err != nil {
		t.Fatalf("RecordSizeRequest failed: %v", err)
	}
	in := core.FulfillInput{StudentID: f.student.ID, EntryID: req.Entry.ID, Quantity: 1, BatchID: f.batch.ID, IdempotencyKey: "k-1"}

	first, err := svc.FulfillSizeRequest(ctx, in)
	if err != nil {
		t.Fatalf("first fulfilment failed: %v", err)
	}
	second, err := svc.FulfillSizeRequest(ctx, in)
	if err != nil {
		t.Fatalf("retried fulfilment failed: %v", err)
	}
	if !second.Replayed || second.Entry.ID != first.Entry.ID {
		t.Errorf("expected replay of %s, got %+v", first.Entry.ID, second)
	}
	if got := f.stockOf(t, "M"); got != 2 {
		t.Errorf("stock after retry = %d, want 2", got)
	}
	if log := f.logOf(t); len(log) != 1 || log[0].ID != first.Entry.ID {
		t.Errorf("expected one fulfilled entry, got %+v", log)
	}
}

func TestFulfillment_IssuePicksColourStockingSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := core.NewFulfillmentService(f.store, f.logger)

	mixed, err := core.NewStockService(f.store, f.logger).ReceiveBatch(ctx, core.Batch{Name: "Mixed", Items: []core.BatchItem{
		{VariantType: "Shirt", Color: "Blue", Price: decimal.RequireFromString("10"), Sizes: []core.SizeStock{{Size: "S", Quantity: 5}, {Size: "L", Quantity: 1}}},
		{VariantType: "Shirt", Color: "White", Price: decimal.RequireFromString("10"), Sizes: []core.SizeStock{{Size: "M", Quantity: 5}, {Size: "L", Quantity: 1}}},
	}})
	if err != nil {
		t.Fatalf("ReceiveBatch failed: %v", err)
	}

	check, err := svc.CheckStock(ctx, core.VariantKey{VariantType: "Shirt"}, "M", 1)
	if err != nil || !check.Available {
		t.Fatalf("CheckStock = %+v, %v", check, err)
	}
	res, err := svc.RecordIssue(ctx, core.IssueInput{StudentID: f.student.ID, UniformID: f.uniform.ID, Size: "M", Quantity: 1, BatchID: mixed.ID})
	if err != nil {
		t.Fatalf("RecordIssue failed: %v", err)
	}
	if res.Stock == nil || res.Stock.Quantity != 4 {
		t.Errorf("expected white M to drop to 4, got %+v", res.Stock)
	}

	_, err = svc.RecordIssue(ctx, core.IssueInput{StudentID: f.student.ID, UniformID: f.uniform.ID, Size: "L", Quantity: 1, BatchID: mixed.ID})
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "color" {
		t.Fatalf("expected a color validation error, got %v", err)
	}

	res, err = svc.RecordIssue(ctx, core.IssueInput{
		StudentID: f.student.ID, UniformID: f.uniform.ID, Size: "L", Quantity: 1, BatchID: mixed.ID,
		Variant: core.VariantKey{Color: "blue"},
	})
	if err != nil {
		t.Fatalf("RecordIssue with colour failed: %v", err)
	}
	b, err := f.store.GetBatch(ctx, mixed.ID)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if b.Items[0].Sizes[1].Quantity != 0 || b.Items[1].Sizes[1].Quantity != 1 {
		t.Errorf("expected only blue L deducted, got %+v", b.Items)
	}
	if len(f.logOf(t)) != 2 {
		t.Errorf("the rejected issue must not be logged")
	}
}

func TestFulfillment_SizeRequestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := core.NewFulfillmentService(f.store, f.logger)

	req, err := svc.RecordSizeRequest(ctx, core.SizeRequestInput{StudentID: f.student.ID, UniformID: f.uniform.ID, SizeWanted: "M"})
	if err != nil {
		t.Fatalf("RecordSizeRequest failed: %v", err)
	}
	if !req.Entry.IsSizeRequest() {
		t.Fatalf("expected a size request entry, got %+v", req.Entry)
	}

	report, _ := core.NewDeficitService(f.store).SchoolReport(ctx, f.school.ID)
	if len(report.SizeRequests) != 1 {
		t.Fatalf("expected one open size request, got %+v", report.SizeRequests)
	}

	res, err := svc.FulfillSizeRequest(ctx, core.FulfillInput{
		StudentID: f.student.ID, EntryID: req.Entry.ID, Quantity: 1, BatchID: f.batch.ID,
	})
	if err != nil {
		t.Fatalf("FulfillSizeRequest failed: %v", err)
	}
	if !res.Replaced || *res.Entry.SizeReceived != "M" {
		t.Errorf("unexpected fulfilment %+v", res)
	}
	log := f.logOf(t)
	if len(log) != 1 || log[0].IsSizeRequest() {
		t.Errorf("expected request replaced in place, got %+v", log)
	}

	_, err = svc.FulfillSizeRequest(ctx, core.FulfillInput{StudentID: f.student.ID, EntryID: log[0].ID, Quantity: 1})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("fulfilling a received entry must fail validation, got %v", err)
	}
	_, err = svc.FulfillSizeRequest(ctx, core.FulfillInput{StudentID: f.student.ID, EntryID: "missing", Quantity: 1})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestFulfillment_InputValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := core.NewFulfillmentService(f.store, f.logger)

	tests := []struct {
		name string
		in   core.IssueInput
		want error
	}{
		{"no size", core.IssueInput{StudentID: f.student.ID, UniformID: f.uniform.ID, Quantity: 1}, core.ErrValidation},
		{"zero quantity", core.IssueInput{StudentID: f.student.ID, UniformID: f.uniform.ID, Size: "M"}, core.ErrValidation},
		{"unknown student", core.IssueInput{StudentID: "x", UniformID: f.uniform.ID, Size: "M", Quantity: 1}, core.ErrNotFound},
		{"unknown uniform", core.IssueInput{StudentID: f.student.ID, UniformID: "x", Size: "M", Quantity: 1}, core.ErrNotFound},
		{"unknown batch", core.IssueInput{StudentID: f.student.ID, UniformID: f.uniform.ID, Size: "M", Quantity: 1, BatchID: "x"}, core.ErrNotFound},
		{"unknown variant", core.IssueInput{StudentID: f.student.ID, UniformID: f.uniform.ID, Size: "M", Quantity: 1, BatchID: f.batch.ID, Variant: core.VariantKey{VariantType: "Tie"}}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RecordIssue(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("RecordIssue() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := svc.CheckStock(ctx, core.VariantKey{VariantType: "Shirt"}, "M", 0); !errors.Is(err, core.ErrValidation) {
		t.Errorf("CheckStock with zero quantity: %v", err)
	}
}

func TestApplyFulfillment_LeavesBatchOnFailure(t *testing.T) {
	st := core.Student{ID: "s1", UniformLog: []core.LogEntry{}}
	b := shirtBatch("b1", 1)
	w := core.FulfillmentWrite{
		StudentID: "s1",
		Entry:     received("u1", 2, "M"),
		Deduction: &core.StockDeduction{BatchID: "b1", Key: core.VariantKey{VariantType: "Shirt"}, Size: "M", Quantity: 2},
		Now:       time.Now(),
	}
	if _, err := core.ApplyFulfillment(&st, &b, w); !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if b.Items[0].Sizes[0].Quantity != 1 || len(st.UniformLog) != 0 {
		t.Errorf("failed apply mutated state: batch %+v log %+v", b.Items[0].Sizes, st.UniformLog)
	}
}
