package firestore_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"uniform-tracker/internal/core"
	fsstore "uniform-tracker/internal/store/firestore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func setupEmulator(t *testing.T) *fsstore.Store {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping emulator test")
	}
	ctx := context.Background()
	client, err := fsstore.NewClient(ctx, "uniform-tracker-test", "")
	if err != nil {
		t.Fatalf("Failed to connect to emulator: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return fsstore.New(client)
}

func TestFirestore_SchoolPolicyVersioning(t *testing.T) {
	store := setupEmulator(t)
	ctx := context.Background()

	school, err := store.CreateSchool(ctx, core.School{ID: uuid.NewString(), Name: "Riverside", Status: "active", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateSchool failed: %v", err)
	}

	got, err := store.GetSchool(ctx, school.ID)
	if err != nil {
		t.Fatalf("GetSchool failed: %v", err)
	}
	if got.UniformPolicy == nil || len(got.UniformPolicy) != 0 {
		t.Fatalf("expected an empty, non-nil policy list, got %#v", got.UniformPolicy)
	}

	policies := []core.Policy{{ID: "p1", UniformID: "u1", UniformName: "Blazer", Level: core.LevelSenior, Gender: core.GenderBoys, IsRequired: true, QuantityPerStudent: 1}}
	updated, err := store.UpdatePolicyList(ctx, school.ID, 1, policies)
	if err != nil {
		t.Fatalf("UpdatePolicyList failed: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2, got %d", updated.Version)
	}

	if _, err := store.UpdatePolicyList(ctx, school.ID, 1, nil); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, _ = store.GetSchool(ctx, school.ID)
	if len(got.UniformPolicy) != 1 || got.UniformPolicy[0].UniformName != "Blazer" {
		t.Errorf("policy list not persisted: %+v", got.UniformPolicy)
	}
}

func TestFirestore_RecordFulfillment(t *testing.T) {
	store := setupEmulator(t)
	ctx := context.Background()

	student, err := store.CreateStudent(ctx, core.Student{
		ID: uuid.NewString(), SchoolID: "s1", Name: "Ben", Level: core.LevelSenior, Gender: core.GenderBoys, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent failed: %v", err)
	}
	batch, err := store.CreateBatch(ctx, core.Batch{
		ID: uuid.NewString(), Name: "Term 2", CreatedAt: time.Now().UTC(),
		Items: []core.BatchItem{{VariantType: "Blazer", Color: "Navy", Price: decimal.RequireFromString("45.00"), Sizes: []core.SizeStock{{Size: "L", Quantity: 2}}}},
	})
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	write := core.FulfillmentWrite{
		StudentID: student.ID,
		Entry: core.LogEntry{
			ID: uuid.NewString(), UniformID: "u1", QuantityReceived: 2,
			SizeReceived: core.StringPtr("L"), LoggedAt: time.Now().UTC(), IdempotencyKey: "issue-1",
		},
		Deduction: &core.StockDeduction{BatchID: batch.ID, Key: core.VariantKey{VariantType: "Blazer", Color: "navy"}, Size: "L", Quantity: 2},
		Now:       time.Now().UTC(),
	}
	res, err := store.RecordFulfillment(ctx, write)
	if err != nil {
		t.Fatalf("RecordFulfillment failed: %v", err)
	}
	if res.Stock == nil || res.Stock.Quantity != 0 || res.Stock.DepletedAt == nil {
		t.Fatalf("expected depleted size, got %+v", res.Stock)
	}

	replay, err := store.RecordFulfillment(ctx, write)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !replay.Replayed {
		t.Errorf("expected replay")
	}

	write.Entry.IdempotencyKey = "issue-2"
	if _, err := store.RecordFulfillment(ctx, write); !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	got, _ := store.GetStudent(ctx, student.ID)
	if len(got.UniformLog) != 1 {
		t.Errorf("expected 1 log entry, got %d", len(got.UniformLog))
	}
	b, _ := store.GetBatch(ctx, batch.ID)
	if !b.Items[0].Price.Equal(decimal.RequireFromString("45")) {
		t.Errorf("price not round-tripped: %s", b.Items[0].Price)
	}
}
