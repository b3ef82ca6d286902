package core_test

import (
	"errors"
	"testing"
	"time"

	"uniform-tracker/internal/core"

	"github.com/shopspring/decimal"
)

func shirtBatch(id string, qty int) core.Batch {
	return core.Batch{ID: id, Name: "Batch " + id, Items: []core.BatchItem{{
		VariantType: "Shirt", Color: "White", Price: decimal.RequireFromString("12.50"),
		Sizes: []core.SizeStock{{Size: "M", Quantity: qty}, {Size: "L", Quantity: 1}},
	}}}
}

func TestCheckStock(t *testing.T) {
	batches := []core.Batch{shirtBatch("b1", 3), shirtBatch("b2", 2)}
	batches[1].Items[0].Color = "Blue"

	tests := []struct {
		name      string
		key       core.VariantKey
		size      string
		requested int
		want      core.StockCheck
	}{
		{"single batch short", core.VariantKey{VariantType: "Shirt", Color: "White"}, "M", 5, core.StockCheck{Available: false, CurrentStock: 3}},
		{"summed across batches", core.VariantKey{VariantType: "shirt"}, "M", 5, core.StockCheck{Available: true, CurrentStock: 5}},
		{"colour filter ignores case", core.VariantKey{VariantType: "Shirt", Color: "blue"}, "M", 2, core.StockCheck{Available: true, CurrentStock: 2}},
		{"size is case-sensitive", core.VariantKey{VariantType: "Shirt"}, "m", 1, core.StockCheck{Available: false, CurrentStock: 0}},
		{"unknown variant", core.VariantKey{VariantType: "Tie"}, "M", 1, core.StockCheck{Available: false, CurrentStock: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := core.CheckStock(batches, tt.key, tt.size, tt.requested); got != tt.want {
				t.Errorf("CheckStock() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeductSize(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := shirtBatch("b1", 3)
	item := &b.Items[0]

	_, err := core.DeductSize(item, "M", 5, now)
	var short *core.InsufficientStockError
	if !errors.As(err, &short) || short.Available != 3 || short.Requested != 5 {
		t.Fatalf("expected InsufficientStockError{3,5}, got %v", err)
	}
	if item.Sizes[0].Quantity != 3 {
		t.Fatalf("rejected deduction changed stock to %d", item.Sizes[0].Quantity)
	}

	got, err := core.DeductSize(item, "M", 2, now)
	if err != nil || got.Quantity != 1 || got.DepletedAt != nil {
		t.Fatalf("unexpected result %+v, %v", got, err)
	}

	got, err = core.DeductSize(item, "M", 1, now)
	if err != nil || got.Quantity != 0 || got.DepletedAt == nil || !got.DepletedAt.Equal(now) {
		t.Fatalf("expected depletion stamp at %v, got %+v, %v", now, got, err)
	}

	if _, err := core.DeductSize(item, "M", 1, now.Add(time.Hour)); !errors.Is(err, core.ErrInsufficientStock) {
		t.Errorf("expected insufficient stock on empty size, got %v", err)
	}
	if !item.Sizes[0].DepletedAt.Equal(now) {
		t.Errorf("depletion stamp must not move")
	}

	if _, err := core.DeductSize(item, "XXL", 1, now); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found for missing size, got %v", err)
	}
	if _, err := core.DeductSize(item, "L", 0, now); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error for zero quantity, got %v", err)
	}
	for _, s := range item.Sizes {
		if s.Quantity < 0 {
			t.Errorf("size %s went negative", s.Size)
		}
	}
}

func TestBatch_FindItem(t *testing.T) {
	b := shirtBatch("b1", 3)
	b.Items = append(b.Items, core.BatchItem{VariantType: "Shirt", Color: "Blue", Sizes: []core.SizeStock{{Size: "S", Quantity: 5}, {Size: "L", Quantity: 2}}})

	tests := []struct {
		name    string
		key     core.VariantKey
		size    string
		want    int
		wantErr error
	}{
		{"colour given", core.VariantKey{VariantType: " shirt ", Color: "BLUE"}, "S", 1, nil},
		{"only one colour stocks the size", core.VariantKey{VariantType: "Shirt"}, "M", 0, nil},
		{"other colour stocks the size", core.VariantKey{VariantType: "Shirt"}, "S", 1, nil},
		{"several colours stock the size", core.VariantKey{VariantType: "Shirt"}, "L", -1, core.ErrValidation},
		{"size not stocked", core.VariantKey{VariantType: "Shirt"}, "XL", -1, core.ErrNotFound},
		{"colour lacks the size", core.VariantKey{VariantType: "Shirt", Color: "Blue"}, "M", -1, core.ErrNotFound},
		{"unknown variant", core.VariantKey{VariantType: "Tie"}, "M", -1, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, err := b.FindItem(tt.key, tt.size)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FindItem() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || i != tt.want {
				t.Errorf("FindItem() = %d, %v, want %d", i, err, tt.want)
			}
		})
	}

	var ve *core.ValidationError
	if _, err := b.FindItem(core.VariantKey{VariantType: "Shirt"}, "L"); !errors.As(err, &ve) || ve.Field != "color" {
		t.Errorf("expected a color validation error, got %v", err)
	}
}

func TestValidateBatch(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *core.Batch)
		wantErr bool
	}{
		{"valid", func(b *core.Batch) {}, false},
		{"no name", func(b *core.Batch) { b.Name = "" }, true},
		{"no items", func(b *core.Batch) { b.Items = nil }, true},
		{"negative price", func(b *core.Batch) { b.Items[0].Price = decimal.NewFromInt(-1) }, true},
		{"duplicate size", func(b *core.Batch) { b.Items[0].Sizes[1].Size = "M" }, true},
		{"negative quantity", func(b *core.Batch) { b.Items[0].Sizes[0].Quantity = -1 }, true},
		{"zero quantity allowed", func(b *core.Batch) { b.Items[0].Sizes[0].Quantity = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := shirtBatch("b1", 3)
			tt.mutate(&b)
			if err := core.ValidateBatch(b); (err != nil) != tt.wantErr {
				t.Errorf("ValidateBatch() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFlattenStock(t *testing.T) {
	levels := core.FlattenStock([]core.Batch{shirtBatch("b1", 3)})
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if !levels[0].Value.Equal(decimal.RequireFromString("37.50")) {
		t.Errorf("value = %s, want 37.50", levels[0].Value)
	}
	if levels[0].BatchName != "Batch b1" || levels[0].Size != "M" {
		t.Errorf("unexpected level %+v", levels[0])
	}
	if empty := core.FlattenStock(nil); empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}
