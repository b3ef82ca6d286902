package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// VariantKey selects batch items. Matching ignores case; an empty Color matches
// every colour of the variant type.
type VariantKey struct {
	VariantType string `json:"variantType"`
	Color       string `json:"color,omitempty"`
}

// Matches reports whether item belongs to the key.
func (k VariantKey) Matches(item BatchItem) bool {
	if !strings.EqualFold(strings.TrimSpace(item.VariantType), strings.TrimSpace(k.VariantType)) {
		return false
	}
	if k.Color == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(item.Color), strings.TrimSpace(k.Color))
}

func (k VariantKey) String() string {
	if k.Color == "" {
		return k.VariantType
	}
	return k.VariantType + "/" + k.Color
}

// StockCheck is the result of CheckStock.
type StockCheck struct {
	Available    bool `json:"available"`
	CurrentStock int  `json:"currentStock"`
}

// CheckStock sums the quantity of size over every matching item in every batch.
func CheckStock(batches []Batch, key VariantKey, size string, requested int) StockCheck {
	total := 0
	for _, b := range batches {
		for _, item := range b.Items {
			if !key.Matches(item) {
				continue
			}
			for _, s := range item.Sizes {
				if s.Size == size {
					total += s.Quantity
				}
			}
		}
	}
	return StockCheck{Available: total >= requested, CurrentStock: total}
}

// FindItem returns the index of the item matching key that stocks size. With no
// colour in key, more than one colour stocking the size is a validation error.
func (b *Batch) FindItem(key VariantKey, size string) (int, error) {
	found, matched := -1, false
	for i, item := range b.Items {
		if !key.Matches(item) {
			continue
		}
		matched = true
		if !item.hasSize(size) {
			continue
		}
		if found < 0 {
			found = i
			continue
		}
		if key.Color == "" && !strings.EqualFold(strings.TrimSpace(b.Items[found].Color), strings.TrimSpace(item.Color)) {
			return -1, Invalid("color", "several colours of "+key.VariantType+" stock size "+size+"; choose one")
		}
	}
	switch {
	case found >= 0:
		return found, nil
	case matched:
		return -1, NotFound("size", key.String()+":"+size)
	}
	return -1, NotFound("batch item", b.ID+":"+key.String())
}

func (item BatchItem) hasSize(size string) bool {
	for _, s := range item.Sizes {
		if s.Size == size {
			return true
		}
	}
	return false
}

// DeductSize removes quantity of size from item. A request larger than the stock
// on hand is rejected without touching the item. When the new quantity reaches
// zero DepletedAt is stamped, unless it was already set.
func DeductSize(item *BatchItem, size string, quantity int, now time.Time) (SizeStock, error) {
	if quantity <= 0 {
		return SizeStock{}, Invalid("quantity", "must be positive")
	}
	for i := range item.Sizes {
		s := &item.Sizes[i]
		if s.Size != size {
			continue
		}
		if quantity > s.Quantity {
			return *s, &InsufficientStockError{Size: size, Requested: quantity, Available: s.Quantity}
		}
		s.Quantity -= quantity
		if s.Quantity == 0 && s.DepletedAt == nil {
			at := now.UTC()
			s.DepletedAt = &at
		}
		return *s, nil
	}
	return SizeStock{}, NotFound("size", item.VariantType+":"+size)
}

// ValidateBatch checks a new batch before it is stored.
func ValidateBatch(b Batch) error {
	if strings.TrimSpace(b.Name) == "" {
		return Invalid("name", "is required")
	}
	if len(b.Items) == 0 {
		return Invalid("items", "at least one item is required")
	}
	for _, item := range b.Items {
		if strings.TrimSpace(item.VariantType) == "" {
			return Invalid("items.variantType", "is required")
		}
		if item.Price.IsNegative() {
			return Invalid("items.price", "cannot be negative")
		}
		sizes := make(map[string]bool, len(item.Sizes))
		for _, s := range item.Sizes {
			if strings.TrimSpace(s.Size) == "" {
				return Invalid("items.sizes.size", "is required")
			}
			if sizes[s.Size] {
				return Invalid("items.sizes.size", "duplicate size "+s.Size)
			}
			sizes[s.Size] = true
			if s.Quantity < 0 {
				return Invalid("items.sizes.quantity", "cannot be negative")
			}
		}
	}
	return nil
}

// FlattenStock expands batches into one StockLevel per (batch, item, size).
func FlattenStock(batches []Batch) []StockLevel {
	levels := []StockLevel{}
	for _, b := range batches {
		for _, item := range b.Items {
			for _, s := range item.Sizes {
				levels = append(levels, StockLevel{
					BatchID:     b.ID,
					BatchName:   b.Name,
					VariantType: item.VariantType,
					Color:       item.Color,
					Size:        s.Size,
					Quantity:    s.Quantity,
					Price:       item.Price,
					Value:       item.Price.Mul(decimal.NewFromInt(int64(s.Quantity))),
					DepletedAt:  s.DepletedAt,
				})
			}
		}
	}
	return levels
}
