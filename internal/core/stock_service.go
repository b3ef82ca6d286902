package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StockService manages warehouse batches.
type StockService interface {
	ListBatches(ctx context.Context) ([]Batch, error)
	GetBatch(ctx context.Context, id string) (*Batch, error)
	// ReceiveBatch validates and stores a new delivery.
	ReceiveBatch(ctx context.Context, b Batch) (*Batch, error)
	// StockLevels returns one row per (batch, variant, size), with stock value.
	StockLevels(ctx context.Context) ([]StockLevel, error)
	// WriteOff removes damaged or lost stock from a batch without a log entry.
	WriteOff(ctx context.Context, batchID string, key VariantKey, size string, qty int) (*SizeStock, error)
}

type stockService struct {
	store  Store
	logger *logrus.Logger
}

// NewStockService constructs a StockService over store.
func NewStockService(store Store, logger *logrus.Logger) StockService {
	return &stockService{store: store, logger: logger}
}

func (s *stockService) ListBatches(ctx context.Context) ([]Batch, error) {
	return s.store.ListBatches(ctx)
}

func (s *stockService) GetBatch(ctx context.Context, id string) (*Batch, error) {
	return s.store.GetBatch(ctx, id)
}

func (s *stockService) ReceiveBatch(ctx context.Context, b Batch) (*Batch, error) {
	if err := ValidateBatch(b); err != nil {
		return nil, err
	}
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	for i := range b.Items {
		for j := range b.Items[i].Sizes {
			b.Items[i].Sizes[j].DepletedAt = nil
		}
	}
	return s.store.CreateBatch(ctx, b)
}

func (s *stockService) StockLevels(ctx context.Context) ([]StockLevel, error) {
	batches, err := s.store.ListBatches(ctx)
	if err != nil {
		return nil, err
	}
	return FlattenStock(batches), nil
}

func (s *stockService) WriteOff(ctx context.Context, batchID string, key VariantKey, size string, qty int) (*SizeStock, error) {
	if qty <= 0 {
		return nil, Invalid("quantity", "must be positive")
	}
	stock, err := s.store.DeductBatchStock(ctx, batchID, key, size, qty)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"batch_id":  batchID,
		"variant":   key.String(),
		"size":      size,
		"quantity":  qty,
		"remaining": stock.Quantity,
	}).Info("stock written off")
	return stock, nil
}
