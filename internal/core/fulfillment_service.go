package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IssueInput records uniforms handed to a student.
// BatchID is optional: when empty the issue is logged without touching stock.
type IssueInput struct {
	StudentID string
	UniformID string
	Size      string
	Quantity  int
	LoggedBy  string
	BatchID   string
	// Variant defaults to the uniform's type when VariantType is empty.
	Variant VariantKey
	// Override logs the issue even when the batch cannot cover it; stock is then
	// left untouched.
	Override       bool
	IdempotencyKey string
}

// SizeRequestInput records that the size a student needs was not available.
type SizeRequestInput struct {
	StudentID      string
	UniformID      string
	SizeWanted     string
	LoggedBy       string
	IdempotencyKey string
}

// FulfillInput turns an open size request into a received entry.
type FulfillInput struct {
	StudentID      string
	EntryID        string
	Quantity       int
	LoggedBy       string
	BatchID        string
	Variant        VariantKey
	Override       bool
	IdempotencyKey string
}

// IssueResult is returned by the fulfilment operations.
type IssueResult struct {
	FulfillmentResult
	// StockSkipped is true when Override let the entry through without a deduction.
	StockSkipped bool `json:"stockSkipped"`
}

// FulfillmentService records uniform hand-outs and size requests. Each log write
// and its stock deduction commit together through Store.RecordFulfillment.
type FulfillmentService interface {
	CheckStock(ctx context.Context, key VariantKey, size string, requested int) (*StockCheck, error)
	RecordIssue(ctx context.Context, in IssueInput) (*IssueResult, error)
	RecordSizeRequest(ctx context.Context, in SizeRequestInput) (*IssueResult, error)
	FulfillSizeRequest(ctx context.Context, in FulfillInput) (*IssueResult, error)
}

type fulfillmentService struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewFulfillmentService constructs a FulfillmentService over store.
func NewFulfillmentService(store Store, logger *logrus.Logger) FulfillmentService {
	return &fulfillmentService{store: store, logger: logger, now: time.Now}
}

func (s *fulfillmentService) CheckStock(ctx context.Context, key VariantKey, size string, requested int) (*StockCheck, error) {
	if strings.TrimSpace(key.VariantType) == "" {
		return nil, Invalid("variantType", "is required")
	}
	if strings.TrimSpace(size) == "" {
		return nil, Invalid("size", "is required")
	}
	if requested <= 0 {
		return nil, Invalid("quantity", "must be positive")
	}
	batches, err := s.store.ListBatches(ctx)
	if err != nil {
		return nil, err
	}
	check := CheckStock(batches, key, size, requested)
	return &check, nil
}

func (s *fulfillmentService) RecordIssue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	if strings.TrimSpace(in.Size) == "" {
		return nil, Invalid("size", "is required")
	}
	if in.Quantity <= 0 {
		return nil, Invalid("quantity", "must be positive")
	}

	if _, err := s.store.GetStudent(ctx, in.StudentID); err != nil {
		return nil, err
	}
	uniform, err := s.store.GetUniform(ctx, in.UniformID)
	if err != nil {
		return nil, err
	}

	entry := s.newEntry(uniform, in.LoggedBy, in.IdempotencyKey)
	entry.QuantityReceived = in.Quantity
	entry.SizeReceived = StringPtr(strings.TrimSpace(in.Size))
	if err := ValidateLogEntry(entry); err != nil {
		return nil, err
	}

	w := FulfillmentWrite{StudentID: in.StudentID, Entry: entry, Now: s.now()}
	if in.BatchID != "" {
		w.Deduction = &StockDeduction{
			BatchID:  in.BatchID,
			Key:      defaultVariant(in.Variant, uniform),
			Size:     *entry.SizeReceived,
			Quantity: in.Quantity,
		}
	}
	return s.record(ctx, w, in.Override)
}

func (s *fulfillmentService) RecordSizeRequest(ctx context.Context, in SizeRequestInput) (*IssueResult, error) {
	if strings.TrimSpace(in.SizeWanted) == "" {
		return nil, Invalid("sizeWanted", "is required")
	}
	if _, err := s.store.GetStudent(ctx, in.StudentID); err != nil {
		return nil, err
	}
	uniform, err := s.store.GetUniform(ctx, in.UniformID)
	if err != nil {
		return nil, err
	}

	entry := s.newEntry(uniform, in.LoggedBy, in.IdempotencyKey)
	entry.SizeWanted = StringPtr(strings.TrimSpace(in.SizeWanted))
	if err := ValidateLogEntry(entry); err != nil {
		return nil, err
	}

	res, err := s.store.AppendLogEntry(ctx, in.StudentID, entry)
	if err != nil {
		return nil, s.logWriteError("record size request", entry.IdempotencyKey, err)
	}
	return &IssueResult{FulfillmentResult: *res}, nil
}

func (s *fulfillmentService) FulfillSizeRequest(ctx context.Context, in FulfillInput) (*IssueResult, error) {
	if in.Quantity <= 0 {
		return nil, Invalid("quantity", "must be positive")
	}
	student, err := s.store.GetStudent(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}

	// A committed fulfilment has already replaced EntryID, so match the key first.
	if in.IdempotencyKey != "" {
		for _, e := range student.UniformLog {
			if e.IdempotencyKey == in.IdempotencyKey {
				return &IssueResult{FulfillmentResult: FulfillmentResult{Entry: e, Replayed: true}}, nil
			}
		}
	}

	var request *LogEntry
	for i := range student.UniformLog {
		if student.UniformLog[i].ID == in.EntryID {
			request = &student.UniformLog[i]
			break
		}
	}
	if request == nil {
		return nil, NotFound("log entry", in.EntryID)
	}
	if !request.IsSizeRequest() {
		return nil, Invalid("entryId", "entry is not an open size request")
	}

	uniform, err := s.store.GetUniform(ctx, request.UniformID)
	if err != nil {
		return nil, err
	}

	entry := s.newEntry(uniform, in.LoggedBy, in.IdempotencyKey)
	entry.QuantityReceived = in.Quantity
	entry.SizeReceived = StringPtr(*request.SizeWanted)

	w := FulfillmentWrite{
		StudentID:      in.StudentID,
		Entry:          entry,
		ReplaceEntryID: in.EntryID,
		Now:            s.now(),
	}
	if in.BatchID != "" {
		w.Deduction = &StockDeduction{
			BatchID:  in.BatchID,
			Key:      defaultVariant(in.Variant, uniform),
			Size:     *entry.SizeReceived,
			Quantity: in.Quantity,
		}
	}
	return s.record(ctx, w, in.Override)
}

// record writes w and, when the batch is short and override is set, writes the
// entry again without the deduction.
func (s *fulfillmentService) record(ctx context.Context, w FulfillmentWrite, override bool) (*IssueResult, error) {
	res, err := s.store.RecordFulfillment(ctx, w)
	if err == nil {
		return &IssueResult{FulfillmentResult: *res}, nil
	}

	var short *InsufficientStockError
	if !override || !errors.As(err, &short) {
		return nil, s.logWriteError("record fulfillment", w.Entry.IdempotencyKey, err)
	}

	s.logger.WithFields(logrus.Fields{
		"student_id": w.StudentID,
		"batch_id":   w.Deduction.BatchID,
		"size":       short.Size,
		"requested":  short.Requested,
		"available":  short.Available,
	}).Warn("insufficient stock overridden; logging issue without deduction")

	w.Deduction = nil
	res, err = s.store.RecordFulfillment(ctx, w)
	if err != nil {
		return nil, s.logWriteError("record fulfillment", w.Entry.IdempotencyKey, err)
	}
	return &IssueResult{FulfillmentResult: *res, StockSkipped: true}, nil
}

// logWriteError logs unexpected write failures and returns err unchanged.
func (s *fulfillmentService) logWriteError(op, key string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation), errors.Is(err, ErrInsufficientStock):
		return err
	}
	fields := logrus.Fields{"op": op, "idempotency_key": key}
	if errors.Is(err, ErrPartialWrite) {
		s.logger.WithFields(fields).WithError(err).Error("write outcome unknown; caller may retry with the same key")
		return err
	}
	s.logger.WithFields(fields).WithError(err).Error("fulfillment write failed")
	return err
}

func (s *fulfillmentService) newEntry(u *Uniform, loggedBy, key string) LogEntry {
	if key == "" {
		key = uuid.NewString()
	}
	return LogEntry{
		ID:             uuid.NewString(),
		UniformID:      u.ID,
		UniformName:    u.Name,
		UniformType:    u.Type,
		LoggedAt:       s.now().UTC(),
		LoggedBy:       loggedBy,
		IdempotencyKey: key,
	}
}

func defaultVariant(k VariantKey, u *Uniform) VariantKey {
	if strings.TrimSpace(k.VariantType) == "" {
		k.VariantType = u.Type
	}
	return k
}
