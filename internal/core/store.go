package core

import (
	"context"
	"time"
)

// Store is the document-store client the services depend on. Implementations live
// in internal/store; services receive one through their constructor.
//
// Documents written before a schema change may lack fields: implementations must
// return an empty UniformLog rather than nil and must keep policies without an ID.
type Store interface {
	ListSchools(ctx context.Context) ([]School, error)
	GetSchool(ctx context.Context, id string) (*School, error)
	CreateSchool(ctx context.Context, s School) (*School, error)
	// UpdatePolicyList replaces the policy list if the stored version still equals
	// expectedVersion, otherwise it fails with ErrConflict.
	UpdatePolicyList(ctx context.Context, schoolID string, expectedVersion int64, policies []Policy) (*School, error)

	ListUniforms(ctx context.Context, schoolID string) ([]Uniform, error)
	GetUniform(ctx context.Context, id string) (*Uniform, error)
	CreateUniform(ctx context.Context, u Uniform) (*Uniform, error)

	ListStudentsBySchool(ctx context.Context, schoolID string) ([]Student, error)
	GetStudent(ctx context.Context, id string) (*Student, error)
	CreateStudent(ctx context.Context, s Student) (*Student, error)
	// AppendLogEntry appends an entry that does not touch stock. An entry whose
	// IdempotencyKey is already in the log is not appended twice.
	AppendLogEntry(ctx context.Context, studentID string, e LogEntry) (*FulfillmentResult, error)

	ListBatches(ctx context.Context) ([]Batch, error)
	GetBatch(ctx context.Context, id string) (*Batch, error)
	CreateBatch(ctx context.Context, b Batch) (*Batch, error)
	DeductBatchStock(ctx context.Context, batchID string, key VariantKey, size string, qty int) (*SizeStock, error)

	// RecordFulfillment applies the log write and the optional stock deduction in
	// one transaction: both land or neither does.
	RecordFulfillment(ctx context.Context, w FulfillmentWrite) (*FulfillmentResult, error)
}

// StockDeduction names the batch stock consumed by a fulfilment.
type StockDeduction struct {
	BatchID  string     `json:"batchId"`
	Key      VariantKey `json:"key"`
	Size     string     `json:"size"`
	Quantity int        `json:"quantity"`
}

// FulfillmentWrite is one logical unit: a log entry (appended, or replacing an open
// size request) plus, optionally, the matching stock deduction.
type FulfillmentWrite struct {
	StudentID      string
	Entry          LogEntry
	ReplaceEntryID string
	Deduction      *StockDeduction
	Now            time.Time
}

// FulfillmentResult reports what a fulfilment wrote.
type FulfillmentResult struct {
	Entry    LogEntry   `json:"entry"`
	Stock    *SizeStock `json:"stock,omitempty"`
	Replaced bool       `json:"replaced"`
	// Replayed is true when the idempotency key was already present and nothing
	// was written.
	Replayed bool `json:"replayed"`
}

// ApplyFulfillment performs a fulfilment on in-memory copies of the student and,
// when w.Deduction is set, the batch. Store implementations load both documents
// inside their transaction, call this, then persist the mutated values. On error
// neither value has been changed in a way the caller may persist.
func ApplyFulfillment(student *Student, batch *Batch, w FulfillmentWrite) (*FulfillmentResult, error) {
	if w.Entry.IdempotencyKey != "" {
		for _, e := range student.UniformLog {
			if e.IdempotencyKey == w.Entry.IdempotencyKey {
				return &FulfillmentResult{Entry: e, Replayed: true}, nil
			}
		}
	}

	replaceAt := -1
	if w.ReplaceEntryID != "" {
		for i, e := range student.UniformLog {
			if e.ID == w.ReplaceEntryID {
				replaceAt = i
				break
			}
		}
		if replaceAt < 0 {
			return nil, NotFound("log entry", w.ReplaceEntryID)
		}
		if !student.UniformLog[replaceAt].IsSizeRequest() {
			return nil, Invalid("entryId", "entry is not an open size request")
		}
	}

	res := &FulfillmentResult{Entry: w.Entry}
	if w.Deduction != nil {
		if batch == nil {
			return nil, NotFound("batch", w.Deduction.BatchID)
		}
		idx, err := batch.FindItem(w.Deduction.Key, w.Deduction.Size)
		if err != nil {
			return nil, err
		}
		// Work on a copy so a rejected deduction leaves the batch untouched.
		item := cloneBatchItem(batch.Items[idx])
		stock, err := DeductSize(&item, w.Deduction.Size, w.Deduction.Quantity, w.Now)
		if err != nil {
			return nil, err
		}
		batch.Items[idx] = item
		res.Stock = &stock
	}

	if replaceAt >= 0 {
		student.UniformLog[replaceAt] = w.Entry
		res.Replaced = true
	} else {
		student.UniformLog = append(student.UniformLog, w.Entry)
	}
	return res, nil
}

func cloneBatchItem(item BatchItem) BatchItem {
	out := item
	out.Sizes = make([]SizeStock, len(item.Sizes))
	copy(out.Sizes, item.Sizes)
	return out
}
