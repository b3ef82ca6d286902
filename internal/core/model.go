package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Level values used by policies and students. Stored verbatim; matching in the
// deficit path is case-sensitive.
const (
	LevelJunior = "Junior"
	LevelSenior = "Senior"
)

// Gender values used by policies and students.
const (
	GenderBoys  = "Boys"
	GenderGirls = "Girls"
)

// School owns its uniform policy list. Version is bumped on every policy-list write
// and is the precondition for the next conditional write.
type School struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	UniformPolicy []Policy  `json:"uniformPolicy"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Policy states how many of a uniform a student of a given level and gender must receive.
// ID is empty on records written before policies carried identifiers.
type Policy struct {
	ID                 string `json:"id,omitempty"`
	UniformID          string `json:"uniformId"`
	UniformName        string `json:"uniformName"`
	UniformType        string `json:"uniformType"`
	Level              string `json:"level"`
	Gender             string `json:"gender"`
	IsRequired         bool   `json:"isRequired"`
	QuantityPerStudent int    `json:"quantityPerStudent"`
}

// Uniform is a catalogue item that policies and log entries refer to.
type Uniform struct {
	ID       string `json:"id"`
	SchoolID string `json:"schoolId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Level    string `json:"level"`
	Gender   string `json:"gender"`
}

// Student is a set of policy-applicability attributes (Level, Gender) plus an
// append-only ledger of uniform receipts and size requests.
type Student struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Form       string     `json:"form"`
	Level      string     `json:"level"`
	Gender     string     `json:"gender"`
	SchoolID   string     `json:"schoolId"`
	UniformLog []LogEntry `json:"uniformLog"`
	Version    int64      `json:"version"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// LogEntry is one receipt or size-request event in a student's uniform log.
//
// A received entry has SizeReceived set and QuantityReceived >= 1.
// A size request has SizeWanted set and QuantityReceived == 0.
type LogEntry struct {
	ID               string    `json:"id,omitempty"`
	UniformID        string    `json:"uniformId"`
	UniformName      string    `json:"uniformName"`
	UniformType      string    `json:"uniformType"`
	QuantityReceived int       `json:"quantityReceived"`
	SizeReceived     *string   `json:"sizeReceived"`
	SizeWanted       *string   `json:"sizeWanted"`
	LoggedAt         time.Time `json:"loggedAt"`
	LoggedBy         string    `json:"loggedBy"`
	IdempotencyKey   string    `json:"idempotencyKey,omitempty"`
}

// IsSizeRequest reports whether the entry is an outstanding request with no fulfilment.
func (e LogEntry) IsSizeRequest() bool {
	return e.SizeWanted != nil && e.SizeReceived == nil
}

// Batch is a warehouse delivery. Item quantities are the authoritative remaining stock.
type Batch struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Items     []BatchItem `json:"items"`
	Version   int64       `json:"version"`
	CreatedAt time.Time   `json:"createdAt"`
}

// BatchItem is one garment variant within a batch.
type BatchItem struct {
	VariantType string          `json:"variantType"`
	Color       string          `json:"color"`
	Price       decimal.Decimal `json:"price"`
	Sizes       []SizeStock     `json:"sizes"`
}

// SizeStock is the remaining quantity of one size. DepletedAt is stamped the first
// time Quantity reaches zero and is never cleared.
type SizeStock struct {
	Size       string     `json:"size"`
	Quantity   int        `json:"quantity"`
	DepletedAt *time.Time `json:"depletedAt,omitempty"`
}

// StockLevel is a flattened read view of one (batch, variant, size) row.
type StockLevel struct {
	BatchID     string          `json:"batchId"`
	BatchName   string          `json:"batchName"`
	VariantType string          `json:"variantType"`
	Color       string          `json:"color"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Value       decimal.Decimal `json:"value"` // Price * Quantity
	DepletedAt  *time.Time      `json:"depletedAt,omitempty"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
