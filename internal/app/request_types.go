package app

import (
	"github.com/shopspring/decimal"
)

// CreateSchoolRequest is the input for creating a school.
type CreateSchoolRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// AddPolicyRequest is the input for appending a uniform policy to a school.
type AddPolicyRequest struct {
	SchoolID           string `json:"-" validate:"required"`
	UniformID          string `json:"uniformId" validate:"required"`
	Level              string `json:"level" validate:"required"`
	Gender             string `json:"gender" validate:"required"`
	IsRequired         bool   `json:"isRequired"`
	QuantityPerStudent int    `json:"quantityPerStudent" validate:"gte=1"`
}

// RemovePolicyRequest identifies the policies to remove. ID wins when set;
// otherwise all three composite fields are required.
type RemovePolicyRequest struct {
	SchoolID  string `json:"-" validate:"required"`
	ID        string `json:"id"`
	UniformID string `json:"uniformId" validate:"required_without=ID"`
	Level     string `json:"level" validate:"required_without=ID"`
	Gender    string `json:"gender" validate:"required_without=ID"`
}

// CreateUniformRequest is the input for adding a uniform to a school's catalogue.
type CreateUniformRequest struct {
	SchoolID string `json:"-" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Type     string `json:"type" validate:"required"`
	Level    string `json:"level"`
	Gender   string `json:"gender"`
}

// EnrollStudentRequest is the input for adding a student to a school.
type EnrollStudentRequest struct {
	SchoolID string `json:"-" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Form     string `json:"form"`
	Level    string `json:"level" validate:"required"`
	Gender   string `json:"gender" validate:"required"`
}

// VariantInput names the garment variant to deduct from. An empty VariantType
// falls back to the uniform's type; an empty Color matches any colour.
type VariantInput struct {
	VariantType string `json:"variantType"`
	Color       string `json:"color"`
}

// IssueRequest is the input for logging uniforms handed to a student.
type IssueRequest struct {
	StudentID      string       `json:"-" validate:"required"`
	UniformID      string       `json:"uniformId" validate:"required"`
	Size           string       `json:"size" validate:"required"`
	Quantity       int          `json:"quantity" validate:"gte=1"`
	LoggedBy       string       `json:"loggedBy"`
	BatchID        string       `json:"batchId"`
	Variant        VariantInput `json:"variant"`
	Override       bool         `json:"override"`
	IdempotencyKey string       `json:"idempotencyKey" validate:"omitempty,max=128"`
}

// SizeRequestRequest is the input for logging an unavailable size.
type SizeRequestRequest struct {
	StudentID      string `json:"-" validate:"required"`
	UniformID      string `json:"uniformId" validate:"required"`
	SizeWanted     string `json:"sizeWanted" validate:"required"`
	LoggedBy       string `json:"loggedBy"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,max=128"`
}

// FulfillRequest is the input for fulfilling an open size request.
type FulfillRequest struct {
	StudentID      string       `json:"-" validate:"required"`
	EntryID        string       `json:"-" validate:"required"`
	Quantity       int          `json:"quantity" validate:"gte=1"`
	LoggedBy       string       `json:"loggedBy"`
	BatchID        string       `json:"batchId"`
	Variant        VariantInput `json:"variant"`
	Override       bool         `json:"override"`
	IdempotencyKey string       `json:"idempotencyKey" validate:"omitempty,max=128"`
}

// NoteRequest is a free-text staff note about one student.
type NoteRequest struct {
	StudentID string `json:"-" validate:"required"`
	Text      string `json:"text" validate:"required,max=2000"`
}

// SizeInput is one size row of a new batch item.
type SizeInput struct {
	Size     string `json:"size" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// BatchItemInput is one variant of a new batch.
type BatchItemInput struct {
	VariantType string          `json:"variantType" validate:"required"`
	Color       string          `json:"color"`
	Price       decimal.Decimal `json:"price"`
	Sizes       []SizeInput     `json:"sizes" validate:"required,min=1,dive"`
}

// ReceiveBatchRequest is the input for recording a warehouse delivery.
type ReceiveBatchRequest struct {
	Name  string           `json:"name" validate:"required"`
	Items []BatchItemInput `json:"items" validate:"required,min=1,dive"`
}

// WriteOffRequest removes damaged or lost stock from a batch.
type WriteOffRequest struct {
	BatchID  string       `json:"-" validate:"required"`
	Variant  VariantInput `json:"variant"`
	Size     string       `json:"size" validate:"required"`
	Quantity int          `json:"quantity" validate:"gte=1"`
}

// StockCheckRequest asks whether enough stock exists across all batches.
type StockCheckRequest struct {
	VariantType string `json:"variantType" validate:"required"`
	Color       string `json:"color"`
	Size        string `json:"size" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gte=1"`
}
