package core_test

import (
	"reflect"
	"testing"

	"uniform-tracker/internal/core"
)

func TestAggregateLog(t *testing.T) {
	log := []core.LogEntry{
		received("u1", 2, "M"),
		sizeRequest("u1", "L"),
		received("u2", 4, "S"),
		received("u1", 1, "L"),
	}
	before := append([]core.LogEntry{}, log...)

	first := core.AggregateLog(log, "u1")
	second := core.AggregateLog(log, "u1")

	if first.ReceivedQuantity != 3 {
		t.Errorf("receivedQuantity = %d, want 3", first.ReceivedQuantity)
	}
	if len(first.PendingRequests) != 1 || *first.PendingRequests[0].SizeWanted != "L" {
		t.Errorf("unexpected pending requests %+v", first.PendingRequests)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("aggregation is not repeatable: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(log, before) {
		t.Errorf("AggregateLog modified its input")
	}

	if empty := core.AggregateLog(nil, "u1"); empty.ReceivedQuantity != 0 || empty.PendingRequests == nil {
		t.Errorf("empty log should aggregate to zero with empty pending slice, got %+v", empty)
	}
}

func TestAggregateLog_FulfilledRequestNotPending(t *testing.T) {
	e := core.LogEntry{UniformID: "u1", QuantityReceived: 1, SizeWanted: core.StringPtr("L"), SizeReceived: core.StringPtr("L")}
	agg := core.AggregateLog([]core.LogEntry{e}, "u1")
	if len(agg.PendingRequests) != 0 || agg.ReceivedQuantity != 1 {
		t.Errorf("fulfilled request must count as received, got %+v", agg)
	}
}

func TestValidateLogEntry(t *testing.T) {
	tests := []struct {
		name    string
		entry   core.LogEntry
		wantErr bool
	}{
		{"received", received("u1", 1, "M"), false},
		{"size request", sizeRequest("u1", "L"), false},
		{"missing uniform", core.LogEntry{QuantityReceived: 1, SizeReceived: core.StringPtr("M")}, true},
		{"received zero quantity", received("u1", 0, "M"), true},
		{"both sizes", core.LogEntry{UniformID: "u1", QuantityReceived: 1, SizeReceived: core.StringPtr("M"), SizeWanted: core.StringPtr("L")}, true},
		{"request with quantity", core.LogEntry{UniformID: "u1", QuantityReceived: 1, SizeWanted: core.StringPtr("L")}, true},
		{"neither size", core.LogEntry{UniformID: "u1"}, true},
		{"blank size", core.LogEntry{UniformID: "u1", QuantityReceived: 1, SizeReceived: core.StringPtr("  ")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := core.ValidateLogEntry(tt.entry)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLogEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
