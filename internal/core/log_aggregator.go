package core

import "strings"

// LogAggregate is the reduction of a student's log for one uniform.
type LogAggregate struct {
	ReceivedQuantity int        `json:"receivedQuantity"`
	PendingRequests  []LogEntry `json:"pendingRequests"`
}

// AggregateLog sums QuantityReceived over every entry for uniformID and collects
// the entries that are still open size requests. Size requests carry a zero
// quantity, so they never inflate the sum. The log is not modified.
func AggregateLog(log []LogEntry, uniformID string) LogAggregate {
	agg := LogAggregate{PendingRequests: []LogEntry{}}
	for _, e := range log {
		if e.UniformID != uniformID {
			continue
		}
		agg.ReceivedQuantity += e.QuantityReceived
		if e.IsSizeRequest() {
			agg.PendingRequests = append(agg.PendingRequests, e)
		}
	}
	return agg
}

// ValidateLogEntry enforces the received / size-request shape on a new entry.
// Stored legacy entries are read as-is and never re-validated.
func ValidateLogEntry(e LogEntry) error {
	if strings.TrimSpace(e.UniformID) == "" {
		return Invalid("uniformId", "is required")
	}
	hasReceived := e.SizeReceived != nil && strings.TrimSpace(*e.SizeReceived) != ""
	hasWanted := e.SizeWanted != nil && strings.TrimSpace(*e.SizeWanted) != ""
	switch {
	case hasReceived && hasWanted:
		return Invalid("sizeWanted", "must be empty when sizeReceived is set")
	case hasReceived:
		if e.QuantityReceived < 1 {
			return Invalid("quantityReceived", "must be positive for a received entry")
		}
	case hasWanted:
		if e.QuantityReceived != 0 {
			return Invalid("quantityReceived", "must be 0 for a size request")
		}
	default:
		return Invalid("sizeReceived", "either sizeReceived or sizeWanted is required")
	}
	return nil
}
