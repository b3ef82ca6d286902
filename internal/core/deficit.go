package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Student completion status values.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusPending  = "pending"
	StatusNoPolicy = "no-policy"
)

// PolicyLine is the per-policy breakdown of a student's deficit.
type PolicyLine struct {
	PolicyID           string     `json:"policyId,omitempty"`
	UniformID          string     `json:"uniformId"`
	UniformName        string     `json:"uniformName"`
	QuantityPerStudent int        `json:"quantityPerStudent"`
	Received           int        `json:"received"`
	Deficit            int        `json:"deficit"`
	PendingRequests    []LogEntry `json:"pendingRequests"`
}

// StudentDeficit summarises one student against the policies that apply to them.
// TotalReceived is not capped per policy, so CompletionRate can exceed 100.
type StudentDeficit struct {
	StudentID      string       `json:"studentId"`
	TotalRequired  int          `json:"totalRequired"`
	TotalReceived  int          `json:"totalReceived"`
	TotalDeficit   int          `json:"totalDeficit"`
	CompletionRate int          `json:"completionRate"`
	Status         string       `json:"status"`
	HasDeficit     bool         `json:"hasDeficit"`
	Lines          []PolicyLine `json:"lines"`
}

// ComputeStudentDeficit evaluates a student's log against the policies matching
// their level and gender (exact match). Every matching policy counts, including
// duplicates for the same uniform.
func ComputeStudentDeficit(student Student, policies []Policy) StudentDeficit {
	applicable := BuildPolicyIndex(policies).Resolve(student.Level, student.Gender)

	res := StudentDeficit{StudentID: student.ID, Lines: []PolicyLine{}}
	anyShort := false
	for _, p := range applicable {
		agg := AggregateLog(student.UniformLog, p.UniformID)
		deficit := clampDeficit(p.QuantityPerStudent, agg.ReceivedQuantity)
		if agg.ReceivedQuantity < p.QuantityPerStudent {
			anyShort = true
		}
		res.TotalRequired += p.QuantityPerStudent
		res.TotalReceived += agg.ReceivedQuantity
		res.TotalDeficit += deficit
		res.Lines = append(res.Lines, PolicyLine{
			PolicyID:           p.ID,
			UniformID:          p.UniformID,
			UniformName:        p.UniformName,
			QuantityPerStudent: p.QuantityPerStudent,
			Received:           agg.ReceivedQuantity,
			Deficit:            deficit,
			PendingRequests:    agg.PendingRequests,
		})
	}

	if res.TotalRequired == 0 {
		res.Status = StatusNoPolicy
		return res
	}

	res.CompletionRate = completionRate(res.TotalReceived, res.TotalRequired)
	switch {
	case res.CompletionRate >= 100:
		res.Status = StatusComplete
	case res.CompletionRate > 0:
		res.Status = StatusPartial
	default:
		res.Status = StatusPending
	}
	res.HasDeficit = anyShort
	return res
}

// completionRate is round(100 * received / required), halves rounded up.
func completionRate(received, required int) int {
	rate := decimal.NewFromInt(int64(100 * received)).
		Div(decimal.NewFromInt(int64(required))).
		Round(0)
	return int(rate.IntPart())
}

func clampDeficit(required, received int) int {
	if received >= required {
		return 0
	}
	return required - received
}

// ── School report ────────────────────────────────────────────────────────────

// AffectedStudent is a student contributing to a uniform deficit.
type AffectedStudent struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Deficit int    `json:"deficit"`
}

// UniformDeficit aggregates one (uniform, level, gender) group across a school.
type UniformDeficit struct {
	UniformID        string            `json:"uniformId"`
	UniformName      string            `json:"uniformName"`
	Level            string            `json:"level"`
	Gender           string            `json:"gender"`
	TotalDeficit     int               `json:"totalDeficit"`
	StudentsAffected []AffectedStudent `json:"studentsAffected"`
}

// RequestingStudent is a student with an open size request.
type RequestingStudent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SizeRequestBucket collects open size requests for one (uniform, size).
type SizeRequestBucket struct {
	UniformID   string              `json:"uniformId"`
	UniformName string              `json:"uniformName"`
	Size        string              `json:"size"`
	Students    []RequestingStudent `json:"students"`
}

// SchoolDeficitReport is recomputed on demand and never persisted.
type SchoolDeficitReport struct {
	SchoolID             string              `json:"schoolId,omitempty"`
	UniformDeficits      []UniformDeficit    `json:"uniformDeficits"`
	SizeRequests         []SizeRequestBucket `json:"sizeRequests"`
	TotalStudents        int                 `json:"totalStudents"`
	StudentsWithDeficits int                 `json:"studentsWithDeficits"`
}

type policyGroupKey struct {
	UniformID string
	Level     string
	Gender    string
}

type sizeRequestKey struct {
	UniformID string
	Size      string
}

// ComputeSchoolDeficitReport aggregates deficits and open size requests over a
// school's students.
//
// Policies are grouped by (uniformID, level, gender) and the first policy seen
// for a key wins; later duplicates are ignored here even though
// ComputeStudentDeficit counts them.
func ComputeSchoolDeficitReport(students []Student, policies []Policy) SchoolDeficitReport {
	var groups []Policy
	seen := make(map[policyGroupKey]bool)
	for _, p := range policies {
		k := policyGroupKey{UniformID: p.UniformID, Level: p.Level, Gender: p.Gender}
		if seen[k] {
			continue
		}
		seen[k] = true
		groups = append(groups, p)
	}

	buckets := make(map[policyGroupKey]*UniformDeficit)
	var bucketOrder []policyGroupKey
	withDeficit := 0

	for _, s := range students {
		short := false
		for _, g := range groups {
			if g.Level != s.Level || g.Gender != s.Gender {
				continue
			}
			agg := AggregateLog(s.UniformLog, g.UniformID)
			deficit := clampDeficit(g.QuantityPerStudent, agg.ReceivedQuantity)
			if deficit == 0 {
				continue
			}
			short = true
			k := policyGroupKey{UniformID: g.UniformID, Level: g.Level, Gender: g.Gender}
			b, ok := buckets[k]
			if !ok {
				b = &UniformDeficit{
					UniformID:        g.UniformID,
					UniformName:      g.UniformName,
					Level:            g.Level,
					Gender:           g.Gender,
					StudentsAffected: []AffectedStudent{},
				}
				buckets[k] = b
				bucketOrder = append(bucketOrder, k)
			}
			b.TotalDeficit += deficit
			b.StudentsAffected = append(b.StudentsAffected, AffectedStudent{ID: s.ID, Name: s.Name, Deficit: deficit})
		}
		if short {
			withDeficit++
		}
	}

	report := SchoolDeficitReport{
		UniformDeficits:      make([]UniformDeficit, 0, len(bucketOrder)),
		SizeRequests:         collectSizeRequests(students),
		TotalStudents:        len(students),
		StudentsWithDeficits: withDeficit,
	}
	for _, k := range bucketOrder {
		report.UniformDeficits = append(report.UniformDeficits, *buckets[k])
	}
	sort.SliceStable(report.UniformDeficits, func(i, j int) bool {
		return report.UniformDeficits[i].TotalDeficit > report.UniformDeficits[j].TotalDeficit
	})
	return report
}

// collectSizeRequests buckets every open size request by (uniform, size wanted),
// listing each student at most once per bucket.
func collectSizeRequests(students []Student) []SizeRequestBucket {
	buckets := make(map[sizeRequestKey]*SizeRequestBucket)
	members := make(map[sizeRequestKey]map[string]bool)
	var order []sizeRequestKey

	for _, s := range students {
		for _, e := range s.UniformLog {
			if !e.IsSizeRequest() {
				continue
			}
			k := sizeRequestKey{UniformID: e.UniformID, Size: *e.SizeWanted}
			b, ok := buckets[k]
			if !ok {
				b = &SizeRequestBucket{
					UniformID:   e.UniformID,
					UniformName: e.UniformName,
					Size:        *e.SizeWanted,
					Students:    []RequestingStudent{},
				}
				buckets[k] = b
				members[k] = make(map[string]bool)
				order = append(order, k)
			}
			if members[k][s.ID] {
				continue
			}
			members[k][s.ID] = true
			b.Students = append(b.Students, RequestingStudent{ID: s.ID, Name: s.Name})
		}
	}

	out := make([]SizeRequestBucket, 0, len(order))
	for _, k := range order {
		out = append(out, *buckets[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UniformName != out[j].UniformName {
			return out[i].UniformName < out[j].UniformName
		}
		return out[i].Size < out[j].Size
	})
	return out
}
