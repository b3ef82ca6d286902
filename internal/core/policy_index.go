package core

import "strings"

// applicability is the (level, gender) pair a policy applies to.
type applicability struct {
	Level  string
	Gender string
}

// PolicyIndex groups a school's policies by (level, gender). Duplicates and
// conflicting entries for the same uniform are all kept, in input order.
type PolicyIndex struct {
	byApplicability map[applicability][]Policy
}

// BuildPolicyIndex indexes policies by exact (level, gender).
func BuildPolicyIndex(policies []Policy) PolicyIndex {
	idx := PolicyIndex{byApplicability: make(map[applicability][]Policy)}
	for _, p := range policies {
		k := applicability{Level: p.Level, Gender: p.Gender}
		idx.byApplicability[k] = append(idx.byApplicability[k], p)
	}
	return idx
}

// Resolve returns every policy whose level and gender equal the arguments.
// Comparison is exact and case-sensitive. The returned slice is a copy.
func (idx PolicyIndex) Resolve(level, gender string) []Policy {
	found := idx.byApplicability[applicability{Level: level, Gender: gender}]
	if len(found) == 0 {
		return nil
	}
	out := make([]Policy, len(found))
	copy(out, found)
	return out
}

// Len returns the total number of indexed policies.
func (idx PolicyIndex) Len() int {
	n := 0
	for _, ps := range idx.byApplicability {
		n += len(ps)
	}
	return n
}

// ── Policy references ────────────────────────────────────────────────────────

// PolicyRef identifies the policy (or policies) a removal targets.
// It is either PolicyByID or PolicyByComposite.
type PolicyRef interface {
	matches(p Policy) bool
	String() string
}

// PolicyByID matches exactly the stored policies carrying this ID.
type PolicyByID struct {
	ID string
}

func (r PolicyByID) matches(p Policy) bool {
	return p.ID != "" && p.ID == r.ID
}

func (r PolicyByID) String() string { return "id=" + r.ID }

// PolicyByComposite matches every policy with the same (uniformID, level, gender).
// Used for legacy records that were stored without an ID.
type PolicyByComposite struct {
	UniformID string
	Level     string
	Gender    string
}

func (r PolicyByComposite) matches(p Policy) bool {
	return p.UniformID == r.UniformID && p.Level == r.Level && p.Gender == r.Gender
}

func (r PolicyByComposite) String() string {
	return "uniform=" + r.UniformID + " level=" + r.Level + " gender=" + r.Gender
}

// RefForPolicy picks the reference mode for a target policy: by ID when it has
// one, otherwise by composite key.
func RefForPolicy(p Policy) PolicyRef {
	if p.ID != "" {
		return PolicyByID{ID: p.ID}
	}
	return PolicyByComposite{UniformID: p.UniformID, Level: p.Level, Gender: p.Gender}
}

// RemovePolicy returns a new slice without the policies matched by ref and the
// number of entries removed. The input slice is not modified.
func RemovePolicy(policies []Policy, ref PolicyRef) ([]Policy, int) {
	out := make([]Policy, 0, len(policies))
	removed := 0
	for _, p := range policies {
		if ref.matches(p) {
			removed++
			continue
		}
		out = append(out, p)
	}
	return out, removed
}

// UniformMatchesPolicy reports whether a catalogue uniform may be attached to a
// policy for (level, gender). Unlike Resolve this comparison ignores case; an
// empty uniform level or gender means the uniform is unrestricted.
func UniformMatchesPolicy(u Uniform, level, gender string) bool {
	if u.Level != "" && !strings.EqualFold(u.Level, level) {
		return false
	}
	if u.Gender != "" && !strings.EqualFold(u.Gender, gender) {
		return false
	}
	return true
}

// ValidatePolicy checks a policy before it is written.
func ValidatePolicy(p Policy) error {
	if strings.TrimSpace(p.UniformID) == "" {
		return Invalid("uniformId", "is required")
	}
	if p.Level != LevelJunior && p.Level != LevelSenior {
		return Invalid("level", "must be Junior or Senior")
	}
	if p.Gender != GenderBoys && p.Gender != GenderGirls {
		return Invalid("gender", "must be Boys or Girls")
	}
	if p.QuantityPerStudent < 1 {
		return Invalid("quantityPerStudent", "must be at least 1")
	}
	return nil
}
