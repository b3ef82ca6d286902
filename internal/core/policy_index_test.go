package core_test

import (
	"errors"
	"testing"

	"uniform-tracker/internal/core"
)

func TestPolicyIndex_Resolve(t *testing.T) {
	policies := []core.Policy{
		{ID: "a", UniformID: "u1", Level: core.LevelJunior, Gender: core.GenderBoys},
		{ID: "b", UniformID: "u2", Level: core.LevelJunior, Gender: core.GenderGirls},
		{ID: "c", UniformID: "u1", Level: core.LevelJunior, Gender: core.GenderBoys},
	}
	idx := core.BuildPolicyIndex(policies)

	if idx.Len() != 3 {
		t.Errorf("Len() = %d, want 3", idx.Len())
	}
	got := idx.Resolve(core.LevelJunior, core.GenderBoys)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("expected [a c] in input order, got %+v", got)
	}
	if got := idx.Resolve("junior", "boys"); len(got) != 0 {
		t.Errorf("Resolve must be case-sensitive, got %+v", got)
	}

	got[0].ID = "mutated"
	if again := idx.Resolve(core.LevelJunior, core.GenderBoys); again[0].ID != "a" {
		t.Errorf("Resolve must return a copy")
	}
}

func TestRemovePolicy(t *testing.T) {
	policies := []core.Policy{
		{ID: "p1", UniformID: "u1", Level: core.LevelJunior, Gender: core.GenderBoys},
		{ID: "p2", UniformID: "u1", Level: core.LevelJunior, Gender: core.GenderBoys},
		{UniformID: "u1", Level: core.LevelJunior, Gender: core.GenderBoys},
		{UniformID: "u2", Level: core.LevelSenior, Gender: core.GenderGirls},
	}

	tests := []struct {
		name        string
		ref         core.PolicyRef
		wantRemoved int
		wantLeft    int
	}{
		{"by id removes exactly one", core.PolicyByID{ID: "p1"}, 1, 3},
		{"by composite removes all matches", core.PolicyByComposite{UniformID: "u1", Level: core.LevelJunior, Gender: core.GenderBoys}, 3, 1},
		{"unknown id", core.PolicyByID{ID: "nope"}, 0, 4},
		{"empty id never matches legacy entries", core.PolicyByID{ID: ""}, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, removed := core.RemovePolicy(policies, tt.ref)
			if removed != tt.wantRemoved || len(left) != tt.wantLeft {
				t.Errorf("removed %d left %d, want %d/%d", removed, len(left), tt.wantRemoved, tt.wantLeft)
			}
			if len(policies) != 4 {
				t.Errorf("input slice modified")
			}
		})
	}

	left, _ := core.RemovePolicy(policies, core.PolicyByID{ID: "p1"})
	if left[0].ID != "p2" {
		t.Errorf("expected p2 to survive id removal, got %+v", left[0])
	}
}

func TestRefForPolicy(t *testing.T) {
	if _, ok := core.RefForPolicy(core.Policy{ID: "x"}).(core.PolicyByID); !ok {
		t.Errorf("policy with id should be referenced by id")
	}
	if _, ok := core.RefForPolicy(core.Policy{UniformID: "u1"}).(core.PolicyByComposite); !ok {
		t.Errorf("legacy policy should be referenced by composite key")
	}
}

func TestUniformMatchesPolicy(t *testing.T) {
	tests := []struct {
		name    string
		uniform core.Uniform
		want    bool
	}{
		{"unrestricted", core.Uniform{}, true},
		{"case-insensitive match", core.Uniform{Level: "junior", Gender: "BOYS"}, true},
		{"wrong level", core.Uniform{Level: core.LevelSenior}, false},
		{"wrong gender", core.Uniform{Gender: core.GenderGirls}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := core.UniformMatchesPolicy(tt.uniform, core.LevelJunior, core.GenderBoys); got != tt.want {
				t.Errorf("UniformMatchesPolicy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidatePolicy(t *testing.T) {
	valid := core.Policy{UniformID: "u1", Level: core.LevelJunior, Gender: core.GenderBoys, QuantityPerStudent: 1}
	if err := core.ValidatePolicy(valid); err != nil {
		t.Fatalf("valid policy rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *core.Policy)
		field  string
	}{
		{"missing uniform", func(p *core.Policy) { p.UniformID = " " }, "uniformId"},
		{"bad level", func(p *core.Policy) { p.Level = "Middle" }, "level"},
		{"bad gender", func(p *core.Policy) { p.Gender = "boys" }, "gender"},
		{"zero quantity", func(p *core.Policy) { p.QuantityPerStudent = 0 }, "quantityPerStudent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := core.ValidatePolicy(p)
			var ve *core.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
}
