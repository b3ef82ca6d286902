package core_test

import (
	"testing"

	"uniform-tracker/internal/core"
)

func juniorBoysPolicy() []core.Policy {
	return []core.Policy{{ID: "p1", UniformID: "u1", UniformName: "Shirt", Level: core.LevelJunior, Gender: core.GenderBoys, IsRequired: true, QuantityPerStudent: 2}}
}

func received(uniformID string, qty int, size string) core.LogEntry {
	return core.LogEntry{UniformID: uniformID, QuantityReceived: qty, SizeReceived: core.StringPtr(size)}
}

func sizeRequest(uniformID, size string) core.LogEntry {
	return core.LogEntry{UniformID: uniformID, UniformName: "Blazer", SizeWanted: core.StringPtr(size)}
}

func TestComputeStudentDeficit_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		log         []core.LogEntry
		wantRecv    int
		wantDeficit int
		wantStatus  string
		wantShort   bool
		wantRate    int
	}{
		{"partial", []core.LogEntry{received("u1", 1, "M")}, 1, 1, core.StatusPartial, true, 50},
		{"pending", nil, 0, 2, core.StatusPending, true, 0},
		{"complete over two entries", []core.LogEntry{received("u1", 1, "M"), received("u1", 1, "L")}, 2, 0, core.StatusComplete, false, 100},
		{"over-issued", []core.LogEntry{received("u1", 3, "M")}, 3, 0, core.StatusComplete, false, 150},
		{"other uniform ignored", []core.LogEntry{received("u9", 5, "M")}, 0, 2, core.StatusPending, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := core.Student{ID: "s1", Level: core.LevelJunior, Gender: core.GenderBoys, UniformLog: tt.log}
			d := core.ComputeStudentDeficit(st, juniorBoysPolicy())

			if len(d.Lines) != 1 {
				t.Fatalf("expected 1 policy line, got %d", len(d.Lines))
			}
			if d.Lines[0].Received != tt.wantRecv {
				t.Errorf("received = %d, want %d", d.Lines[0].Received, tt.wantRecv)
			}
			if d.TotalDeficit != tt.wantDeficit || d.Lines[0].Deficit != tt.wantDeficit {
				t.Errorf("deficit = %d/%d, want %d", d.TotalDeficit, d.Lines[0].Deficit, tt.wantDeficit)
			}
			if d.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", d.Status, tt.wantStatus)
			}
			if d.HasDeficit != tt.wantShort {
				t.Errorf("hasDeficit = %v, want %v", d.HasDeficit, tt.wantShort)
			}
			if d.CompletionRate != tt.wantRate {
				t.Errorf("completionRate = %d, want %d", d.CompletionRate, tt.wantRate)
			}
		})
	}
}

func TestComputeStudentDeficit_NoPolicy(t *testing.T) {
	students := []core.Student{
		{ID: "a", Level: core.LevelSenior, Gender: core.GenderBoys},
		{ID: "b", Level: core.LevelJunior, Gender: core.GenderGirls, UniformLog: []core.LogEntry{received("u1", 2, "S")}},
		{ID: "c", Level: "junior", Gender: core.GenderBoys},
	}
	for _, st := range students {
		d := core.ComputeStudentDeficit(st, juniorBoysPolicy())
		if d.Status != core.StatusNoPolicy {
			t.Errorf("student %s: status = %s, want %s", st.ID, d.Status, core.StatusNoPolicy)
		}
		if d.TotalDeficit != 0 || d.HasDeficit {
			t.Errorf("student %s: expected zero deficit, got %d", st.ID, d.TotalDeficit)
		}
	}
}

func TestComputeStudentDeficit_DuplicatePoliciesCountTwice(t *testing.T) {
	policies := append(juniorBoysPolicy(), core.Policy{ID: "p2", UniformID: "u1", Level: core.LevelJunior, Gender: core.GenderBoys, QuantityPerStudent: 1})
	st := core.Student{ID: "s1", Level: core.LevelJunior, Gender: core.GenderBoys, UniformLog: []core.LogEntry{received("u1", 1, "M")}}

	d := core.ComputeStudentDeficit(st, policies)
	if d.TotalRequired != 3 {
		t.Errorf("totalRequired = %d, want 3", d.TotalRequired)
	}
	if d.TotalDeficit != 1 {
		t.Errorf("totalDeficit = %d, want 1 (p1 short by 1, p2 met)", d.TotalDeficit)
	}
}

func TestComputeStudentDeficit_RoundsHalfUp(t *testing.T) {
	policies := []core.Policy{{UniformID: "u1", Level: core.LevelJunior, Gender: core.GenderBoys, QuantityPerStudent: 8}}
	st := core.Student{Level: core.LevelJunior, Gender: core.GenderBoys, UniformLog: []core.LogEntry{received("u1", 1, "M")}}
	// 100 * 1 / 8 = 12.5
	if d := core.ComputeStudentDeficit(st, policies); d.CompletionRate != 13 {
		t.Errorf("completionRate = %d, want 13", d.CompletionRate)
	}
}

func TestComputeSchoolDeficitReport(t *testing.T) {
	policies := append(juniorBoysPolicy(),
		core.Policy{ID: "p2", UniformID: "u2", UniformName: "Blazer", Level: core.LevelJunior, Gender: core.GenderBoys, QuantityPerStudent: 1},
		// duplicate group key: ignored by the school report
		core.Policy{ID: "p3", UniformID: "u1", UniformName: "Shirt", Level: core.LevelJunior, Gender: core.GenderBoys, QuantityPerStudent: 5},
	)
	students := []core.Student{
		{ID: "s1", Name: "Sam", Level: core.LevelJunior, Gender: core.GenderBoys, UniformLog: []core.LogEntry{
			received("u1", 1, "M"), sizeRequest("u2", "L"), sizeRequest("u2", "L"),
		}},
		{ID: "s2", Name: "Tom", Level: core.LevelJunior, Gender: core.GenderBoys, UniformLog: []core.LogEntry{
			received("u1", 2, "M"), received("u2", 1, "S"),
		}},
		{ID: "s3", Name: "Amy", Level: core.LevelJunior, Gender: core.GenderGirls},
	}

	r := core.ComputeSchoolDeficitReport(students, policies)

	if r.TotalStudents != 3 || r.StudentsWithDeficits != 1 {
		t.Fatalf("totals = %d/%d, want 3/1", r.TotalStudents, r.StudentsWithDeficits)
	}
	if len(r.UniformDeficits) != 2 {
		t.Fatalf("expected 2 uniform deficit groups, got %+v", r.UniformDeficits)
	}
	for _, d := range r.UniformDeficits {
		if d.TotalDeficit != 1 || len(d.StudentsAffected) != 1 || d.StudentsAffected[0].ID != "s1" {
			t.Errorf("unexpected group %+v", d)
		}
	}

	if len(r.SizeRequests) != 1 {
		t.Fatalf("expected 1 size request bucket, got %+v", r.SizeRequests)
	}
	b := r.SizeRequests[0]
	if b.UniformID != "u2" || b.Size != "L" {
		t.Errorf("unexpected bucket %+v", b)
	}
	if len(b.Students) != 1 || b.Students[0].ID != "s1" {
		t.Errorf("student must be listed exactly once, got %+v", b.Students)
	}
}

func TestComputeSchoolDeficitReport_SortedByDeficit(t *testing.T) {
	policies := []core.Policy{
		{UniformID: "u1", UniformName: "Tie", Level: core.LevelSenior, Gender: core.GenderGirls, QuantityPerStudent: 1},
		{UniformID: "u2", UniformName: "Skirt", Level: core.LevelSenior, Gender: core.GenderGirls, QuantityPerStudent: 3},
	}
	students := []core.Student{{ID: "s1", Level: core.LevelSenior, Gender: core.GenderGirls}}

	r := core.ComputeSchoolDeficitReport(students, policies)
	if len(r.UniformDeficits) != 2 || r.UniformDeficits[0].UniformID != "u2" {
		t.Fatalf("expected largest deficit first, got %+v", r.UniformDeficits)
	}
}

func TestComputeSchoolDeficitReport_SizeRequestOrder(t *testing.T) {
	want := func(uniformID, name, size string) core.LogEntry {
		return core.LogEntry{UniformID: uniformID, UniformName: name, SizeWanted: core.StringPtr(size)}
	}
	students := []core.Student{
		{ID: "s1", Name: "Sam", UniformLog: []core.LogEntry{
			want("u3", "Tie", "S"), want("u2", "Blazer", "M"), want("u2", "Blazer", "L"),
		}},
		{ID: "s2", Name: "Tom", UniformLog: []core.LogEntry{
			want("u2", "Blazer (navy)", "L"), want("u1", "Apron", "XL"),
		}},
	}

	r := core.ComputeSchoolDeficitReport(students, nil)

	wantOrder := []struct{ uniformID, name, size string }{
		{"u1", "Apron", "XL"},
		{"u2", "Blazer", "L"},
		{"u2", "Blazer", "M"},
		{"u3", "Tie", "S"},
	}
	if len(r.SizeRequests) != len(wantOrder) {
		t.Fatalf("expected %d buckets, got %+v", len(wantOrder), r.SizeRequests)
	}
	for i, w := range wantOrder {
		b := r.SizeRequests[i]
		if b.UniformID != w.uniformID || b.UniformName != w.name || b.Size != w.size {
			t.Errorf("bucket %d = %s/%s/%s, want %s/%s/%s", i, b.UniformID, b.UniformName, b.Size, w.uniformID, w.name, w.size)
		}
	}
	if got := r.SizeRequests[1].Students; len(got) != 2 || got[0].ID != "s1" || got[1].ID != "s2" {
		t.Errorf("students must keep first-seen order, got %+v", got)
	}
}

func TestComputeSchoolDeficitReport_Empty(t *testing.T) {
	r := core.ComputeSchoolDeficitReport(nil, nil)
	if r.UniformDeficits == nil || r.SizeRequests == nil {
		t.Errorf("empty report must carry empty slices, got %+v", r)
	}
}
