// Package memstore is an in-process core.Store. It backs tests and local runs
// without a database (STORE_BACKEND=memory). Values are deep-copied on the way in
// and out so callers never alias stored state.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"uniform-tracker/internal/core"
)

// Store is a mutex-guarded map-based core.Store.
type Store struct {
	mu       sync.Mutex
	schools  map[string]core.School
	uniforms map[string]core.Uniform
	students map[string]core.Student
	batches  map[string]core.Batch
}

var _ core.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		schools:  make(map[string]core.School),
		uniforms: make(map[string]core.Uniform),
		students: make(map[string]core.Student),
		batches:  make(map[string]core.Batch),
	}
}

// ── Schools ──────────────────────────────────────────────────────────────────

func (s *Store) ListSchools(_ context.Context) ([]core.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.School, 0, len(s.schools))
	for _, sc := range s.schools {
		out = append(out, cloneSchool(sc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetSchool(_ context.Context, id string) (*core.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schools[id]
	if !ok {
		return nil, core.NotFound("school", id)
	}
	out := cloneSchool(sc)
	return &out, nil
}

func (s *Store) CreateSchool(_ context.Context, sc core.School) (*core.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.UniformPolicy == nil {
		sc.UniformPolicy = []core.Policy{}
	}
	sc.Version = 1
	s.schools[sc.ID] = cloneSchool(sc)
	out := cloneSchool(sc)
	return &out, nil
}

func (s *Store) UpdatePolicyList(_ context.Context, schoolID string, expectedVersion int64, policies []core.Policy) (*core.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schools[schoolID]
	if !ok {
		return nil, core.NotFound("school", schoolID)
	}
	if sc.Version != expectedVersion {
		return nil, &core.ConflictError{Entity: "school", ID: schoolID, ExpectedVersion: expectedVersion}
	}
	sc.UniformPolicy = append([]core.Policy{}, policies...)
	sc.Version++
	s.schools[schoolID] = sc
	out := cloneSchool(sc)
	return &out, nil
}

// ── Uniforms ─────────────────────────────────────────────────────────────────

func (s *Store) ListUniforms(_ context.Context, schoolID string) ([]core.Uniform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Uniform{}
	for _, u := range s.uniforms {
		if u.SchoolID == schoolID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetUniform(_ context.Context, id string) (*core.Uniform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uniforms[id]
	if !ok {
		return nil, core.NotFound("uniform", id)
	}
	return &u, nil
}

func (s *Store) CreateUniform(_ context.Context, u core.Uniform) (*core.Uniform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uniforms[u.ID] = u
	return &u, nil
}

// ── Students ─────────────────────────────────────────────────────────────────

func (s *Store) ListStudentsBySchool(_ context.Context, schoolID string) ([]core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Student{}
	for _, st := range s.students {
		if st.SchoolID == schoolID {
			out = append(out, cloneStudent(st))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetStudent(_ context.Context, id string) (*core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return nil, core.NotFound("student", id)
	}
	out := cloneStudent(st)
	return &out, nil
}

func (s *Store) CreateStudent(_ context.Context, st core.Student) (*core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.UniformLog == nil {
		st.UniformLog = []core.LogEntry{}
	}
	st.Version = 1
	s.students[st.ID] = cloneStudent(st)
	out := cloneStudent(st)
	return &out, nil
}

func (s *Store) AppendLogEntry(ctx context.Context, studentID string, e core.LogEntry) (*core.FulfillmentResult, error) {
	return s.RecordFulfillment(ctx, core.FulfillmentWrite{StudentID: studentID, Entry: e, Now: time.Now()})
}

// ── Batches ──────────────────────────────────────────────────────────────────

func (s *Store) ListBatches(_ context.Context) ([]core.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, cloneBatch(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetBatch(_ context.Context, id string) (*core.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, core.NotFound("batch", id)
	}
	out := cloneBatch(b)
	return &out, nil
}

func (s *Store) CreateBatch(_ context.Context, b core.Batch) (*core.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Version = 1
	s.batches[b.ID] = cloneBatch(b)
	out := cloneBatch(b)
	return &out, nil
}

func (s *Store) DeductBatchStock(_ context.Context, batchID string, key core.VariantKey, size string, qty int) (*core.SizeStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.batches[batchID]
	if !ok {
		return nil, core.NotFound("batch", batchID)
	}
	b := cloneBatch(stored)
	idx, err := b.FindItem(key, size)
	if err != nil {
		return nil, err
	}
	stock, err := core.DeductSize(&b.Items[idx], size, qty, time.Now())
	if err != nil {
		return nil, err
	}
	b.Version++
	s.batches[batchID] = b
	return &stock, nil
}

// ── Fulfillment ──────────────────────────────────────────────────────────────

// RecordFulfillment mutates copies under the store mutex and swaps them in only
// when every step succeeded.
func (s *Store) RecordFulfillment(_ context.Context, w core.FulfillmentWrite) (*core.FulfillmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.students[w.StudentID]
	if !ok {
		return nil, core.NotFound("student", w.StudentID)
	}
	student := cloneStudent(stored)

	var batch *core.Batch
	if w.Deduction != nil {
		b, ok := s.batches[w.Deduction.BatchID]
		if !ok {
			return nil, core.NotFound("batch", w.Deduction.BatchID)
		}
		cp := cloneBatch(b)
		batch = &cp
	}

	res, err := core.ApplyFulfillment(&student, batch, w)
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return res, nil
	}

	student.Version++
	s.students[student.ID] = student
	if batch != nil {
		batch.Version++
		s.batches[batch.ID] = *batch
	}
	return res, nil
}

// ── copies ───────────────────────────────────────────────────────────────────

func cloneSchool(sc core.School) core.School {
	out := sc
	if sc.UniformPolicy != nil {
		out.UniformPolicy = append([]core.Policy{}, sc.UniformPolicy...)
	}
	return out
}

func cloneStudent(st core.Student) core.Student {
	out := st
	out.UniformLog = append([]core.LogEntry{}, st.UniformLog...)
	return out
}

func cloneBatch(b core.Batch) core.Batch {
	out := b
	out.Items = make([]core.BatchItem, len(b.Items))
	for i, item := range b.Items {
		out.Items[i] = item
		out.Items[i].Sizes = append([]core.SizeStock{}, item.Sizes...)
	}
	return out
}
