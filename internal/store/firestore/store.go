// Package firestore implements core.Store on Cloud Firestore.
//
// Collections:
//   - schools:  one doc per school, uniformPolicy embedded as an array
//   - uniforms: one doc per uniform, schoolId field
//   - students: one doc per student, uniformLog embedded as an array
//   - batches:  one doc per delivery, items embedded as an array
//
// Writes that span documents go through RunTransaction.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"uniform-tracker/internal/core"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	colSchools  = "schools"
	colUniforms = "uniforms"
	colStudents = "students"
	colBatches  = "batches"
)

// Store is a Firestore-backed core.Store.
type Store struct {
	Client *firestore.Client
}

var _ core.Store = (*Store)(nil)

// NewClient opens a Firestore client. An empty credentialsFile falls back to
// Application Default Credentials (or FIRESTORE_EMULATOR_HOST when set).
func NewClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var (
		client *firestore.Client
		err    error
	)
	if credentialsFile != "" {
		client, err = firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credentialsFile))
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

// New wraps an open client.
func New(client *firestore.Client) *Store {
	return &Store{Client: client}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ── Documents ────────────────────────────────────────────────────────────────

type policyDoc struct {
	ID                 string `firestore:"id,omitempty"`
	UniformID          string `firestore:"uniformId"`
	UniformName        string `firestore:"uniformName"`
	UniformType        string `firestore:"uniformType"`
	Level              string `firestore:"level"`
	Gender             string `firestore:"gender"`
	IsRequired         bool   `firestore:"isRequired"`
	QuantityPerStudent int    `firestore:"quantityPerStudent"`
}

type schoolDoc struct {
	Name          string      `firestore:"name"`
	Status        string      `firestore:"status"`
	UniformPolicy []policyDoc `firestore:"uniformPolicy"`
	Version       int64       `firestore:"version"`
	CreatedAt     time.Time   `firestore:"createdAt"`
}

type uniformDoc struct {
	SchoolID string `firestore:"schoolId"`
	Name     string `firestore:"name"`
	Type     string `firestore:"type"`
	Level    string `firestore:"level"`
	Gender   string `firestore:"gender"`
}

type logEntryDoc struct {
	ID               string    `firestore:"id"`
	UniformID        string    `firestore:"uniformId"`
	UniformName      string    `firestore:"uniformName"`
	UniformType      string    `firestore:"uniformType"`
	QuantityReceived int       `firestore:"quantityReceived"`
	SizeReceived     *string   `firestore:"sizeReceived"`
	SizeWanted       *string   `firestore:"sizeWanted"`
	LoggedAt         time.Time `firestore:"loggedAt"`
	LoggedBy         string    `firestore:"loggedBy"`
	IdempotencyKey   string    `firestore:"idempotencyKey,omitempty"`
}

type studentDoc struct {
	SchoolID   string        `firestore:"schoolId"`
	Name       string        `firestore:"name"`
	Form       string        `firestore:"form"`
	Level      string        `firestore:"level"`
	Gender     string        `firestore:"gender"`
	UniformLog []logEntryDoc `firestore:"uniformLog"`
	Version    int64         `firestore:"version"`
	CreatedAt  time.Time     `firestore:"createdAt"`
}

type sizeDoc struct {
	Size       string     `firestore:"size"`
	Quantity   int        `firestore:"quantity"`
	DepletedAt *time.Time `firestore:"depletedAt"`
}

// Prices are stored as decimal strings; Firestore has no decimal type.
type itemDoc struct {
	VariantType string    `firestore:"variantType"`
	Color       string    `firestore:"color"`
	Price       string    `firestore:"price"`
	Sizes       []sizeDoc `firestore:"sizes"`
}

type batchDoc struct {
	Name      string    `firestore:"name"`
	Items     []itemDoc `firestore:"items"`
	Version   int64     `firestore:"version"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func schoolFromSnap(snap *firestore.DocumentSnapshot) (*core.School, error) {
	var d schoolDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode school %s: %w", snap.Ref.ID, err)
	}
	sc := &core.School{
		ID:            snap.Ref.ID,
		Name:          d.Name,
		Status:        d.Status,
		UniformPolicy: make([]core.Policy, 0, len(d.UniformPolicy)),
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
	}
	for _, p := range d.UniformPolicy {
		sc.UniformPolicy = append(sc.UniformPolicy, core.Policy(p))
	}
	return sc, nil
}

func policiesToDoc(policies []core.Policy) []policyDoc {
	out := make([]policyDoc, 0, len(policies))
	for _, p := range policies {
		out = append(out, policyDoc(p))
	}
	return out
}

func uniformFromSnap(snap *firestore.DocumentSnapshot) (*core.Uniform, error) {
	var d uniformDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode uniform %s: %w", snap.Ref.ID, err)
	}
	return &core.Uniform{ID: snap.Ref.ID, SchoolID: d.SchoolID, Name: d.Name, Type: d.Type, Level: d.Level, Gender: d.Gender}, nil
}

func studentFromSnap(snap *firestore.DocumentSnapshot) (*core.Student, error) {
	var d studentDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode student %s: %w", snap.Ref.ID, err)
	}
	st := &core.Student{
		ID:         snap.Ref.ID,
		Name:       d.Name,
		Form:       d.Form,
		Level:      d.Level,
		Gender:     d.Gender,
		SchoolID:   d.SchoolID,
		UniformLog: make([]core.LogEntry, 0, len(d.UniformLog)),
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
	}
	for _, e := range d.UniformLog {
		st.UniformLog = append(st.UniformLog, core.LogEntry(e))
	}
	return st, nil
}

func studentToDoc(st *core.Student) studentDoc {
	d := studentDoc{
		SchoolID:   st.SchoolID,
		Name:       st.Name,
		Form:       st.Form,
		Level:      st.Level,
		Gender:     st.Gender,
		UniformLog: make([]logEntryDoc, 0, len(st.UniformLog)),
		Version:    st.Version,
		CreatedAt:  st.CreatedAt,
	}
	for _, e := range st.UniformLog {
		d.UniformLog = append(d.UniformLog, logEntryDoc(e))
	}
	return d
}

func batchFromSnap(snap *firestore.DocumentSnapshot) (*core.Batch, error) {
	var d batchDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode batch %s: %w", snap.Ref.ID, err)
	}
	b := &core.Batch{
		ID:        snap.Ref.ID,
		Name:      d.Name,
		Items:     make([]core.BatchItem, 0, len(d.Items)),
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
	}
	for _, it := range d.Items {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return nil, fmt.Errorf("batch %s: invalid price %q: %w", snap.Ref.ID, it.Price, err)
		}
		item := core.BatchItem{VariantType: it.VariantType, Color: it.Color, Price: price, Sizes: make([]core.SizeStock, 0, len(it.Sizes))}
		for _, sz := range it.Sizes {
			item.Sizes = append(item.Sizes, core.SizeStock(sz))
		}
		b.Items = append(b.Items, item)
	}
	return b, nil
}

func batchToDoc(b *core.Batch) batchDoc {
	d := batchDoc{Name: b.Name, Items: make([]itemDoc, 0, len(b.Items)), Version: b.Version, CreatedAt: b.CreatedAt}
	for _, it := range b.Items {
		item := itemDoc{VariantType: it.VariantType, Color: it.Color, Price: it.Price.String(), Sizes: make([]sizeDoc, 0, len(it.Sizes))}
		for _, sz := range it.Sizes {
			item.Sizes = append(item.Sizes, sizeDoc(sz))
		}
		d.Items = append(d.Items, item)
	}
	return d
}

// collect drains a document iterator through decode.
func collect[T any](iter *firestore.DocumentIterator, decode func(*firestore.DocumentSnapshot) (*T, error)) ([]T, error) {
	defer iter.Stop()
	out := []T{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		v, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
}

// ── Schools ──────────────────────────────────────────────────────────────────

func (s *Store) ListSchools(ctx context.Context) ([]core.School, error) {
	schools, err := collect(s.Client.Collection(colSchools).OrderBy("name", firestore.Asc).Documents(ctx), schoolFromSnap)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	return schools, nil
}

func (s *Store) GetSchool(ctx context.Context, id string) (*core.School, error) {
	snap, err := s.Client.Collection(colSchools).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, core.NotFound("school", id)
		}
		return nil, fmt.Errorf("failed to fetch school %s: %w", id, err)
	}
	return schoolFromSnap(snap)
}

func (s *Store) CreateSchool(ctx context.Context, sc core.School) (*core.School, error) {
	if sc.UniformPolicy == nil {
		sc.UniformPolicy = []core.Policy{}
	}
	sc.Version = 1
	doc := schoolDoc{Name: sc.Name, Status: sc.Status, UniformPolicy: policiesToDoc(sc.UniformPolicy), Version: sc.Version, CreatedAt: sc.CreatedAt}
	if _, err := s.Client.Collection(colSchools).Doc(sc.ID).Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create school: %w", err)
	}
	return &sc, nil
}

func (s *Store) UpdatePolicyList(ctx context.Context, schoolID string, expectedVersion int64, policies []core.Policy) (*core.School, error) {
	if policies == nil {
		policies = []core.Policy{}
	}
	ref := s.Client.Collection(colSchools).Doc(schoolID)
	var out *core.School
	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return core.NotFound("school", schoolID)
			}
			return err
		}
		sc, err := schoolFromSnap(snap)
		if err != nil {
			return err
		}
		if sc.Version != expectedVersion {
			return &core.ConflictError{Entity: "school", ID: schoolID, ExpectedVersion: expectedVersion}
		}
		sc.UniformPolicy = policies
		sc.Version++
		out = sc
		return tx.Set(ref, map[string]any{
			"uniformPolicy": policiesToDoc(policies),
			"version":       sc.Version,
		}, firestore.MergeAll)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ── Uniforms ─────────────────────────────────────────────────────────────────

func (s *Store) ListUniforms(ctx context.Context, schoolID string) ([]core.Uniform, error) {
	uniforms, err := collect(s.Client.Collection(colUniforms).Where("schoolId", "==", schoolID).Documents(ctx), uniformFromSnap)
	if err != nil {
		return nil, fmt.Errorf("failed to list uniforms: %w", err)
	}
	sort.Slice(uniforms, func(i, j int) bool { return uniforms[i].Name < uniforms[j].Name })
	return uniforms, nil
}

func (s *Store) GetUniform(ctx context.Context, id string) (*core.Uniform, error) {
	snap, err := s.Client.Collection(colUniforms).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, core.NotFound("uniform", id)
		}
		return nil, fmt.Errorf("failed to fetch uniform %s: %w", id, err)
	}
	return uniformFromSnap(snap)
}

func (s *Store) CreateUniform(ctx context.Context, u core.Uniform) (*core.Uniform, error) {
	doc := uniformDoc{SchoolID: u.SchoolID, Name: u.Name, Type: u.Type, Level: u.Level, Gender: u.Gender}
	if _, err := s.Client.Collection(colUniforms).Doc(u.ID).Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create uniform: %w", err)
	}
	return &u, nil
}

// ── Students ─────────────────────────────────────────────────────────────────

func (s *Store) ListStudentsBySchool(ctx context.Context, schoolID string) ([]core.Student, error) {
	students, err := collect(s.Client.Collection(colStudents).Where("schoolId", "==", schoolID).Documents(ctx), studentFromSnap)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
	return students, nil
}

func (s *Store) GetStudent(ctx context.Context, id string) (*core.Student, error) {
	snap, err := s.Client.Collection(colStudents).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, core.NotFound("student", id)
		}
		return nil, fmt.Errorf("failed to fetch student %s: %w", id, err)
	}
	return studentFromSnap(snap)
}

func (s *Store) CreateStudent(ctx context.Context, st core.Student) (*core.Student, error) {
	if st.UniformLog == nil {
		st.UniformLog = []core.LogEntry{}
	}
	st.Version = 1
	if _, err := s.Client.Collection(colStudents).Doc(st.ID).Create(ctx, studentToDoc(&st)); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return &st, nil
}

func (s *Store) AppendLogEntry(ctx context.Context, studentID string, e core.LogEntry) (*core.FulfillmentResult, error) {
	return s.RecordFulfillment(ctx, core.FulfillmentWrite{StudentID: studentID, Entry: e, Now: time.Now()})
}

// ── Batches ──────────────────────────────────────────────────────────────────

func (s *Store) ListBatches(ctx context.Context) ([]core.Batch, error) {
	batches, err := collect(s.Client.Collection(colBatches).OrderBy("createdAt", firestore.Asc).Documents(ctx), batchFromSnap)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (*core.Batch, error) {
	snap, err := s.Client.Collection(colBatches).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, core.NotFound("batch", id)
		}
		return nil, fmt.Errorf("failed to fetch batch %s: %w", id, err)
	}
	return batchFromSnap(snap)
}

func (s *Store) CreateBatch(ctx context.Context, b core.Batch) (*core.Batch, error) {
	b.Version = 1
	if _, err := s.Client.Collection(colBatches).Doc(b.ID).Create(ctx, batchToDoc(&b)); err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}
	return &b, nil
}

func (s *Store) DeductBatchStock(ctx context.Context, batchID string, key core.VariantKey, size string, qty int) (*core.SizeStock, error) {
	ref := s.Client.Collection(colBatches).Doc(batchID)
	var out core.SizeStock
	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		b, err := getBatchTx(tx, ref)
		if err != nil {
			return err
		}
		idx, err := b.FindItem(key, size)
		if err != nil {
			return err
		}
		out, err = core.DeductSize(&b.Items[idx], size, qty, time.Now())
		if err != nil {
			return err
		}
		b.Version++
		return tx.Set(ref, batchToDoc(b))
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func getBatchTx(tx *firestore.Transaction, ref *firestore.DocumentRef) (*core.Batch, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if isNotFound(err) {
			return nil, core.NotFound("batch", ref.ID)
		}
		return nil, err
	}
	return batchFromSnap(snap)
}

// ── Fulfillment ──────────────────────────────────────────────────────────────

// RecordFulfillment reads the student and batch docs inside one transaction,
// applies the write, then sets both. Firestore retries the function on contention.
func (s *Store) RecordFulfillment(ctx context.Context, w core.FulfillmentWrite) (*core.FulfillmentResult, error) {
	studentRef := s.Client.Collection(colStudents).Doc(w.StudentID)
	var res *core.FulfillmentResult
	applied := false

	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		applied = false
		snap, err := tx.Get(studentRef)
		if err != nil {
			if isNotFound(err) {
				return core.NotFound("student", w.StudentID)
			}
			return err
		}
		student, err := studentFromSnap(snap)
		if err != nil {
			return err
		}

		var batch *core.Batch
		var batchRef *firestore.DocumentRef
		if w.Deduction != nil {
			batchRef = s.Client.Collection(colBatches).Doc(w.Deduction.BatchID)
			if batch, err = getBatchTx(tx, batchRef); err != nil {
				return err
			}
		}

		res, err = core.ApplyFulfillment(student, batch, w)
		if err != nil {
			return err
		}
		if res.Replayed {
			return nil
		}

		student.Version++
		if err := tx.Set(studentRef, studentToDoc(student)); err != nil {
			return err
		}
		if batch != nil {
			batch.Version++
			if err := tx.Set(batchRef, batchToDoc(batch)); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		if applied && !isDomainError(err) {
			return nil, &core.PartialWriteError{Op: "record fulfillment", IdempotencyKey: w.Entry.IdempotencyKey, Err: err}
		}
		return nil, err
	}
	return res, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrInsufficientStock) ||
		errors.Is(err, core.ErrValidation) ||
		errors.Is(err, core.ErrConflict)
}
