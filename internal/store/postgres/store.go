// Package postgres implements core.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"uniform-tracker/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a pgxpool-backed core.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// New constructs a Store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ── Schools ──────────────────────────────────────────────────────────────────

const schoolColumns = `id, name, status, uniform_policy, version, created_at`

func scanSchool(row pgx.Row) (*core.School, error) {
	var sc core.School
	if err := row.Scan(&sc.ID, &sc.Name, &sc.Status, &sc.UniformPolicy, &sc.Version, &sc.CreatedAt); err != nil {
		return nil, err
	}
	if sc.UniformPolicy == nil {
		sc.UniformPolicy = []core.Policy{}
	}
	return &sc, nil
}

func (s *Store) ListSchools(ctx context.Context) ([]core.School, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+schoolColumns+` FROM schools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schools: %w", err)
	}
	defer rows.Close()

	schools := []core.School{}
	for rows.Next() {
		sc, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, *sc)
	}
	return schools, rows.Err()
}

func (s *Store) GetSchool(ctx context.Context, id string) (*core.School, error) {
	sc, err := scanSchool(s.pool.QueryRow(ctx, `SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.NotFound("school", id)
		}
		return nil, fmt.Errorf("failed to fetch school %s: %w", id, err)
	}
	return sc, nil
}

func (s *Store) CreateSchool(ctx context.Context, sc core.School) (*core.School, error) {
	if sc.UniformPolicy == nil {
		sc.UniformPolicy = []core.Policy{}
	}
	out, err := scanSchool(s.pool.QueryRow(ctx, `
		INSERT INTO schools (id, name, status, uniform_policy, version, created_at)
		VALUES ($1, $2, $3, $4, 1, $5)
		RETURNING `+schoolColumns,
		sc.ID, sc.Name, sc.Status, sc.UniformPolicy, sc.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert school: %w", err)
	}
	return out, nil
}

// UpdatePolicyList is a conditional write: it only applies when version still
// equals expectedVersion.
func (s *Store) UpdatePolicyList(ctx context.Context, schoolID string, expectedVersion int64, policies []core.Policy) (*core.School, error) {
	if policies == nil {
		policies = []core.Policy{}
	}
	sc, err := scanSchool(s.pool.QueryRow(ctx, `
		UPDATE schools
		SET uniform_policy = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING `+schoolColumns,
		policies, schoolID, expectedVersion,
	))
	if err == nil {
		return sc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update policies of school %s: %w", schoolID, err)
	}
	if _, err := s.GetSchool(ctx, schoolID); err != nil {
		return nil, err
	}
	return nil, &core.ConflictError{Entity: "school", ID: schoolID, ExpectedVersion: expectedVersion}
}

// ── Uniforms ─────────────────────────────────────────────────────────────────

func (s *Store) ListUniforms(ctx context.Context, schoolID string) ([]core.Uniform, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, school_id, name, type, level, gender
		FROM uniforms
		WHERE school_id = $1
		ORDER BY name
	`, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to query uniforms: %w", err)
	}
	defer rows.Close()

	uniforms := []core.Uniform{}
	for rows.Next() {
		var u core.Uniform
		if err := rows.Scan(&u.ID, &u.SchoolID, &u.Name, &u.Type, &u.Level, &u.Gender); err != nil {
			return nil, fmt.Errorf("failed to scan uniform: %w", err)
		}
		uniforms = append(uniforms, u)
	}
	return uniforms, rows.Err()
}

func (s *Store) GetUniform(ctx context.Context, id string) (*core.Uniform, error) {
	var u core.Uniform
	err := s.pool.QueryRow(ctx, `
		SELECT id, school_id, name, type, level, gender FROM uniforms WHERE id = $1
	`, id).Scan(&u.ID, &u.SchoolID, &u.Name, &u.Type, &u.Level, &u.Gender)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.NotFound("uniform", id)
		}
		return nil, fmt.Errorf("failed to fetch uniform %s: %w", id, err)
	}
	return &u, nil
}

func (s *Store) CreateUniform(ctx context.Context, u core.Uniform) (*core.Uniform, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO uniforms (id, school_id, name, type, level, gender)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.SchoolID, u.Name, u.Type, u.Level, u.Gender)
	if err != nil {
		return nil, fmt.Errorf("failed to insert uniform: %w", err)
	}
	return &u, nil
}

// ── Students ─────────────────────────────────────────────────────────────────

const studentColumns = `id, school_id, name, form, level, gender, version, created_at`

const entryColumns = `id, student_id, uniform_id, uniform_name, uniform_type, quantity_received,
	size_received, size_wanted, logged_at, logged_by, COALESCE(idempotency_key, '')`

func scanStudent(row pgx.Row) (*core.Student, error) {
	var st core.Student
	if err := row.Scan(&st.ID, &st.SchoolID, &st.Name, &st.Form, &st.Level, &st.Gender, &st.Version, &st.CreatedAt); err != nil {
		return nil, err
	}
	st.UniformLog = []core.LogEntry{}
	return &st, nil
}

func scanEntry(rows pgx.Rows) (string, core.LogEntry, error) {
	var studentID string
	var e core.LogEntry
	err := rows.Scan(&e.ID, &studentID, &e.UniformID, &e.UniformName, &e.UniformType, &e.QuantityReceived,
		&e.SizeReceived, &e.SizeWanted, &e.LoggedAt, &e.LoggedBy, &e.IdempotencyKey)
	return studentID, e, err
}

// loadStudent reads a student and its log. With forUpdate the student row stays
// locked until q (a transaction) ends.
func loadStudent(ctx context.Context, q querier, id string, forUpdate bool) (*core.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	st, err := scanStudent(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.NotFound("student", id)
		}
		return nil, fmt.Errorf("failed to fetch student %s: %w", id, err)
	}

	rows, err := q.Query(ctx, `SELECT `+entryColumns+` FROM uniform_log_entries WHERE student_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query uniform log of student %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		_, e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		st.UniformLog = append(st.UniformLog, e)
	}
	return st, rows.Err()
}

func (s *Store) GetStudent(ctx context.Context, id string) (*core.Student, error) {
	return loadStudent(ctx, s.pool, id, false)
}

func (s *Store) ListStudentsBySchool(ctx context.Context, schoolID string) ([]core.Student, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+studentColumns+` FROM students WHERE school_id = $1 ORDER BY name, id`, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	students := []core.Student{}
	index := make(map[string]int)
	var ids []string
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		index[st.ID] = len(students)
		ids = append(ids, st.ID)
		students = append(students, *st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return students, nil
	}

	entries, err := s.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM uniform_log_entries
		WHERE student_id = ANY($1)
		ORDER BY student_id, seq
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query uniform logs: %w", err)
	}
	defer entries.Close()
	for entries.Next() {
		studentID, e, err := scanEntry(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		i := index[studentID]
		students[i].UniformLog = append(students[i].UniformLog, e)
	}
	return students, entries.Err()
}

func (s *Store) CreateStudent(ctx context.Context, st core.Student) (*core.Student, error) {
	out, err := scanStudent(s.pool.QueryRow(ctx, `
		INSERT INTO students (id, school_id, name, form, level, gender, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
		RETURNING `+studentColumns,
		st.ID, st.SchoolID, st.Name, st.Form, st.Level, st.Gender, st.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert student: %w", err)
	}
	return out, nil
}

func (s *Store) AppendLogEntry(ctx context.Context, studentID string, e core.LogEntry) (*core.FulfillmentResult, error) {
	return s.RecordFulfillment(ctx, core.FulfillmentWrite{StudentID: studentID, Entry: e, Now: time.Now()})
}

// ── Batches ──────────────────────────────────────────────────────────────────

const batchColumns = `id, name, items, version, created_at`

func scanBatch(row pgx.Row) (*core.Batch, error) {
	var b core.Batch
	if err := row.Scan(&b.ID, &b.Name, &b.Items, &b.Version, &b.CreatedAt); err != nil {
		return nil, err
	}
	if b.Items == nil {
		b.Items = []core.BatchItem{}
	}
	return &b, nil
}

func loadBatch(ctx context.Context, q querier, id string, forUpdate bool) (*core.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBatch(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.NotFound("batch", id)
		}
		return nil, fmt.Errorf("failed to fetch batch %s: %w", id, err)
	}
	return b, nil
}

func (s *Store) ListBatches(ctx context.Context) ([]core.Batch, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	batches := []core.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

func (s *Store) GetBatch(ctx context.Context, id string) (*core.Batch, error) {
	return loadBatch(ctx, s.pool, id, false)
}

func (s *Store) CreateBatch(ctx context.Context, b core.Batch) (*core.Batch, error) {
	out, err := scanBatch(s.pool.QueryRow(ctx, `
		INSERT INTO batches (id, name, items, version, created_at)
		VALUES ($1, $2, $3, 1, $4)
		RETURNING `+batchColumns,
		b.ID, b.Name, b.Items, b.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}
	return out, nil
}

func (s *Store) DeductBatchStock(ctx context.Context, batchID string, key core.VariantKey, size string, qty int) (*core.SizeStock, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := loadBatch(ctx, tx, batchID, true)
	if err != nil {
		return nil, err
	}
	idx, err := b.FindItem(key, size)
	if err != nil {
		return nil, err
	}
	stock, err := core.DeductSize(&b.Items[idx], size, qty, time.Now())
	if err != nil {
		return nil, err
	}
	if err := saveBatchItems(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stock deduction: %w", err)
	}
	return &stock, nil
}

func saveBatchItems(ctx context.Context, tx pgx.Tx, b *core.Batch) error {
	_, err := tx.Exec(ctx, `
		UPDATE batches SET items = $1, version = version + 1 WHERE id = $2
	`, b.Items, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update batch %s: %w", b.ID, err)
	}
	return nil
}

// ── Fulfillment ──────────────────────────────────────────────────────────────

// RecordFulfillment locks the student row (and the batch row, when stock is
// deducted), applies the write in memory, then persists the log entry, the batch
// items and the version bumps in the same transaction.
func (s *Store) RecordFulfillment(ctx context.Context, w core.FulfillmentWrite) (*core.FulfillmentResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	student, err := loadStudent(ctx, tx, w.StudentID, true)
	if err != nil {
		return nil, err
	}

	var batch *core.Batch
	if w.Deduction != nil {
		batch, err = loadBatch(ctx, tx, w.Deduction.BatchID, true)
		if err != nil {
			return nil, err
		}
	}

	res, err := core.ApplyFulfillment(student, batch, w)
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return res, nil
	}

	e := res.Entry
	var key *string
	if e.IdempotencyKey != "" {
		key = &e.IdempotencyKey
	}
	if res.Replaced {
		_, err = tx.Exec(ctx, `
			UPDATE uniform_log_entries
			SET id = $1, uniform_id = $2, uniform_name = $3, uniform_type = $4, quantity_received = $5,
			    size_received = $6, size_wanted = $7, logged_at = $8, logged_by = $9, idempotency_key = $10
			WHERE id = $11 AND student_id = $12
		`, e.ID, e.UniformID, e.UniformName, e.UniformType, e.QuantityReceived,
			e.SizeReceived, e.SizeWanted, e.LoggedAt, e.LoggedBy, key, w.ReplaceEntryID, w.StudentID)
	} else {
		_, err = tx.Exec(ctx, `
			INSERT INTO uniform_log_entries (id, student_id, uniform_id, uniform_name, uniform_type, quantity_received,
			                                 size_received, size_wanted, logged_at, logged_by, idempotency_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, e.ID, w.StudentID, e.UniformID, e.UniformName, e.UniformType, e.QuantityReceived,
			e.SizeReceived, e.SizeWanted, e.LoggedAt, e.LoggedBy, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write uniform log entry: %w", err)
	}

	if batch != nil {
		if err := saveBatchItems(ctx, tx, batch); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE students SET version = version + 1 WHERE id = $1`, w.StudentID); err != nil {
		return nil, fmt.Errorf("failed to bump student version: %w", err)
	}

	// Past this point the outcome is unknown to us if Commit fails: the server may
	// have applied it. The idempotency key makes a retry safe.
	if err := tx.Commit(ctx); err != nil {
		return nil, &core.PartialWriteError{Op: "record fulfillment", IdempotencyKey: e.IdempotencyKey, Err: err}
	}
	return res, nil
}
