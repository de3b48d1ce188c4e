package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onlinecourse/catalog/internal/model"
	"github.com/onlinecourse/catalog/internal/query"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// ListPublished returns one page of public, non-deleted lectures.
func (s *PostgresStore) ListPublished(ctx context.Context, spec query.Spec, page query.Page) ([]model.CatalogEntry, error) {
	sql, args := listPublishedSQL(spec, page)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list lectures: %w", err)
	}
	defer rows.Close()

	entries := make([]model.CatalogEntry, 0, page.Limit())
	for rows.Next() {
		var (
			e        model.CatalogEntry
			category string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.TeacherName, &e.Price, &category, &e.CreatedAt, &e.StudentCount); err != nil {
			return nil, fmt.Errorf("scan lecture: %w", err)
		}
		e.Category = model.Category(category)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetLecture returns a lecture in any state, with teacher name and student count resolved.
func (s *PostgresStore) GetLecture(ctx context.Context, id int64) (*model.Lecture, error) {
	return scanLecture(s.db.QueryRow(ctx, lectureSelect+` WHERE l.id = $1`, id))
}

// ListEnrolledStudents returns every enrollment of a lecture in enrollment order,
// including withdrawn students.
func (s *PostgresStore) ListEnrolledStudents(ctx context.Context, lectureID int64) ([]model.EnrolledStudent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT s.id, s.nickname, s.deleted, e.enrolled_at
		 FROM enrollments e
		 JOIN students s ON s.id = e.student_id
		 WHERE e.lecture_id = $1
		 ORDER BY e.enrolled_at ASC, s.id ASC`,
		lectureID,
	)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []model.EnrolledStudent
	for rows.Next() {
		var es model.EnrolledStudent
		if err := rows.Scan(&es.StudentID, &es.Nickname, &es.StudentDeleted, &es.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, es)
	}
	return out, rows.Err()
}

// FindAdmin looks up an admin by login id.
func (s *PostgresStore) FindAdmin(ctx context.Context, loginID string) (*model.Admin, error) {
	return findAdmin(ctx, s.db, loginID)
}

// FindStudentByEmail looks up a student, withdrawn or not, by email.
func (s *PostgresStore) FindStudentByEmail(ctx context.Context, email string) (*model.Student, error) {
	return findStudent(ctx, s.db, `WHERE email = $1`, email)
}

// CreateAdmin inserts an admin; a reused login id is model.ErrConflict.
func (s *PostgresStore) CreateAdmin(ctx context.Context, a *model.Admin) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO admins (login_id, password_hash) VALUES ($1, $2) RETURNING id`,
		a.LoginID, a.PasswordHash,
	).Scan(&a.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: admin %q already exists", model.ErrConflict, a.LoginID)
	}
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// CreateStudent inserts a student; a reused email is model.ErrConflict.
func (s *PostgresStore) CreateStudent(ctx context.Context, st *model.Student) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO students (nickname, email, password_hash, deleted) VALUES ($1, $2, $3, $4) RETURNING id`,
		st.Nickname, st.Email, st.PasswordHash, st.Deleted,
	).Scan(&st.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email %q already registered", model.ErrConflict, st.Email)
	}
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// CreateTeacher inserts a teacher.
func (s *PostgresStore) CreateTeacher(ctx context.Context, t *model.Teacher) error {
	if err := s.db.QueryRow(ctx,
		`INSERT INTO teachers (name) VALUES ($1) RETURNING id`, t.Name,
	).Scan(&t.ID); err != nil {
		return fmt.Errorf("insert teacher: %w", err)
	}
	return nil
}

// WithinTx runs fn inside a database transaction, committing only when fn succeeds.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&postgresTx{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// postgresTx implements Tx on an open pgx transaction.
type postgresTx struct {
	q pgx.Tx
}

func (t *postgresTx) FindAdmin(ctx context.Context, loginID string) (*model.Admin, error) {
	return findAdmin(ctx, t.q, loginID)
}

func (t *postgresTx) FindStudentByEmail(ctx context.Context, email string) (*model.Student, error) {
	return findStudent(ctx, t.q, `WHERE email = $1`, email)
}

func (t *postgresTx) FindTeacher(ctx context.Context, id int64) (*model.Teacher, error) {
	var tc model.Teacher
	err := t.q.QueryRow(ctx, `SELECT id, name FROM teachers WHERE id = $1`, id).Scan(&tc.ID, &tc.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: teacher %d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	return &tc, nil
}

// LockLecture reads a lecture in any state and holds its row lock until the
// transaction ends, serialising concurrent mutations of the same lecture.
func (t *postgresTx) LockLecture(ctx context.Context, id int64) (*model.Lecture, error) {
	return scanLecture(t.q.QueryRow(ctx, lectureLockSelect+` WHERE l.id = $1 FOR UPDATE OF l`, id))
}

func (t *postgresTx) InsertLecture(ctx context.Context, l *model.Lecture) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO lectures (title, introduction, price, category, teacher_id, is_private, deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		l.Title, l.Introduction, l.Price, string(l.Category), l.TeacherID, l.IsPrivate, l.Deleted, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert lecture: %w", err)
	}
	return nil
}

// UpdateLecture writes the mutable columns. Teacher and category are never rewritten.
func (t *postgresTx) UpdateLecture(ctx context.Context, l *model.Lecture) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE lectures
		 SET title = $1, introduction = $2, price = $3, is_private = $4, deleted = $5, updated_at = $6
		 WHERE id = $7`,
		l.Title, l.Introduction, l.Price, l.IsPrivate, l.Deleted, l.UpdatedAt, l.ID,
	)
	if err != nil {
		return fmt.Errorf("update lecture: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lecture %d", model.ErrNotFound, l.ID)
	}
	return nil
}

func (t *postgresTx) LockStudent(ctx context.Context, id int64) (*model.Student, error) {
	return findStudent(ctx, t.q, `WHERE id = $1 FOR UPDATE`, id)
}

func (t *postgresTx) UpdateStudent(ctx context.Context, st *model.Student) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE students SET nickname = $1, deleted = $2 WHERE id = $3`,
		st.Nickname, st.Deleted, st.ID,
	)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: student %d", model.ErrNotFound, st.ID)
	}
	return nil
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func scanLecture(row pgx.Row) (*model.Lecture, error) {
	var (
		l        model.Lecture
		category string
	)
	err := row.Scan(&l.ID, &l.Title, &l.Introduction, &l.Price, &category, &l.TeacherID, &l.TeacherName,
		&l.IsPrivate, &l.Deleted, &l.CreatedAt, &l.UpdatedAt, &l.StudentCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: lecture", model.ErrNotFound)
		}
		return nil, fmt.Errorf("get lecture: %w", err)
	}
	l.Category = model.Category(category)
	return &l, nil
}

func findAdmin(ctx context.Context, q querier, loginID string) (*model.Admin, error) {
	var a model.Admin
	err := q.QueryRow(ctx,
		`SELECT id, login_id, password_hash FROM admins WHERE login_id = $1`, loginID,
	).Scan(&a.ID, &a.LoginID, &a.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: admin %q", model.ErrNotFound, loginID)
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &a, nil
}

func findStudent(ctx context.Context, q querier, where string, arg any) (*model.Student, error) {
	var st model.Student
	err := q.QueryRow(ctx,
		`SELECT id, nickname, email, password_hash, deleted FROM students `+where, arg,
	).Scan(&st.ID, &st.Nickname, &st.Email, &st.PasswordHash, &st.Deleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: student", model.ErrNotFound)
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &st, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
