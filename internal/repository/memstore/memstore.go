// Package memstore is an in-memory repository.Store. It backs local
// development (STORE_DRIVER=memory) and the service tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/onlinecourse/catalog/internal/model"
	"github.com/onlinecourse/catalog/internal/query"
	"github.com/onlinecourse/catalog/internal/repository"
)

type state struct {
	seq         map[string]int64
	lectures    map[int64]model.Lecture
	teachers    map[int64]model.Teacher
	admins      map[string]model.Admin
	students    map[int64]model.Student
	enrollments []model.Enrollment
}

func newState() state {
	return state{
		seq:      map[string]int64{},
		lectures: map[int64]model.Lecture{},
		teachers: map[int64]model.Teacher{},
		admins:   map[string]model.Admin{},
		students: map[int64]model.Student{},
	}
}

func (s state) clone() state {
	c := state{
		seq:         make(map[string]int64, len(s.seq)),
		lectures:    make(map[int64]model.Lecture, len(s.lectures)),
		teachers:    make(map[int64]model.Teacher, len(s.teachers)),
		admins:      make(map[string]model.Admin, len(s.admins)),
		students:    make(map[int64]model.Student, len(s.students)),
		enrollments: append([]model.Enrollment(nil), s.enrollments...),
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.lectures {
		c.lectures[k] = v
	}
	for k, v := range s.teachers {
		c.teachers[k] = v
	}
	for k, v := range s.admins {
		c.admins[k] = v
	}
	for k, v := range s.students {
		c.students[k] = v
	}
	return c
}

func (s state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Store keeps every record in process memory behind a single lock.
// Transactions run against a copy that replaces the live state on success.
type Store struct {
	mu sync.RWMutex
	st state
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: newState()}
}

var _ repository.Store = (*Store)(nil)

// ListPublished returns one page of public, non-deleted lectures.
func (s *Store) ListPublished(_ context.Context, spec query.Spec, page query.Page) ([]model.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visible := lo.Filter(lo.Values(s.st.lectures), func(l model.Lecture, _ int) bool {
		return spec.Matches(query.Candidate{
			Title:       l.Title,
			TeacherName: s.st.teachers[l.TeacherID].Name,
			Category:    l.Category,
			IsPrivate:   l.IsPrivate,
			Deleted:     l.Deleted,
		})
	})
	entries := lo.Map(visible, func(l model.Lecture, _ int) model.CatalogEntry {
		return model.CatalogEntry{
			ID:           l.ID,
			Title:        l.Title,
			TeacherName:  s.st.teachers[l.TeacherID].Name,
			Price:        l.Price,
			Category:     l.Category,
			StudentCount: s.st.studentCount(l.ID),
			CreatedAt:    l.CreatedAt,
		}
	})
	query.SortEntries(entries)
	return query.Slice(entries, page), nil
}

// GetLecture returns a lecture in any state.
func (s *Store) GetLecture(_ context.Context, id int64) (*model.Lecture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.lecture(id, true)
}

// ListEnrolledStudents returns enrollments in ascending enrollment time.
func (s *Store) ListEnrolledStudents(_ context.Context, lectureID int64) ([]model.EnrolledStudent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := lo.FilterMap(s.st.enrollments, func(e model.Enrollment, _ int) (model.EnrolledStudent, bool) {
		st, ok := s.st.students[e.StudentID]
		if e.LectureID != lectureID || !ok {
			return model.EnrolledStudent{}, false
		}
		return model.EnrolledStudent{
			StudentID:      st.ID,
			Nickname:       st.Nickname,
			StudentDeleted: st.Deleted,
			EnrolledAt:     e.EnrolledAt,
		}, true
	})
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].EnrolledAt.Equal(rows[j].EnrolledAt) {
			return rows[i].EnrolledAt.Before(rows[j].EnrolledAt)
		}
		return rows[i].StudentID < rows[j].StudentID
	})
	return rows, nil
}

func (s *Store) FindAdmin(_ context.Context, loginID string) (*model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.admin(loginID)
}

func (s *Store) FindStudentByEmail(_ context.Context, email string) (*model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.studentByEmail(email)
}

func (s *Store) CreateAdmin(_ context.Context, a *model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.admins[a.LoginID]; ok {
		return fmt.Errorf("%w: admin %q already exists", model.ErrConflict, a.LoginID)
	}
	a.ID = s.st.next("admins")
	s.st.admins[a.LoginID] = *a
	return nil
}

func (s *Store) CreateStudent(_ context.Context, st *model.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.st.studentByEmail(st.Email); err == nil {
		return fmt.Errorf("%w: email %q already registered", model.ErrConflict, st.Email)
	}
	st.ID = s.st.next("students")
	s.st.students[st.ID] = *st
	return nil
}

func (s *Store) CreateTeacher(_ context.Context, t *model.Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.st.next("teachers")
	s.st.teachers[t.ID] = *t
	return nil
}

// Enroll records an enrollment. Enrollments are written by an external
// collaborator in production; this exists for seeding and tests.
func (s *Store) Enroll(lectureID, studentID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.lectures[lectureID]; !ok {
		return fmt.Errorf("%w: lecture %d", model.ErrNotFound, lectureID)
	}
	if _, ok := s.st.students[studentID]; !ok {
		return fmt.Errorf("%w: student %d", model.ErrNotFound, studentID)
	}
	s.st.enrollments = append(s.st.enrollments, model.Enrollment{LectureID: lectureID, StudentID: studentID, EnrolledAt: at})
	return nil
}

// WithinTx runs fn against a private copy of the state while holding the
// write lock. The copy replaces the live state only if fn succeeds.
func (s *Store) WithinTx(_ context.Context, fn func(repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.st.clone()
	if err := fn(&tx{st: working}); err != nil {
		return err
	}
	s.st = working
	return nil
}

// ─── State helpers ───────────────────────────────────────────────────────────

func (s state) lecture(id int64, withCount bool) (*model.Lecture, error) {
	l, ok := s.lectures[id]
	if !ok {
		return nil, fmt.Errorf("%w: lecture %d", model.ErrNotFound, id)
	}
	l.TeacherName = s.teachers[l.TeacherID].Name
	if withCount {
		l.StudentCount = s.studentCount(id)
	}
	return &l, nil
}

func (s state) studentCount(lectureID int64) int {
	return lo.CountBy(s.enrollments, func(e model.Enrollment) bool {
		st, ok := s.students[e.StudentID]
		return e.LectureID == lectureID && ok && !st.Deleted
	})
}

func (s state) admin(loginID string) (*model.Admin, error) {
	a, ok := s.admins[loginID]
	if !ok {
		return nil, fmt.Errorf("%w: admin %q", model.ErrNotFound, loginID)
	}
	return &a, nil
}

func (s state) studentByEmail(email string) (*model.Student, error) {
	st, ok := lo.Find(lo.Values(s.students), func(st model.Student) bool { return st.Email == email })
	if !ok {
		return nil, fmt.Errorf("%w: student", model.ErrNotFound)
	}
	return &st, nil
}

// tx implements repository.Tx on a working copy.
type tx struct {
	st state
}

func (t *tx) FindAdmin(_ context.Context, loginID string) (*model.Admin, error) {
	return t.st.admin(loginID)
}

func (t *tx) FindStudentByEmail(_ context.Context, email string) (*model.Student, error) {
	return t.st.studentByEmail(email)
}

func (t *tx) FindTeacher(_ context.Context, id int64) (*model.Teacher, error) {
	tc, ok := t.st.teachers[id]
	if !ok {
		return nil, fmt.Errorf("%w: teacher %d", model.ErrNotFound, id)
	}
	return &tc, nil
}

func (t *tx) LockLecture(_ context.Context, id int64) (*model.Lecture, error) {
	return t.st.lecture(id, false)
}

func (t *tx) InsertLecture(_ context.Context, l *model.Lecture) error {
	l.ID = t.st.next("lectures")
	stored := *l
	stored.TeacherName = ""
	stored.StudentCount = 0
	t.st.lectures[l.ID] = stored
	return nil
}

func (t *tx) UpdateLecture(_ context.Context, l *model.Lecture) error {
	cur, ok := t.st.lectures[l.ID]
	if !ok {
		return fmt.Errorf("%w: lecture %d", model.ErrNotFound, l.ID)
	}
	cur.Title = l.Title
	cur.Introduction = l.Introduction
	cur.Price = l.Price
	cur.IsPrivate = l.IsPrivate
	cur.Deleted = l.Deleted
	cur.UpdatedAt = l.UpdatedAt
	t.st.lectures[l.ID] = cur
	return nil
}

func (t *tx) LockStudent(_ context.Context, id int64) (*model.Student, error) {
	st, ok := t.st.students[id]
	if !ok {
		return nil, fmt.Errorf("%w: student %d", model.ErrNotFound, id)
	}
	return &st, nil
}

func (t *tx) UpdateStudent(_ context.Context, st *model.Student) error {
	cur, ok := t.st.students[st.ID]
	if !ok {
		return fmt.Errorf("%w: student %d", model.ErrNotFound, st.ID)
	}
	cur.Nickname = st.Nickname
	cur.Deleted = st.Deleted
	t.st.students[st.ID] = cur
	return nil
}
