// Package repository defines the lecture store contract and implements it
// on PostgreSQL using pgx directly (no ORM).
package repository

import (
	"context"

	"github.com/onlinecourse/catalog/internal/model"
	"github.com/onlinecourse/catalog/internal/query"
)

// Store is the persistence contract used by the services.
//
// Lookups return model.ErrNotFound when the record is absent. GetLecture
// returns lectures in any lifecycle state; callers apply visibility rules.
type Store interface {
	ListPublished(ctx context.Context, spec query.Spec, page query.Page) ([]model.CatalogEntry, error)
	GetLecture(ctx context.Context, id int64) (*model.Lecture, error)
	ListEnrolledStudents(ctx context.Context, lectureID int64) ([]model.EnrolledStudent, error)

	FindAdmin(ctx context.Context, loginID string) (*model.Admin, error)
	FindStudentByEmail(ctx context.Context, email string) (*model.Student, error)
	CreateAdmin(ctx context.Context, admin *model.Admin) error
	CreateStudent(ctx context.Context, student *model.Student) error
	CreateTeacher(ctx context.Context, teacher *model.Teacher) error

	// WithinTx runs fn in a single transaction. If fn returns an error nothing
	// it did is kept.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside a transaction. Lock* methods
// hold the row until the transaction ends.
type Tx interface {
	FindAdmin(ctx context.Context, loginID string) (*model.Admin, error)
	FindStudentByEmail(ctx context.Context, email string) (*model.Student, error)
	FindTeacher(ctx context.Context, id int64) (*model.Teacher, error)

	LockLecture(ctx context.Context, id int64) (*model.Lecture, error)
	InsertLecture(ctx context.Context, lecture *model.Lecture) error
	UpdateLecture(ctx context.Context, lecture *model.Lecture) error

	LockStudent(ctx context.Context, id int64) (*model.Student, error)
	UpdateStudent(ctx context.Context, student *model.Student) error
}
