// Package service implements the catalog's business rules and orchestrates
// the authorization gate, the lifecycle state machine and the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/onlinecourse/catalog/internal/auth"
	"github.com/onlinecourse/catalog/internal/metrics"
	"github.com/onlinecourse/catalog/internal/model"
	"github.com/onlinecourse/catalog/internal/query"
	"github.com/onlinecourse/catalog/internal/repository"
)

// ListParams carries the raw listing request.
type ListParams struct {
	Title       string
	TeacherName string
	Category    string
	Page        int
	Size        int
}

// CatalogService answers lecture list, detail and admin mutation requests.
type CatalogService struct {
	store   repository.Store
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(store repository.Store, log logrus.FieldLogger, m *metrics.Metrics) *CatalogService {
	return &CatalogService{
		store:   store,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *CatalogService) WithClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// List returns one page of published, non-deleted lectures. No identity is required.
func (s *CatalogService) List(ctx context.Context, p ListParams) ([]model.CatalogEntry, error) {
	page, err := query.NewPage(p.Page, p.Size)
	if err != nil {
		return nil, err
	}
	spec, err := query.Build(map[query.Field]string{
		query.FieldTitle:       p.Title,
		query.FieldTeacherName: p.TeacherName,
		query.FieldCategory:    p.Category,
	})
	if err != nil {
		return nil, err
	}
	return s.store.ListPublished(ctx, spec, page)
}

// Detail returns a non-deleted lecture, draft or published, with its
// active students in enrollment order.
func (s *CatalogService) Detail(ctx context.Context, id int64) (*model.LectureDetail, error) {
	l, err := s.store.GetLecture(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status() == model.StatusDeleted {
		return nil, fmt.Errorf("%w: lecture %d", model.ErrNotFound, id)
	}

	enrolled, err := s.store.ListEnrolledStudents(ctx, id)
	if err != nil {
		return nil, err
	}
	students := lo.FilterMap(enrolled, func(e model.EnrolledStudent, _ int) (model.StudentEnrollmentView, bool) {
		return model.StudentEnrollmentView{Nickname: e.Nickname, EnrolledAt: e.EnrolledAt}, !e.StudentDeleted
	})

	return &model.LectureDetail{
		ID:           l.ID,
		Title:        l.Title,
		Introduction: l.Introduction,
		Price:        l.Price,
		Category:     l.Category,
		TeacherName:  l.TeacherName,
		StudentCount: len(students),
		Students:     students,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}, nil
}

// Create stores a new Draft lecture on behalf of an admin.
func (s *CatalogService) Create(ctx context.Context, caller auth.Identity, req model.CreateLectureRequest) (*model.LectureView, error) {
	var view model.LectureView
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := s.requireAdmin(ctx, tx, caller, "create"); err != nil {
			return err
		}
		if err := validateCreate(&req); err != nil {
			return err
		}
		teacher, err := tx.FindTeacher(ctx, req.TeacherID)
		if err != nil {
			return err
		}
		l := model.NewLecture(req, *teacher, s.now().UTC())
		if err := tx.InsertLecture(ctx, l); err != nil {
			return err
		}
		view = l.View()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transition("create", caller, view.ID)
	return &view, nil
}

// Update revises title, introduction and price of a non-deleted lecture.
func (s *CatalogService) Update(ctx context.Context, caller auth.Identity, id int64, req model.UpdateLectureRequest) (*model.LectureView, error) {
	var view model.LectureView
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := s.requireAdmin(ctx, tx, caller, "update"); err != nil {
			return err
		}
		if err := validateUpdate(&req); err != nil {
			return err
		}
		l, err := tx.LockLecture(ctx, id)
		if err != nil {
			return err
		}
		if err := l.Revise(req, s.now().UTC()); err != nil {
			return err
		}
		if err := tx.UpdateLecture(ctx, l); err != nil {
			return err
		}
		view = l.View()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transition("update", caller, id)
	return &view, nil
}

// Delete soft-deletes a lecture. Deleting an already deleted lecture succeeds
// without changing it.
func (s *CatalogService) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	var changed bool
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := s.requireAdmin(ctx, tx, caller, "delete"); err != nil {
			return err
		}
		l, err := tx.LockLecture(ctx, id)
		if err != nil {
			return err
		}
		if changed = l.Retire(); !changed {
			return nil
		}
		l.UpdatedAt = lo.Latest(l.UpdatedAt, s.now().UTC())
		return tx.UpdateLecture(ctx, l)
	})
	if err != nil {
		return err
	}

	if changed {
		s.transition("delete", caller, id)
	} else {
		s.log.WithFields(logrus.Fields{"lecture_id": id, "admin": caller.Subject}).
			Warn("delete requested for a lecture that is already deleted")
	}
	return nil
}

// Publish makes a Draft lecture visible in the public listing.
func (s *CatalogService) Publish(ctx context.Context, caller auth.Identity, id int64) error {
	var changed bool
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := s.requireAdmin(ctx, tx, caller, "publish"); err != nil {
			return err
		}
		l, err := tx.LockLecture(ctx, id)
		if err != nil {
			return err
		}
		if changed, err = l.Publish(); err != nil || !changed {
			return err
		}
		l.UpdatedAt = lo.Latest(l.UpdatedAt, s.now().UTC())
		return tx.UpdateLecture(ctx, l)
	})
	if err != nil {
		return err
	}

	if changed {
		s.transition("publish", caller, id)
	}
	return nil
}

// CreateTeacher registers a teacher. It is an operator task run from the CLI.
func (s *CatalogService) CreateTeacher(ctx context.Context, name string) (*model.Teacher, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: teacher name is required", model.ErrValidation)
	}
	t := &model.Teacher{Name: name}
	if err := s.store.CreateTeacher(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *CatalogService) requireAdmin(ctx context.Context, tx repository.Tx, caller auth.Identity, op string) error {
	_, err := auth.RequireAdmin(ctx, caller, tx)
	if errors.Is(err, model.ErrPermissionDenied) {
		s.metrics.Denied.WithLabelValues(op).Inc()
		s.log.WithFields(logrus.Fields{"operation": op, "caller": caller.Kind.String()}).
			Info("catalog mutation denied")
	}
	return err
}

func (s *CatalogService) transition(kind string, caller auth.Identity, id int64) {
	s.metrics.Transitions.WithLabelValues(kind).Inc()
	s.log.WithFields(logrus.Fields{"lecture_id": id, "admin": caller.Subject, "transition": kind}).
		Info("lecture changed")
}

func validateCreate(req *model.CreateLectureRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return fmt.Errorf("%w: title is required", model.ErrValidation)
	}
	if req.Price < 0 || req.Price > model.MaxPrice {
		return fmt.Errorf("%w: price must be between 0 and %d", model.ErrValidation, model.MaxPrice)
	}
	if _, err := model.ParseCategory(string(req.Category)); err != nil {
		return err
	}
	if req.TeacherID <= 0 {
		return fmt.Errorf("%w: teacherId is required", model.ErrValidation)
	}
	return nil
}

func validateUpdate(req *model.UpdateLectureRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return fmt.Errorf("%w: title is required", model.ErrValidation)
	}
	if req.Price < 0 || req.Price > model.MaxPrice {
		return fmt.Errorf("%w: price must be between 0 and %d", model.ErrValidation, model.MaxPrice)
	}
	return nil
}
