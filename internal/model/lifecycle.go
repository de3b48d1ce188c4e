package model

import (
	"fmt"
	"time"
)

// Status is the visibility/lifecycle state of a lecture, derived from its
// IsPrivate and Deleted flags.
type Status int

const (
	StatusDraft Status = iota
	StatusPublished
	StatusDeleted
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusPublished:
		return "published"
	case StatusDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// NewLecture returns a lecture in the Draft state stamped with now.
func NewLecture(req CreateLectureRequest, teacher Teacher, now time.Time) *Lecture {
	return &Lecture{
		Title:        req.Title,
		Introduction: req.Introduction,
		Price:        req.Price,
		Category:     req.Category,
		TeacherID:    teacher.ID,
		TeacherName:  teacher.Name,
		IsPrivate:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Status reports the lecture's current state. Deleted wins over visibility.
func (l *Lecture) Status() Status {
	switch {
	case l.Deleted:
		return StatusDeleted
	case l.IsPrivate:
		return StatusDraft
	default:
		return StatusPublished
	}
}

// Publish moves Draft to Published. Publishing a published lecture is a no-op.
// A deleted lecture cannot be published.
func (l *Lecture) Publish() (changed bool, err error) {
	switch l.Status() {
	case StatusDeleted:
		return false, fmt.Errorf("%w: lecture %d", ErrNotFound, l.ID)
	case StatusPublished:
		return false, nil
	}
	l.IsPrivate = false
	return true, nil
}

// Retire soft-deletes the lecture. Retiring a deleted lecture is a no-op.
func (l *Lecture) Retire() (changed bool) {
	if l.Deleted {
		return false
	}
	l.Deleted = true
	return true
}

// Revise replaces the mutable fields. Visibility is untouched and UpdatedAt
// never moves backwards.
func (l *Lecture) Revise(req UpdateLectureRequest, now time.Time) error {
	if l.Deleted {
		return fmt.Errorf("%w: lecture %d", ErrNotFound, l.ID)
	}
	l.Title = req.Title
	l.Introduction = req.Introduction
	l.Price = req.Price
	if now.After(l.UpdatedAt) {
		l.UpdatedAt = now
	}
	return nil
}
