package model

import (
	"errors"
	"testing"
	"time"
)

func newDraft(now time.Time) *Lecture {
	return NewLecture(CreateLectureRequest{
		Title:    "Java Basics",
		Price:    50000,
		Category: CategoryMath,
	}, Teacher{ID: 7, Name: "Choo"}, now)
}

func TestNewLecture_StartsAsDraft(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l := newDraft(now)

	if l.Status() != StatusDraft {
		t.Fatalf("expected draft, got %v", l.Status())
	}
	if !l.IsPrivate || l.Deleted {
		t.Fatalf("unexpected flags: private=%v deleted=%v", l.IsPrivate, l.Deleted)
	}
	if l.TeacherID != 7 || l.TeacherName != "Choo" {
		t.Fatalf("teacher not bound: %+v", l)
	}
	if !l.CreatedAt.Equal(now) || !l.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not stamped with now: %+v", l)
	}
}

func TestLecture_PublishIsIdempotent(t *testing.T) {
	l := newDraft(time.Now())

	changed, err := l.Publish()
	if err != nil || !changed {
		t.Fatalf("first publish: changed=%v err=%v", changed, err)
	}
	if l.Status() != StatusPublished {
		t.Fatalf("expected published, got %v", l.Status())
	}

	changed, err = l.Publish()
	if err != nil || changed {
		t.Fatalf("second publish: changed=%v err=%v", changed, err)
	}
	if l.Status() != StatusPublished {
		t.Fatalf("expected published, got %v", l.Status())
	}
}

func TestLecture_DeletedIsTerminal(t *testing.T) {
	l := newDraft(time.Now())
	if _, err := l.Publish(); err != nil {
		t.Fatal(err)
	}
	if !l.Retire() {
		t.Fatal("expected retire to change state")
	}
	if l.Status() != StatusDeleted {
		t.Fatalf("expected deleted, got %v", l.Status())
	}
	if l.Retire() {
		t.Fatal("second retire should be a no-op")
	}
	if _, err := l.Publish(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("publish after delete: expected ErrNotFound, got %v", err)
	}
	if err := l.Revise(UpdateLectureRequest{Title: "x"}, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revise after delete: expected ErrNotFound, got %v", err)
	}
}

func TestLecture_ReviseKeepsVisibilityAndMonotonicUpdate(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l := newDraft(created)

	later := created.Add(time.Hour)
	if err := l.Revise(UpdateLectureRequest{Title: "Java Advanced", Introduction: "intro", Price: 100}, later); err != nil {
		t.Fatal(err)
	}
	if l.Title != "Java Advanced" || l.Introduction != "intro" || l.Price != 100 {
		t.Fatalf("fields not revised: %+v", l)
	}
	if l.Status() != StatusDraft {
		t.Fatalf("revise changed visibility: %v", l.Status())
	}
	if !l.UpdatedAt.Equal(later) {
		t.Fatalf("expected UpdatedAt %v, got %v", later, l.UpdatedAt)
	}

	if err := l.Revise(UpdateLectureRequest{Title: "t"}, created); err != nil {
		t.Fatal(err)
	}
	if !l.UpdatedAt.Equal(later) {
		t.Fatalf("UpdatedAt moved backwards to %v", l.UpdatedAt)
	}
	if l.Category != CategoryMath || l.TeacherID != 7 {
		t.Fatalf("immutable fields changed: %+v", l)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Fatalf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	if _, err := ParseCategory("math"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for lowercase name, got %v", err)
	}
}
