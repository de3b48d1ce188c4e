// Package model defines the core domain types for the lecture catalog.
package model

import (
	"fmt"
	"math"
	"time"
)

// MaxPrice is the largest price the lecture store can hold.
const MaxPrice = math.MaxInt32

// Category is the closed set of subjects a lecture can be filed under.
type Category string

const (
	CategoryMath    Category = "Math"
	CategoryScience Category = "Science"
	CategoryEnglish Category = "English"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryMath, CategoryScience, CategoryEnglish}

// ParseCategory returns the category named by s or ErrValidation.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
}

// Lecture is a catalog record owned by the lecture store.
// TeacherName is resolved from TeacherID on read and never persisted.
type Lecture struct {
	ID           int64
	Title        string
	Introduction string
	Price        int
	Category     Category
	TeacherID    int64
	TeacherName  string
	IsPrivate    bool
	Deleted      bool
	StudentCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Teacher is referenced by lectures through TeacherID.
type Teacher struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Admin is an operator allowed to mutate the catalog.
type Admin struct {
	ID           int64
	LoginID      string
	PasswordHash string
}

// Student is a learner account; withdrawn students stay stored with Deleted set.
type Student struct {
	ID           int64
	Nickname     string
	Email        string
	PasswordHash string
	Deleted      bool
}

// Enrollment pairs a student with a lecture. The catalog only reads these.
type Enrollment struct {
	LectureID  int64
	StudentID  int64
	EnrolledAt time.Time
}

// EnrolledStudent is an enrollment joined with its student.
type EnrolledStudent struct {
	StudentID      int64
	Nickname       string
	StudentDeleted bool
	EnrolledAt     time.Time
}

// ─── Views ───────────────────────────────────────────────────────────────────

// CatalogEntry is the summarized lecture returned by list operations.
type CatalogEntry struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	TeacherName  string    `json:"teacherName"`
	Price        int       `json:"price"`
	Category     Category  `json:"category"`
	StudentCount int       `json:"studentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// StudentEnrollmentView is one row of the student list in a lecture detail.
type StudentEnrollmentView struct {
	Nickname   string    `json:"nickname"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// LectureDetail is the full view of a single non-deleted lecture.
type LectureDetail struct {
	ID           int64                   `json:"id"`
	Title        string                  `json:"title"`
	Introduction string                  `json:"introduction"`
	Price        int                     `json:"price"`
	Category     Category                `json:"category"`
	TeacherName  string                  `json:"teacherName"`
	StudentCount int                     `json:"studentCount"`
	Students     []StudentEnrollmentView `json:"students"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

// LectureView is returned by create and update.
type LectureView struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Introduction string    `json:"introduction"`
	Price        int       `json:"price"`
	Category     Category  `json:"category"`
	TeacherName  string    `json:"teacherName"`
	IsPrivate    bool      `json:"isPrivate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// View converts the record into the create/update response shape.
func (l *Lecture) View() LectureView {
	return LectureView{
		ID:           l.ID,
		Title:        l.Title,
		Introduction: l.Introduction,
		Price:        l.Price,
		Category:     l.Category,
		TeacherName:  l.TeacherName,
		IsPrivate:    l.IsPrivate,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// ─── Requests ────────────────────────────────────────────────────────────────

// CreateLectureRequest is the payload for creating a new lecture.
type CreateLectureRequest struct {
	Title        string   `json:"title"`
	Introduction string   `json:"introduction"`
	Price        int      `json:"price"`
	Category     Category `json:"category"`
	TeacherID    int64    `json:"teacherId"`
}

// UpdateLectureRequest is the payload for revising a lecture.
type UpdateLectureRequest struct {
	Title        string `json:"title"`
	Introduction string `json:"introduction"`
	Price        int    `json:"price"`
}

// LoginRequest is shared by the admin and student login endpoints.
type LoginRequest struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

// AccessToken is returned by a successful login.
type AccessToken struct {
	Token string `json:"token"`
}

// SignUpRequest is the payload for student registration.
type SignUpRequest struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpResponse describes a freshly registered student.
type SignUpResponse struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
