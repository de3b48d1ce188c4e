// Package query builds the catalog filter specification and the page window
// used by every store implementation.
//
// A Spec is built once from the recognized search options and handed whole to
// the store. The PostgreSQL store compiles it with Where; the in-memory store
// evaluates it with Matches. Both always restrict to published, non-deleted
// lectures.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/onlinecourse/catalog/internal/model"
)

// Field names a recognized search option.
type Field string

const (
	FieldTitle       Field = "title"
	FieldTeacherName Field = "teacherName"
	FieldCategory    Field = "category"
)

// Match is the comparison applied to a field.
type Match int

const (
	MatchContains Match = iota
	MatchExact
)

// recognized maps each supported option to its comparison.
var recognized = map[Field]Match{
	FieldTitle:       MatchContains,
	FieldTeacherName: MatchContains,
	FieldCategory:    MatchExact,
}

// fieldOrder fixes the order conditions are emitted in.
var fieldOrder = []Field{FieldTitle, FieldTeacherName, FieldCategory}

// Condition is one AND-ed predicate of a Spec.
type Condition struct {
	Field Field
	Match Match
	Value string
}

// Spec is the filter specification for a public catalog listing.
type Spec struct {
	conditions []Condition
}

// Build turns raw search options into a Spec. Empty values are ignored,
// unknown fields and unknown categories are validation errors.
func Build(options map[Field]string) (Spec, error) {
	for f := range options {
		if _, ok := recognized[f]; !ok {
			return Spec{}, fmt.Errorf("%w: unknown filter %q", model.ErrValidation, f)
		}
	}

	var spec Spec
	for _, f := range fieldOrder {
		v := options[f]
		if v == "" {
			continue
		}
		if f == FieldCategory {
			if _, err := model.ParseCategory(v); err != nil {
				return Spec{}, err
			}
		}
		spec.conditions = append(spec.conditions, Condition{Field: f, Match: recognized[f], Value: v})
	}
	return spec, nil
}

// Conditions returns a copy of the user-supplied predicates.
func (s Spec) Conditions() []Condition {
	out := make([]Condition, len(s.conditions))
	copy(out, s.conditions)
	return out
}

// Candidate carries the lecture attributes a Spec is evaluated against.
type Candidate struct {
	Title       string
	TeacherName string
	Category    model.Category
	IsPrivate   bool
	Deleted     bool
}

// Matches reports whether c is visible in the public listing and satisfies
// every condition.
func (s Spec) Matches(c Candidate) bool {
	if c.Deleted || c.IsPrivate {
		return false
	}
	for _, cond := range s.conditions {
		var got string
		switch cond.Field {
		case FieldTitle:
			got = c.Title
		case FieldTeacherName:
			got = c.TeacherName
		case FieldCategory:
			got = string(c.Category)
		}
		if !cond.matches(got) {
			return false
		}
	}
	return true
}

func (c Condition) matches(got string) bool {
	if c.Match == MatchExact {
		return got == c.Value
	}
	return strings.Contains(got, c.Value)
}

// Columns maps spec concepts to SQL column expressions.
type Columns struct {
	Title       string
	TeacherName string
	Category    string
	IsPrivate   string
	Deleted     string
}

// Where compiles the spec into a parameterized SQL predicate whose first
// placeholder is $firstArg. Containment uses strpos so that % and _ in user
// input are matched literally.
func (s Spec) Where(cols Columns, firstArg int) (string, []any) {
	clauses := []string{cols.Deleted + " = FALSE", cols.IsPrivate + " = FALSE"}
	args := make([]any, 0, len(s.conditions))

	for _, cond := range s.conditions {
		var col string
		switch cond.Field {
		case FieldTitle:
			col = cols.Title
		case FieldTeacherName:
			col = cols.TeacherName
		case FieldCategory:
			col = cols.Category
		}
		ph := "$" + strconv.Itoa(firstArg+len(args))
		if cond.Match == MatchExact {
			clauses = append(clauses, col+" = "+ph)
		} else {
			clauses = append(clauses, "strpos("+col+", "+ph+") > 0")
		}
		args = append(args, cond.Value)
	}
	return strings.Join(clauses, " AND "), args
}

// OrderBy is the SQL form of the catalog ordering: newest first, ties in
// insertion order.
func OrderBy(createdAt, id string) string {
	return createdAt + " DESC, " + id + " ASC"
}

// SortEntries orders entries newest first with ties in ascending id order.
func SortEntries(entries []model.CatalogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
