package repository

import (
	"strconv"

	"github.com/onlinecourse/catalog/internal/query"
)

var lectureColumns = query.Columns{
	Title:       "l.title",
	TeacherName: "t.name",
	Category:    "l.category",
	IsPrivate:   "l.is_private",
	Deleted:     "l.deleted",
}

// studentCountExpr counts enrollments whose student has not withdrawn.
const studentCountExpr = `(SELECT COUNT(*) FROM enrollments e
	JOIN students s ON s.id = e.student_id
	WHERE e.lecture_id = l.id AND s.deleted = FALSE)`

const lectureFields = `l.id, l.title, l.introduction, l.price, l.category, l.teacher_id, t.name,
	l.is_private, l.deleted, l.created_at, l.updated_at`

const lectureSelect = `SELECT ` + lectureFields + `, ` + studentCountExpr + `
	FROM lectures l
	JOIN teachers t ON t.id = l.teacher_id`

// lectureLockSelect skips the student count; mutations never report it.
const lectureLockSelect = `SELECT ` + lectureFields + `, 0
	FROM lectures l
	JOIN teachers t ON t.id = l.teacher_id`

// listPublishedSQL renders the catalog listing query for spec and page.
func listPublishedSQL(spec query.Spec, page query.Page) (string, []any) {
	where, args := spec.Where(lectureColumns, 1)
	limitArg := len(args) + 1

	sql := `SELECT l.id, l.title, t.name, l.price, l.category, l.created_at, ` + studentCountExpr + `
	FROM lectures l
	JOIN teachers t ON t.id = l.teacher_id
	WHERE ` + where + `
	ORDER BY ` + query.OrderBy("l.created_at", "l.id") + `
	LIMIT $` + strconv.Itoa(limitArg) + ` OFFSET $` + strconv.Itoa(limitArg+1)

	return sql, append(args, page.Limit(), page.Offset())
}
