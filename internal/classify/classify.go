// Package classify splits dataset columns into identifier and subject columns.
package classify

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"

	"github.com/KaramelBytes/scoreloom-cli/internal/dataset"
)

// identifierNames is the fixed deny-list, stored in folded form.
var identifierNames = foldSet("id", "name", "class", "student_id", "studentid", "学号", "姓名", "学生id", "班级")

// displayNames are the columns preferred as a row's display name, in priority order.
var displayNames = []string{"姓名", "name", "student_name"}

var folder = cases.Fold()

// Classification is the result of Classify. Both slices preserve dataset order.
type Classification struct {
	Subjects    []string
	Identifiers []string
}

// Classify returns the subject columns (numeric and not deny-listed) and the
// remaining identifier columns. Zero subjects is a valid result.
func Classify(cols []dataset.Column) Classification {
	out := Classification{Subjects: []string{}, Identifiers: []string{}}
	for _, c := range cols {
		if c.Kind != dataset.KindNumeric || IsIdentifier(c.Name) {
			out.Identifiers = append(out.Identifiers, c.Name)
			continue
		}
		out.Subjects = append(out.Subjects, c.Name)
	}
	return out
}

// IsIdentifier reports whether name is on the identifier deny-list.
func IsIdentifier(name string) bool {
	_, ok := identifierNames[fold(name)]
	return ok
}

// NameColumn picks the column used as a row's display name. When no known
// name column exists it falls back to the second column and reports ok=false.
func NameColumn(cols []dataset.Column) (name string, ok bool) {
	for _, want := range displayNames {
		for _, c := range cols {
			if fold(c.Name) == fold(want) {
				return c.Name, true
			}
		}
	}
	switch len(cols) {
	case 0:
		return "", false
	case 1:
		return cols[0].Name, false
	default:
		return cols[1].Name, false
	}
}

func fold(s string) string {
	return folder.String(width.Fold.String(strings.TrimSpace(s)))
}

func foldSet(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[fold(n)] = struct{}{}
	}
	return m
}
