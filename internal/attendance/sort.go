package attendance

import (
	"sort"
	"strings"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

// SortRoster orders students for the roster view: grade order
// (TK, K, 1..5), then first name, then last name, case-insensitive.
// Presentation contract only; no machine invariant depends on it.
func SortRoster(students []model.Student) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if ra, rb := model.GradeRank(a.Grade), model.GradeRank(b.Grade); ra != rb {
			return ra < rb
		}
		if fa, fb := strings.ToLower(a.FirstName), strings.ToLower(b.FirstName); fa != fb {
			return fa < fb
		}
		return strings.ToLower(a.LastName) < strings.ToLower(b.LastName)
	})
}
