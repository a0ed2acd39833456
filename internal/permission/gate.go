// Package permission holds the capability predicates guarding attendance
// and incident actions. Every predicate is pure; enforcement never
// depends on any client-side view toggle.
package permission

import "github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"

// Reason is a machine-readable denial code. Callers turn it into a
// human-readable message; it is returned, never thrown.
type Reason string

const (
	ReasonAllowed          Reason = "allowed"
	ReasonMissingGrant     Reason = "missing_grant"
	ReasonGradeNotAssigned Reason = "grade_not_assigned"
	ReasonNotAdmin         Reason = "not_admin"
)

// Decision is the result of a gate check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true, Reason: ReasonAllowed} }

func deny(r Reason) Decision { return Decision{Reason: r} }

// CanCheckIn reports whether the actor may check the student in. Leads
// always may; otherwise the actor needs the check-in grant and a grade
// assignment covering the student (empty assignment means all grades).
func CanCheckIn(actor model.Staff, st model.Student) Decision {
	if actor.Role == model.RoleLead {
		return allow()
	}
	if !actor.CanCheckIn {
		return deny(ReasonMissingGrant)
	}
	if !actor.CoversGrade(st.Grade) {
		return deny(ReasonGradeNotAssigned)
	}
	return allow()
}

// CanAdminister reports whether the actor may perform administrative
// tasks: Lead role or the explicit admin grant.
func CanAdminister(actor model.Staff) Decision {
	if actor.Role == model.RoleLead || actor.CanAdminTasks {
		return allow()
	}
	return deny(ReasonNotAdmin)
}

// CanCheckOut reports whether the actor may start a guardian checkout.
// Sub-capability gated behind CanAdminister.
func CanCheckOut(actor model.Staff) Decision {
	if actor.Role == model.RoleLead {
		return allow()
	}
	if d := CanAdminister(actor); !d.Allowed {
		return d
	}
	if !actor.CanCheckOut {
		return deny(ReasonMissingGrant)
	}
	return allow()
}

// CanRecordHIR reports whether the actor may record head-injury protocol
// entries. Sub-capability gated behind CanAdminister.
func CanRecordHIR(actor model.Staff) Decision {
	if actor.Role == model.RoleLead {
		return allow()
	}
	if d := CanAdminister(actor); !d.Allowed {
		return d
	}
	if !actor.CanHIR {
		return deny(ReasonMissingGrant)
	}
	return allow()
}
