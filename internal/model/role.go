package model

// Role is a principal's role. The set is closed: three applicant roles that
// may create procedures, and the officer role that reviews them.
type Role string

const (
	RoleStudent        Role = "Student"
	RoleRepresentative Role = "Representative"
	RoleDelegate       Role = "Delegate"
	RoleOfficer        Role = "Officer"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleRepresentative, RoleDelegate, RoleOfficer:
		return true
	}
	return false
}

// IsApplicant reports whether r may submit procedures.
func (r Role) IsApplicant() bool {
	switch r {
	case RoleStudent, RoleRepresentative, RoleDelegate:
		return true
	}
	return false
}

// IsOfficer reports whether r is the privileged reviewer role.
func (r Role) IsOfficer() bool {
	return r == RoleOfficer
}

// Principal is the resolved identity+role pair every operation acts under.
// It arrives from the auth middleware and is trusted as-is.
type Principal struct {
	Identity string `json:"identity"` // user email
	Role     Role   `json:"role"`
}
