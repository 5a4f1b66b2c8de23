// Package policy holds the pure authorization decisions for procedure
// operations. Every denial is a whole-call ErrForbidden; no operation
// silently filters data.
package policy

import (
	"fmt"

	"backend/internal/apperr"
	"backend/internal/model"
)

// CanCreate allows procedure submission for applicant roles only.
func CanCreate(p model.Principal) error {
	if !p.Role.IsApplicant() {
		return fmt.Errorf("%w: only applicants may create procedures", apperr.ErrForbidden)
	}
	return nil
}

// CanListAll reports whether p may list every record instead of only its own.
func CanListAll(p model.Principal) bool {
	return p.Role.IsOfficer()
}

// CanDownload allows document access to the record's creator and to officers.
func CanDownload(p model.Principal, rec *model.Procedure) error {
	if p.Role.IsOfficer() || rec.CreatedBy == p.Identity {
		return nil
	}
	return fmt.Errorf("%w: not your procedure", apperr.ErrForbidden)
}

// CanTransition allows state changes to officers only.
func CanTransition(p model.Principal) error {
	if !p.Role.IsOfficer() {
		return fmt.Errorf("%w: only officers may change procedure state", apperr.ErrForbidden)
	}
	return nil
}

// CanResend allows resubmission only to the record's original creator. The
// rejected-status gate lives in the workflow, which owns lifecycle checks.
func CanResend(p model.Principal, rec *model.Procedure) error {
	if rec.CreatedBy != p.Identity {
		return fmt.Errorf("%w: only the original submitter may resend", apperr.ErrForbidden)
	}
	return nil
}
