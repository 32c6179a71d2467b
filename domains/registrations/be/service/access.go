package service

import (
	"github.com/google/uuid"

	"github.com/sciencegate/registration-portal/platform/go/actor"
)

// guardAdminEdit checks that the caller is an admin and the record is in a
// state where admin actions and comments are allowed.
func guardAdminEdit(who actor.Actor, current State) error {
	if !who.IsAdmin() {
		return &PermissionDeniedError{Message: "admin role required"}
	}
	if !AdminEditable(current) {
		return &PermissionDeniedError{
			Message:  "registration is not open for review in state " + string(current),
			Redirect: redirectFor(current),
		}
	}
	return nil
}

// guardApplicantEdit checks that the caller owns the record and the record is
// in a state where the applicant may change field values.
func guardApplicantEdit(who actor.Actor, accountID uuid.UUID, current State) error {
	if who.IsAdmin() || !who.Owns(accountID) {
		return &PermissionDeniedError{Message: "only the applicant may edit this registration"}
	}
	if !ApplicantEditable(current) {
		return &PermissionDeniedError{
			Message:  "registration is not editable in state " + string(current),
			Redirect: redirectFor(current),
		}
	}
	return nil
}

// guardRead allows admins to read any record and applicants to read their own.
func guardRead(who actor.Actor, accountID uuid.UUID) error {
	if who.IsAdmin() || who.Owns(accountID) {
		return nil
	}
	return &PermissionDeniedError{Message: "not allowed to read this registration"}
}

// redirectFor names the page a browser client should land on after a denied
// edit, so the frontend does not have to re-derive it from the state.
func redirectFor(current State) string {
	switch current {
	case StateRejected:
		return "/registration/rejected"
	case StateApproved:
		return "/registration/approved"
	case StateWaitingForApproval:
		return "/registration/pending"
	default:
		return "/registration"
	}
}
