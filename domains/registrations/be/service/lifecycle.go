package service

// Category partitions registrants into the two applicant kinds. The allowed
// set is mirrored by the registrations_category_check database constraint.
type Category string

const (
	CategoryVisitor Category = "visitor"
	CategoryClient  Category = "client"
)

// Categories returns the closed set of registrant categories.
func Categories() []Category {
	return []Category{CategoryVisitor, CategoryClient}
}

// Valid reports whether the category is one of the enumerated values.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// State is a registration's position in the review workflow. The allowed set
// is mirrored by the registrations_state_check database constraint.
type State string

const (
	StateInitial              State = "initial"
	StateAdminRequestedModify State = "admin_requested_modify"
	StateWaitingForApproval   State = "waiting_for_approval"
	StateApproved             State = "approved"
	StateRejected             State = "rejected"
)

// States returns the closed set of lifecycle states.
func States() []State {
	return []State{
		StateInitial,
		StateAdminRequestedModify,
		StateWaitingForApproval,
		StateApproved,
		StateRejected,
	}
}

// Valid reports whether the state is one of the enumerated values.
func (s State) Valid() bool {
	for _, known := range States() {
		if s == known {
			return true
		}
	}
	return false
}

// AdminAction is a review verb an administrator applies to a registration.
type AdminAction string

const (
	ActionApprove       AdminAction = "approve"
	ActionRequestModify AdminAction = "request_modify"
	ActionReject        AdminAction = "reject"
)

// ParseAdminAction maps a request verb onto the closed action set.
// Unrecognized verbs fail with MalformedActionError.
func ParseAdminAction(raw string) (AdminAction, error) {
	switch AdminAction(raw) {
	case ActionApprove, ActionRequestModify, ActionReject:
		return AdminAction(raw), nil
	default:
		return "", &MalformedActionError{Action: raw}
	}
}

// target is the state an admin action lands the record in.
func (a AdminAction) target() State {
	switch a {
	case ActionApprove:
		return StateApproved
	case ActionRequestModify:
		return StateAdminRequestedModify
	case ActionReject:
		return StateRejected
	default:
		return ""
	}
}

// AdminEditableStates is the set of states admin review actions and comment
// edits are valid from.
func AdminEditableStates() []State {
	return []State{StateInitial, StateWaitingForApproval}
}

// ApplicantEditableStates is the set of states the owning applicant may edit
// and resubmit from.
func ApplicantEditableStates() []State {
	return []State{StateAdminRequestedModify, StateApproved}
}

// AdminEditable reports whether admin actions are allowed from the state.
func AdminEditable(s State) bool {
	return s == StateInitial || s == StateWaitingForApproval
}

// ApplicantEditable reports whether the owning applicant may edit from the state.
func ApplicantEditable(s State) bool {
	return s == StateAdminRequestedModify || s == StateApproved
}

// adminTransition validates an admin action against the current state and
// returns the resulting state.
func adminTransition(current State, action AdminAction) (State, error) {
	if !AdminEditable(current) {
		return "", &InvalidTransitionError{From: current, Action: string(action)}
	}
	return action.target(), nil
}

// applicantResubmit validates an applicant edit against the current state.
// Every successful resubmission lands in waiting_for_approval.
func applicantResubmit(current State) (State, error) {
	if !ApplicantEditable(current) {
		return "", &InvalidTransitionError{From: current, Action: "submit_edits"}
	}
	return StateWaitingForApproval, nil
}

func statesToStrings(states []State) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, string(s))
	}
	return out
}
