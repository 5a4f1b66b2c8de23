package model

// Status is the lifecycle state of a procedure. The set is closed and
// ordered; transition legality is decided by position in statusOrder.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusInReview Status = "InReview"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
	StatusArchived Status = "Archived"
)

// statusOrder fixes the workflow sequence. A transition may move forward or
// stay in place, never backward. Skipping states is allowed.
var statusOrder = map[Status]int{
	StatusPending:  0,
	StatusInReview: 1,
	StatusApproved: 2,
	StatusRejected: 3,
	StatusArchived: 4,
}

// Valid reports whether s is one of the five recognized states.
func (s Status) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// Order returns the position of s in the workflow sequence, or -1 for an
// unrecognized state.
func (s Status) Order() int {
	idx, ok := statusOrder[s]
	if !ok {
		return -1
	}
	return idx
}

// AllStatuses lists the recognized states in workflow order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusInReview, StatusApproved, StatusRejected, StatusArchived}
}
