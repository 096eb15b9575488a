package domain

import (
	"strings"
	"time"
)

// Priority orders items from most to least urgent. Lower values sort first.
type Priority int

const (
	PriorityUrgent Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// DefaultPriority is assigned when a submission leaves priority unset.
const DefaultPriority = PriorityNormal

func (p Priority) Valid() bool {
	return p >= PriorityUrgent && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "Urgent"
	case PriorityHigh:
		return "High"
	case PriorityNormal:
		return "Normal"
	case PriorityLow:
		return "Low"
	}
	return "Unknown"
}

const (
	maxNameLength  = 100
	maxNotesLength = 500
)

// Item is a single todo entry belonging to exactly one user.
type Item struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Notes    string     `json:"notes"`
	Created  time.Time  `json:"created"`
	Priority Priority   `json:"priority"`
	Due      *time.Time `json:"due"`
	Done     bool       `json:"done"`
	OwnerID  string     `json:"-"`
}

// ItemFields carries the client-editable fields of an item. Identity,
// ownership and creation date are never part of a submission.
type ItemFields struct {
	Name     string
	Notes    string
	Priority Priority
	Due      *time.Time
	Done     bool
}

// Validate checks the submission against a reference date, normally the
// current day. Due dates earlier than that day are rejected.
func (f ItemFields) Validate(today time.Time) error {
	errs := &ValidationError{}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		errs.Add("name", "this field is required")
	} else if len(name) > maxNameLength {
		errs.Add("name", "must be at most 100 characters")
	}
	if len(f.Notes) > maxNotesLength {
		errs.Add("notes", "must be at most 500 characters")
	}
	if !f.Priority.Valid() {
		errs.Add("priority", "unknown priority")
	}
	if f.Due != nil && DateOf(*f.Due).Before(DateOf(today)) {
		errs.Add("due", "the date cannot be in the past")
	}
	if len(errs.Fields) > 0 {
		return errs
	}
	return nil
}

// DateOf strips the time-of-day portion, keeping the location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
