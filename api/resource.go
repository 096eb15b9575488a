package api

import (
	"strings"
	"time"

	"todoweb/domain"
	"todoweb/guard"
)

const dateFormat = "2006-01-02"

const (
	todoURIPrefix = "/api/v1/todo/"
	userURIPrefix = "/api/v1/user/"
)

// itemResource is the wire representation of an item. The owning user is
// referenced by resource URI, never embedded.
type itemResource struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Notes       string  `json:"notes"`
	Created     string  `json:"created"`
	Priority    int     `json:"priority"`
	Due         *string `json:"due"`
	Done        bool    `json:"done"`
	User        string  `json:"user"`
	ResourceURI string  `json:"resource_uri"`
}

func itemToResource(item domain.Item) itemResource {
	res := itemResource{
		ID:          item.ID,
		Name:        item.Name,
		Notes:       item.Notes,
		Created:     item.Created.Format(dateFormat),
		Priority:    int(item.Priority),
		Done:        item.Done,
		User:        userURIPrefix + item.OwnerID + "/",
		ResourceURI: todoURIPrefix + item.ID + "/",
	}
	if item.Due != nil {
		due := item.Due.Format(dateFormat)
		res.Due = &due
	}
	return res
}

type userResource struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	ResourceURI string `json:"resource_uri"`
}

func userToResource(user domain.User) userResource {
	return userResource{
		ID:          user.ID,
		Username:    user.Username,
		ResourceURI: userURIPrefix + user.ID + "/",
	}
}

// itemPayload is an incoming create/update body. Identity and server-side
// fields are accepted so clients can round-trip a fetched resource, but only
// the claims relevant to the ownership rules are forwarded.
type itemPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Notes       string  `json:"notes"`
	Created     string  `json:"created"`
	Priority    *int    `json:"priority"`
	Due         *string `json:"due"`
	Done        bool    `json:"done"`
	User        string  `json:"user"`
	ResourceURI string  `json:"resource_uri"`
}

func (p itemPayload) toSubmission() (guard.Submission, error) {
	sub := guard.Submission{
		ItemFields: domain.ItemFields{
			Name:     p.Name,
			Notes:    p.Notes,
			Priority: domain.DefaultPriority,
			Done:     p.Done,
		},
	}
	if p.Priority != nil {
		sub.Priority = domain.Priority(*p.Priority)
	}
	if p.Due != nil && *p.Due != "" {
		due, err := time.Parse(dateFormat, *p.Due)
		if err != nil {
			return guard.Submission{}, domain.NewValidationError("due", "invalid date, expected YYYY-MM-DD")
		}
		sub.Due = &due
	}
	if p.Created != "" {
		created, err := time.Parse(dateFormat, p.Created)
		if err != nil {
			return guard.Submission{}, domain.NewValidationError("created", "invalid date, expected YYYY-MM-DD")
		}
		sub.ClaimedCreated = &created
	}
	if p.User != "" {
		sub.ClaimedOwnerID = userIDFromReference(p.User)
	}
	return sub, nil
}

// userIDFromReference accepts either a bare user id or a user resource URI.
func userIDFromReference(ref string) string {
	trimmed := strings.TrimSuffix(ref, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
