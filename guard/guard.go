// Package guard is the single enforcement point for item ownership. Both the
// HTML form flow and the JSON API drive the item store exclusively through a
// Guard, so the isolation rules cannot diverge between entry points.
package guard

import (
	"context"
	"time"

	"todoweb/domain"
)

// ItemStore is the persistence contract the guard scopes. Every operation
// already takes the owning user's id; the guard guarantees that id is always
// the authenticated requester's.
type ItemStore interface {
	CreateItem(ctx context.Context, ownerID string, fields domain.ItemFields) (domain.Item, error)
	GetItem(ctx context.Context, ownerID, id string) (domain.Item, error)
	UpdateItem(ctx context.Context, ownerID, id string, fields domain.ItemFields) (domain.Item, error)
	DeleteItem(ctx context.Context, ownerID, id string) error
	ListItems(ctx context.Context, ownerID string, order domain.Order) ([]domain.Item, error)
}

// Submission is a client-supplied item payload. Beyond the editable fields
// it records any ownership or creation-date claims the payload carried, so
// the guard can reject reassignment instead of silently overriding it.
type Submission struct {
	domain.ItemFields

	// ClaimedOwnerID is the owner the payload named, empty when absent.
	ClaimedOwnerID string
	// ClaimedCreated is the creation date the payload named, nil when absent.
	ClaimedCreated *time.Time
}

// Guard scopes every store operation to the requesting user.
type Guard struct {
	store ItemStore
	now   func() time.Time
}

func New(store ItemStore) *Guard {
	return &Guard{store: store, now: time.Now}
}

// Create validates the submission and persists it owned by the requester.
// A payload naming anyone but the requester as owner is rejected outright.
func (g *Guard) Create(ctx context.Context, requesterID string, sub Submission) (domain.Item, error) {
	if sub.ClaimedOwnerID != "" && sub.ClaimedOwnerID != requesterID {
		return domain.Item{}, &domain.AuthorizationError{Reason: "items can only be created for yourself"}
	}
	if err := sub.ItemFields.Validate(g.now()); err != nil {
		return domain.Item{}, err
	}
	return g.store.CreateItem(ctx, requesterID, sub.ItemFields)
}

// Get loads an item within the requester's scope.
func (g *Guard) Get(ctx context.Context, requesterID, id string) (domain.Item, error) {
	return g.store.GetItem(ctx, requesterID, id)
}

// Update replaces the mutable fields of an item within the requester's
// scope. Ownership and creation date are immutable on every entry point:
// a payload claiming a different owner fails with AuthorizationError, one
// claiming a different creation date fails validation.
func (g *Guard) Update(ctx context.Context, requesterID, id string, sub Submission) (domain.Item, error) {
	existing, err := g.store.GetItem(ctx, requesterID, id)
	if err != nil {
		return domain.Item{}, err
	}
	if sub.ClaimedOwnerID != "" && sub.ClaimedOwnerID != existing.OwnerID {
		return domain.Item{}, &domain.AuthorizationError{Reason: "items cannot be reassigned to another user"}
	}
	if sub.ClaimedCreated != nil && !domain.DateOf(*sub.ClaimedCreated).Equal(domain.DateOf(existing.Created)) {
		return domain.Item{}, domain.NewValidationError("created", "the creation date cannot be changed")
	}
	if err := sub.ItemFields.Validate(g.now()); err != nil {
		return domain.Item{}, err
	}
	return g.store.UpdateItem(ctx, requesterID, id, sub.ItemFields)
}

// Delete removes an item within the requester's scope. Missing and
// foreign-owned ids report domain.ErrNotFound; callers that want idempotent
// semantics swallow it.
func (g *Guard) Delete(ctx context.Context, requesterID, id string) error {
	return g.store.DeleteItem(ctx, requesterID, id)
}

// List returns the requester's items in the given order.
func (g *Guard) List(ctx context.Context, requesterID string, order domain.Order) ([]domain.Item, error) {
	return g.store.ListItems(ctx, requesterID, order)
}
