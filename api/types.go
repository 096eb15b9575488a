package api

import (
	"context"
	"time"

	"todoweb/domain"
	"todoweb/guard"
)

// Guard is the owner-scoped item access the handlers run on.
type Guard interface {
	Create(ctx context.Context, requesterID string, sub guard.Submission) (domain.Item, error)
	Get(ctx context.Context, requesterID, id string) (domain.Item, error)
	Update(ctx context.Context, requesterID, id string, sub guard.Submission) (domain.Item, error)
	Delete(ctx context.Context, requesterID, id string) error
	List(ctx context.Context, requesterID string, order domain.Order) ([]domain.Item, error)
}

// Authenticator resolves the Authorization header of an API request.
type Authenticator interface {
	UserFromAuthHeader(ctx context.Context, header string) (domain.User, error)
}

// TokenIssuer mints bearer tokens for authenticated accounts.
type TokenIssuer interface {
	IssueToken(user domain.User) (string, error)
	TokenTTL() time.Duration
}
