package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"todoweb/domain"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// IssueToken mints a bearer token for an already-authenticated account.
func (s *Service) IssueToken(user domain.User) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("token secret not configured")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

// TokenTTL is the lifetime of issued bearer tokens.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

// UserFromToken verifies a bearer token and loads its account.
func (s *Service) UserFromToken(ctx context.Context, token string) (domain.User, error) {
	if len(s.secret) == 0 {
		return domain.User{}, errBadAuthorization
	}
	parsed, err := s.parser.Parse(token, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return domain.User{}, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.User{}, errors.New("invalid claims")
	}
	if !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return domain.User{}, errors.New("token expired")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return domain.User{}, errors.New("missing sub")
	}
	user, err := s.users.UserByID(ctx, sub)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	return user, nil
}

// UserFromAuthHeader resolves the Authorization header of an API request.
// Both Basic credentials and Bearer tokens are accepted.
func (s *Service) UserFromAuthHeader(ctx context.Context, header string) (domain.User, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return domain.User{}, errMissingAuthorization
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found {
		return domain.User{}, errBadAuthorization
	}
	value = strings.TrimSpace(value)
	switch {
	case strings.EqualFold(scheme, "basic"):
		username, password, err := decodeBasic(value)
		if err != nil {
			return domain.User{}, err
		}
		return s.Authenticate(ctx, username, password)
	case strings.EqualFold(scheme, "bearer"):
		return s.UserFromToken(ctx, value)
	}
	return domain.User{}, errBadAuthorization
}

func decodeBasic(value string) (string, string, error) {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", "", errBadAuthorization
	}
	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", "", errBadAuthorization
	}
	return username, password, nil
}
