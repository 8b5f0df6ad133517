// Package auth reads the player identity from the JWTs issued by the
// account service.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth"
)

const UserIDClaim = "user_id"

var ErrNoUser = errors.New("token carries no user id")

func New(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token for userID that expires after ttl.
func IssueToken(ja *jwtauth.JWTAuth, userID int64, ttl time.Duration) (string, error) {
	_, token, err := ja.Encode(map[string]interface{}{
		UserIDClaim: userID,
		"exp":       time.Now().Add(ttl).Unix(),
	})
	return token, err
}

// UserID returns the user id claim of the token verified by jwtauth.Verifier.
func UserID(ctx context.Context) (int64, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	return userIDFromClaims(claims)
}

func userIDFromClaims(claims map[string]interface{}) (int64, error) {
	var id int64
	switch v := claims[UserIDClaim].(type) {
	case float64:
		id = int64(v)
	case int64:
		id = v
	case int:
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNoUser, err)
		}
		id = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNoUser, err)
		}
		id = n
	}
	if id <= 0 {
		return 0, ErrNoUser
	}
	return id, nil
}
