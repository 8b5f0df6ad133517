package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuedTokenCarriesUserID(t *testing.T) {
	ja := New("secret")

	token, err := IssueToken(ja, 42, time.Hour)
	require.NoError(t, err)

	var got int64
	h := jwtauth.Verifier(ja)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, err = UserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

func TestUserIDFromClaims(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    int64
		wantErr bool
	}{
		{"float", float64(7), 7, false},
		{"json number", json.Number("8"), 8, false},
		{"string", "9", 9, false},
		{"missing", nil, 0, true},
		{"zero", float64(0), 0, true},
		{"garbage", "abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := userIDFromClaims(map[string]interface{}{UserIDClaim: tt.value})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoUser)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}
