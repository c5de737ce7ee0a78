package token

import (
	"testing"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/hertz-contrib/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StaySafe/pkg/errors"
)

func TestParseGuestIDAcceptsBothClaimMapTypes(t *testing.T) {
	// 中间件侧拿到的是 hertz-contrib 的 MapClaims，签发侧用的是 jwtv5 的——
	// 两种都必须能直接传入
	fromMiddleware := jwt.MapClaims{IdentityKey: "12345"}
	gid, err := ParseGuestID(fromMiddleware)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), gid)

	fromIssuer := jwtv5.MapClaims{IdentityKey: "67890"}
	gid, err = ParseGuestID(fromIssuer)
	require.NoError(t, err)
	assert.Equal(t, int64(67890), gid)
}

func TestParseGuestIDNumericClaim(t *testing.T) {
	// JSON 反序列化会把数字 claim 变成 float64
	gid, err := ParseGuestID(map[string]interface{}{IdentityKey: float64(42)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), gid)
}

func TestParseGuestIDRejectsBadClaims(t *testing.T) {
	cases := []struct {
		name   string
		claims map[string]interface{}
	}{
		{"missing key", map[string]interface{}{}},
		{"non-numeric string", map[string]interface{}{IdentityKey: "not-a-number"}},
		{"wrong type", map[string]interface{}{IdentityKey: []string{"1"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseGuestID(tc.claims)
			assert.ErrorIs(t, err, errors.InvalidGuestID)
		})
	}
}
