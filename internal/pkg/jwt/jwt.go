package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes the two token profiles. Access and refresh tokens are
// signed with different secrets and are never interchangeable.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrMalformed    = errors.New("token is malformed")
	ErrBadSignature = errors.New("token signature is invalid")
	ErrExpired      = errors.New("token is expired")
	ErrWrongKind    = errors.New("token kind does not match expected use")
)

// Claims is the payload embedded in every signed token. Refresh tokens carry
// the subject only; access tokens additionally carry denormalized display
// fields in Extra.
type Claims struct {
	UserID int64             `json:"user_id"`
	Kind   Kind              `json:"kind"`
	Extra  map[string]string `json:"extra,omitempty"`
	jwtlib.RegisteredClaims
}

// Profile holds the signing configuration for one token kind.
type Profile struct {
	Secret []byte
	TTL    time.Duration
}

// Codec mints and verifies signed tokens. Construction takes explicit
// profiles; there is no process-wide secret state.
type Codec struct {
	access  Profile
	refresh Profile
}

func NewCodec(access, refresh Profile) *Codec {
	return &Codec{access: access, refresh: refresh}
}

func (c *Codec) profile(kind Kind) Profile {
	if kind == KindRefresh {
		return c.refresh
	}
	return c.access
}

// Mint creates a signed token of the given kind for userID. The jti claim is
// a fresh uuid, so two tokens minted for the same subject in the same second
// are still distinct strings.
func (c *Codec) Mint(kind Kind, userID int64, extra map[string]string) (string, error) {
	p := c.profile(kind)
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		Extra:  extra,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(p.TTL)),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(p.Secret)
}

// Verify parses and validates a token against the secret for kind. The kind
// embedded in the token must match the expected kind even when the signature
// checks out.
func (c *Codec) Verify(kind Kind, tokenStr string) (*Claims, error) {
	p := c.profile(kind)
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return p.Secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwtlib.ErrTokenMalformed):
			return nil, ErrMalformed
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}

	return claims, nil
}
