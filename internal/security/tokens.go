package security

import (
	"crypto"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed or invalid.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims holds the JWT claims the lobby reads from an access token.
// Subject is the user id; Username is the display identity the lobby indexes by.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Identity is the authenticated identity extracted from a valid access token.
type Identity struct {
	UserID   string
	Username string
}

// TokenVerifier validates JWT access tokens signed by the identity service
// (RS256 or ES256, public key only).
type TokenVerifier struct {
	publicKey crypto.PublicKey
	issuer    string
	audience  string
}

// NewTokenVerifier returns a TokenVerifier for the given public key.
// issuer and audience are required and checked on every token.
func NewTokenVerifier(publicKey crypto.PublicKey, issuer, audience string) *TokenVerifier {
	return &TokenVerifier{publicKey: publicKey, issuer: issuer, audience: audience}
}

// VerifyAccess parses and validates the access token (signature, exp, iss, aud)
// and returns the identity it carries.
func (v *TokenVerifier) VerifyAccess(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return v.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return v.publicKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Issuer != v.issuer {
		return Identity{}, ErrInvalidToken
	}
	audOK := false
	for _, a := range claims.Audience {
		if a == v.audience {
			audOK = true
			break
		}
	}
	if !audOK {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Username == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Username: claims.Username}, nil
}
