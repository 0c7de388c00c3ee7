package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// CallbackSecretHeader carries the shared secret the token service presents
// when invoking the transfer callback.
const CallbackSecretHeader = "X-Token-Callback-Secret"

// Auth performs the two capability checks the ledger needs: "is this caller
// the event owner" and "does this callback come from the token service".
type Auth struct {
	ownerAddress   string
	jwtSecret      []byte
	callbackSecret string
}

func New(ownerAddress, jwtSecret, callbackSecret string) *Auth {
	return &Auth{
		ownerAddress:   ownerAddress,
		jwtSecret:      []byte(jwtSecret),
		callbackSecret: callbackSecret,
	}
}

// IsOwner reports whether addr is the configured event owner.
func (a *Auth) IsOwner(addr string) bool {
	return addr != "" && addr == a.ownerAddress
}

// OwnerAddress returns the configured event owner address.
func (a *Auth) OwnerAddress() string {
	return a.ownerAddress
}

// ExtractTokenFromRequest extracts a JWT from an HTTP request's Authorization header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// CallerAddress validates the bearer token and returns the address it was
// issued to (the 'sub' claim).
func (a *Auth) CallerAddress(r *http.Request) (string, error) {
	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		return "", err
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("subject claim not found in token")
	}

	return sub, nil
}

// IsOwnerRequest reports whether the request carries a valid token for the
// event owner.
func (a *Auth) IsOwnerRequest(r *http.Request) bool {
	addr, err := a.CallerAddress(r)
	if err != nil {
		return false
	}
	return a.IsOwner(addr)
}

// FromTokenService reports whether the request presents the shared callback
// secret, i.e. legitimately originates from the configured token contract.
func (a *Auth) FromTokenService(r *http.Request) bool {
	if a.callbackSecret == "" {
		return false
	}
	presented := r.Header.Get(CallbackSecretHeader)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.callbackSecret)) == 1
}

// IssueToken signs a bearer token for addr. Used by tooling and tests; the
// service itself only verifies.
func (a *Auth) IssueToken(addr string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": addr})
	return token.SignedString(a.jwtSecret)
}
