package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrInvalidToken is returned for a missing or unknown token.
var ErrInvalidToken = errors.New("invalid token")

// TokenValidator checks presented tokens against a fixed set.
type TokenValidator struct {
	digests [][sha256.Size]byte
}

// NewTokenValidator hashes tokens. Empty tokens are rejected.
func NewTokenValidator(tokens []string) (*TokenValidator, error) {
	v := &TokenValidator{digests: make([][sha256.Size]byte, 0, len(tokens))}
	for i, t := range tokens {
		if t == "" {
			return nil, fmt.Errorf("token %d is empty", i)
		}
		v.digests = append(v.digests, sha256.Sum256([]byte(t)))
	}
	return v, nil
}

// Len returns the number of configured tokens.
func (v *TokenValidator) Len() int {
	return len(v.digests)
}

// Validate returns the index of the matching token. Every configured
// digest is compared so timing does not reveal which one matched.
func (v *TokenValidator) Validate(token string) (int, error) {
	if token == "" {
		return -1, ErrInvalidToken
	}
	presented := sha256.Sum256([]byte(token))
	match := -1
	for i := range v.digests {
		if subtle.ConstantTimeCompare(presented[:], v.digests[i][:]) == 1 {
			match = i
		}
	}
	if match < 0 {
		return -1, ErrInvalidToken
	}
	return match, nil
}
