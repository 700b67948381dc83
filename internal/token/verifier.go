// Copyright 2026 The Permitd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package token verifies bearer tokens issued by the identity service.
// Issuance is out of scope here; this side only needs the acting identity
// and its claims to guard the admin surface.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Identity is the verified acting principal
type Identity struct {
	UserID   string
	TenantID *string
	Roles    []string
}

// Claims is the expected token payload
type Claims struct {
	TenantID string   `json:"tenant_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC-signed bearer tokens
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a new token verifier. The issuer is enforced when
// non-empty.
func NewVerifier(secret []byte, issuer string) *Verifier {
	return &Verifier{
		secret: secret,
		issuer: issuer,
	}
}

// Verify parses and validates a bearer token, returning the identity it
// asserts
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	identity := &Identity{
		UserID: claims.Subject,
		Roles:  claims.Roles,
	}
	if claims.TenantID != "" {
		tenantID := claims.TenantID
		identity.TenantID = &tenantID
	}

	return identity, nil
}
