// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package auth implements the gateway's single-tenant credential check and
// signed session tokens.
//
// Tokens are a base64url JSON payload joined to an HMAC-SHA256 signature
// with a dot: "<payload>.<signature>". The payload carries the subject and
// issued/expiry timestamps in Unix seconds. There is no key rotation;
// restarting with a new secret invalidates all outstanding tokens.
//
// Thread Safety:
//
//	Authenticator is immutable after construction and safe for
//	concurrent use.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 12 * time.Hour

// ErrNotConfigured is returned when the credential pair or signing secret
// is absent from the configuration.
var ErrNotConfigured = errors.New("auth: username, password, and secret must be configured")

// TokenPayload is the signed claim set inside a session token.
type TokenPayload struct {
	Sub string `json:"sub"`
	Iat int64  `json:"iat"`
	Exp int64  `json:"exp"`
}

// Authenticator validates credentials and issues and verifies tokens.
type Authenticator struct {
	username string
	password string
	secret   []byte
	now      func() time.Time
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithClock replaces the time source. Tests use this to cross the
// expiry boundary deterministically.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// NewAuthenticator builds an Authenticator from the configured
// credential pair and signing secret.
//
// # Inputs
//
//   - username: Configured login name. Compared case-insensitively.
//   - password: Configured password. Compared exactly.
//   - secret: HMAC-SHA256 signing key.
//
// # Outputs
//
//   - *Authenticator: Ready for use.
//   - error: ErrNotConfigured when any input is empty.
func NewAuthenticator(username, password, secret string, opts ...Option) (*Authenticator, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || secret == "" {
		return nil, ErrNotConfigured
	}
	a := &Authenticator{
		username: strings.ToLower(username),
		password: password,
		secret:   []byte(secret),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ValidateCredentials reports whether the supplied pair matches the
// configured one. The username is trimmed and lowercased first.
func (a *Authenticator) ValidateCredentials(username, password string) bool {
	normalized := strings.ToLower(strings.TrimSpace(username))
	return normalized == a.username && password == a.password
}

// IssueToken signs a fresh session token for the given subject.
func (a *Authenticator) IssueToken(username string) string {
	now := a.now().Unix()
	payload := TokenPayload{
		Sub: strings.ToLower(strings.TrimSpace(username)),
		Iat: now,
		Exp: now + int64(TokenTTL.Seconds()),
	}

	raw, _ := json.Marshal(payload)
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + "." + a.sign(encoded)
}

// VerifyToken checks the signature and expiry of a token.
//
// Returns the payload on success and nil for any invalid token: bad
// shape, bad signature, malformed payload, or expiry at or before now.
// Verification never distinguishes the failure mode to the caller.
func (a *Authenticator) VerifyToken(token string) *TokenPayload {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || signature == "" {
		return nil
	}

	expected := a.sign(encoded)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	var payload TokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	if strings.TrimSpace(payload.Sub) == "" {
		return nil
	}
	if payload.Exp <= a.now().Unix() {
		return nil
	}
	return &payload
}

func (a *Authenticator) sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ExtractBearerToken pulls the token out of an Authorization header
// value. The scheme is matched case-insensitively. Returns "" when the
// header is missing or not a bearer credential.
func ExtractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
