// Package auth provides API key generation, bcrypt password hashing and the
// in-memory credentials that guard command endpoints.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// GenerateAPIKey returns 32 random bytes, base64url encoded.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HashPassword hashes password with bcrypt's default cost. Passwords longer
// than 72 bytes are rejected.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPasswordHash reports whether password matches the bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Credentials holds the API key and the hashed login password.
// The zero value has auth disabled.
type Credentials struct {
	mu           sync.RWMutex
	apiKey       string
	passwordHash string
}

// NewCredentials builds credentials from configuration. When only a password
// is given, a random API key is generated so the password can be traded
// for it at login.
func NewCredentials(apiKey, password string) (*Credentials, error) {
	c := &Credentials{apiKey: apiKey}

	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		c.passwordHash = hash

		if c.apiKey == "" {
			key, err := GenerateAPIKey()
			if err != nil {
				return nil, err
			}
			c.apiKey = key
		}
	}
	return c, nil
}

// Enabled reports whether requests must carry the API key.
func (c *Credentials) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

// ValidKey compares key to the configured API key in constant time.
func (c *Credentials) ValidKey(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.apiKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(c.apiKey)) == 1
}

// Login returns the API key if password matches. Always fails when no
// password is configured.
func (c *Credentials) Login(password string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.passwordHash == "" {
		return "", false
	}
	if !CheckPasswordHash(password, c.passwordHash) {
		return "", false
	}
	return c.apiKey, true
}

// HasPassword reports whether login is possible.
func (c *Credentials) HasPassword() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.passwordHash != ""
}
