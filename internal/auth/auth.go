// Package auth checks the single set of application credentials.
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Credentials are read from the environment. PasswordHash, when set, is a
// bcrypt hash and takes precedence over Password.
type Credentials struct {
	Username     string `env:"APP_AUTH_USERNAME"`
	Password     string `env:"APP_AUTH_PASSWORD"`
	PasswordHash string `env:"APP_AUTH_PASSWORD_HASH"`
}

func (c Credentials) Configured() bool {
	return c.Username != "" && (c.Password != "" || c.PasswordHash != "")
}

func (c Credentials) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("APP_AUTH_USERNAME is required")
	}
	if c.Password == "" && c.PasswordHash == "" {
		return fmt.Errorf("APP_AUTH_PASSWORD or APP_AUTH_PASSWORD_HASH is required")
	}
	if c.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(c.PasswordHash)); err != nil {
			return fmt.Errorf("APP_AUTH_PASSWORD_HASH is not a bcrypt hash: %w", err)
		}
	}
	return nil
}

// Check reports whether the given pair matches. Unconfigured credentials
// never match.
func (c Credentials) Check(username, password string) bool {
	if !c.Configured() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(c.Username)) == 1
	var passOK bool
	if c.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return userOK && passOK
}

// HashPassword returns a bcrypt hash suitable for APP_AUTH_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
