package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPlainPassword(t *testing.T) {
	c := Credentials{Username: "admin", Password: "s3cret"}
	require.NoError(t, c.Validate())

	assert.True(t, c.Check("admin", "s3cret"))
	assert.True(t, c.Check(" admin ", "s3cret"))
	assert.False(t, c.Check("admin", "wrong"))
	assert.False(t, c.Check("root", "s3cret"))
}

func TestCheckHashedPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	c := Credentials{Username: "admin", Password: "ignored", PasswordHash: hash}
	require.NoError(t, c.Validate())

	assert.True(t, c.Check("admin", "s3cret"))
	assert.False(t, c.Check("admin", "ignored"))
}

func TestUnconfiguredNeverMatches(t *testing.T) {
	var c Credentials
	assert.False(t, c.Configured())
	assert.Error(t, c.Validate())
	assert.False(t, c.Check("", ""))

	c = Credentials{Username: "admin"}
	assert.Error(t, c.Validate())
	assert.False(t, c.Check("admin", ""))
}

func TestValidateRejectsMalformedHash(t *testing.T) {
	c := Credentials{Username: "admin", PasswordHash: "not-a-hash"}
	assert.Error(t, c.Validate())
}
