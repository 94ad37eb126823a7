package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Secret123!", true},
		{"short1!", false},
		{"alllowercase1!", false},
		{"ALLUPPERCASE1!", false},
		{"NoDigitsHere!", false},
		{"NoSpecial123", false},
		{strings.Repeat("Aa1!", 33), false},
	}
	for _, c := range cases {
		ok, msg := ValidatePassword(c.password)
		assert.Equal(t, c.ok, ok, c.password)
		if !c.ok {
			assert.NotEmpty(t, msg)
		}
	}
}

func TestValidateUsernameAndName(t *testing.T) {
	ok, _ := ValidateUsername("john.doe_1")
	assert.True(t, ok)
	ok, _ = ValidateUsername("jo")
	assert.False(t, ok)
	ok, _ = ValidateUsername("john doe")
	assert.False(t, ok)

	ok, _ = ValidateName("Ayşe Nur")
	assert.True(t, ok)
	ok, _ = ValidateName("O'Brien-Smith")
	assert.True(t, ok)
	ok, _ = ValidateName("X")
	assert.False(t, ok)
	ok, _ = ValidateName("R2D2")
	assert.False(t, ok)
}

func TestValidateEmailAndURL(t *testing.T) {
	assert.True(t, ValidateEmail("alice@example.com"))
	assert.False(t, ValidateEmail("alice@localhost"))
	assert.False(t, ValidateEmail("not-an-email"))

	assert.True(t, ValidateURL("https://go.dev/doc"))
	assert.False(t, ValidateURL("ftp://example.com"))
	assert.False(t, ValidateURL("/relative/path"))
}

func TestValidatePostTitle(t *testing.T) {
	ok, _ := ValidatePostTitle("  Go  ")
	assert.False(t, ok)
	ok, _ = ValidatePostTitle("Çay")
	assert.True(t, ok)
	ok, _ = ValidatePostTitle(strings.Repeat("a", 201))
	assert.False(t, ok)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeString(" hello\x00 world\r\n\t"))
}
