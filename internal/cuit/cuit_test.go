package cuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	// 148 mod 11 = 5, check digit 11-5 = 6
	assert.True(t, Valid("20123456786"))

	// same CUIT with one digit altered must flip the verdict
	assert.False(t, Valid("20123456785"))
	assert.False(t, Valid("21123456786"))
}

func TestValidRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"2012345678",    // 10 digits
		"201234567860",  // 12 digits
		"2012345678a",   // letter in check position
		"2a123456786",   // letter in body
		"20 123456786",  // separator not normalized by caller
	}
	for _, c := range cases {
		assert.False(t, Valid(c), "case %q", c)
	}
}

func TestValidRemainderExceptions(t *testing.T) {
	// weighted sum 22, remainder 0: nominal check 11 maps to 0
	assert.True(t, Valid("20111000000"))
	// weighted sum 12, remainder 1: nominal check 10 maps to 9
	assert.True(t, Valid("20010000009"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "20123456786", Normalize("20-12345678-6"))
	assert.Equal(t, "20123456786", Normalize("20.12345678.6"))
	assert.Equal(t, "20123456786", Normalize(" 20 12345678 6 "))
}
