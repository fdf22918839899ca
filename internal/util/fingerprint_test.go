package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashUserAgent(t *testing.T) {
	a := HashUserAgent("Mozilla/5.0")
	b := HashUserAgent("Mozilla/5.0")
	c := HashUserAgent("curl/8.0")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Empty(t, HashUserAgent(""))
}

func TestHashContactNormalizesFirst(t *testing.T) {
	assert.Equal(t, HashContact("Max@Example.COM"), HashContact("  max@example.com  "))
	assert.NotEqual(t, HashContact("a@example.com"), HashContact("b@example.com"))
	assert.Len(t, HashContact("a@example.com"), 64)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", SanitizeInput("  <b>hi</b>  "))
	assert.Equal(t, "", SanitizeInput("   "))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "DL1ABC", NormalizeUsername("  dl1abc "))
}
