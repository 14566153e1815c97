package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQueryIntentCategoryAndLocality(t *testing.T) {
	intent := ParseQueryIntent("design museums in copenhagen")

	assert.Equal(t, "museum", intent.Category)
	assert.Equal(t, "copenhagen", intent.Locality)
	assert.Equal(t, "design museums", intent.FreeText)
}

func TestParseQueryIntentNoLocality(t *testing.T) {
	intent := ParseQueryIntent("quiet cafes")

	assert.Equal(t, "cafe", intent.Category)
	assert.Empty(t, intent.Locality)
	assert.Equal(t, "quiet cafes", intent.FreeText)
}

func TestParseQueryIntentNoKeyword(t *testing.T) {
	intent := ParseQueryIntent("somewhere to relax in oslo")

	assert.Empty(t, intent.Category)
	assert.Equal(t, "oslo", intent.Locality)
	assert.Equal(t, "somewhere to relax", intent.FreeText)
}

func TestParseQueryIntentEmpty(t *testing.T) {
	intent := ParseQueryIntent("   ")
	assert.True(t, intent.IsEmpty())
}

func TestIntentFingerprintAbsorbsCaseAndWhitespace(t *testing.T) {
	a := ParseQueryIntent("Design Museums in Copenhagen").Fingerprint()
	b := ParseQueryIntent("design   museums in copenhagen").Fingerprint()
	assert.Equal(t, a, b)

	// 지역이 다르면 다른 의도다.
	c := ParseQueryIntent("design museums in oslo").Fingerprint()
	assert.NotEqual(t, a, c)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "design museum danmark", normalizeName("  Design   Museum Danmark "))
	assert.Equal(t, normalizeName("DESIGN MUSEUM"), normalizeName("design museum"))
}
