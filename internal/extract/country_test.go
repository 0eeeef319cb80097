package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCountry_PhoneFirst(t *testing.T) {
	// Phone wins over both signature and TLD.
	country, iso, source := DetectCountry("+971 50 123 4567", "jane@acme.co.uk", "London office")
	assert.Equal(t, "United Arab Emirates", country)
	assert.Equal(t, "AE", iso)
	assert.Equal(t, CountrySourcePhone, source)
}

func TestDetectCountry_LongestPhoneCode(t *testing.T) {
	// +97x codes must not be swallowed by shorter prefixes.
	_, iso, _ := DetectCountry("+974 5512 3456", "", "")
	assert.Equal(t, "QA", iso)

	_, iso, _ = DetectCountry("+1 (415) 555-0100", "", "")
	assert.Equal(t, "US", iso)
}

func TestDetectCountry_DoubleZeroPrefix(t *testing.T) {
	_, iso, source := DetectCountry("00971501234567", "", "")
	assert.Equal(t, "AE", iso)
	assert.Equal(t, CountrySourcePhone, source)
}

func TestDetectCountry_NoPlusNoMatch(t *testing.T) {
	country, _, _ := DetectCountry("555-123-4567", "", "")
	assert.Empty(t, country)
}

func TestDetectCountry_Signature(t *testing.T) {
	country, iso, source := DetectCountry("", "jane@acme.com", "Acme PR\nDubai, UAE")
	assert.Equal(t, "United Arab Emirates", country)
	assert.Equal(t, "AE", iso)
	assert.Equal(t, CountrySourceSignature, source)
}

func TestDetectCountry_TLDFallback(t *testing.T) {
	country, iso, source := DetectCountry("", "jane@acme.co.uk", "")
	assert.Equal(t, "United Kingdom", country)
	assert.Equal(t, "GB", iso)
	assert.Equal(t, CountrySourceTLD, source)
}

func TestDetectCountry_Nothing(t *testing.T) {
	country, iso, source := DetectCountry("", "jane@acme.com", "no location here")
	assert.Empty(t, country)
	assert.Empty(t, iso)
	assert.Empty(t, source)
}
