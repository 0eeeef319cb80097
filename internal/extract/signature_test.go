package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureBlock_Delimiter(t *testing.T) {
	body := "Hi,\n\nPitch text here.\n\nBest,\nJane Doe\nSenior Manager, Acme PR\n555-123-4567"
	block := SignatureBlock(body)
	assert.True(t, strings.HasPrefix(block, "Best,"))
	assert.Contains(t, block, "Jane Doe")
	assert.Contains(t, block, "555-123-4567")
}

func TestSignatureBlock_LastDelimiterWins(t *testing.T) {
	// A quoted earlier reply carries its own sign-off; the trailing one is
	// the real signature.
	body := strings.Join([]string{
		"Regards,",
		"Old Sender",
		"",
		"New reply text.",
		"",
		"Regards,",
		"Jane Doe",
		"Acme PR",
	}, "\n")
	block := SignatureBlock(body)
	assert.Contains(t, block, "Jane Doe")
	assert.NotContains(t, block, "Old Sender")
}

func TestSignatureBlock_DashDelimiter(t *testing.T) {
	body := "Text.\n\n--\nJane Doe\nAcme PR"
	block := SignatureBlock(body)
	assert.Contains(t, block, "Jane Doe")
	assert.NotContains(t, block, "Text.")
}

func TestSignatureBlock_NoDelimiter(t *testing.T) {
	// Without a delimiter a phone number in the tail marks the signature.
	body := "A long pitch paragraph.\n\nJane Doe\nPR Manager\n+971 50 123 4567"
	block := SignatureBlock(body)
	assert.Contains(t, block, "Jane Doe")
}

func TestSignatureBlock_QuotedLinesIgnoredInFallback(t *testing.T) {
	body := "line one\n> quoted reply\n> more quoted\nclosing line"
	block := SignatureBlock(body)
	assert.NotContains(t, block, "> quoted reply")
}

func TestParseSignature_EndToEnd(t *testing.T) {
	block := "Best,\nJane Doe\nSenior Manager, Acme PR\n555-123-4567"
	res := ParseSignature(block, "jane@agency.com")

	assert.Equal(t, "Jane Doe", res.Name)
	assert.Equal(t, "Senior Manager", res.Title)
	assert.Equal(t, "Acme PR", res.Company)
	assert.Equal(t, "555-123-4567", res.Phone)
}

func TestParseSignature_PipeSeparator(t *testing.T) {
	res := ParseSignature("Jane Doe | Acme Communications", "jane@acme.com")
	assert.Equal(t, "Jane Doe", res.Name)
	assert.Equal(t, "Acme Communications", res.Company)
}

func TestParseSignature_TitleOnlyLine(t *testing.T) {
	res := ParseSignature("Jane Doe\nDirector of Media Relations\nSomewhere", "jane@x.com")
	assert.Equal(t, "Jane Doe", res.Name)
	assert.Equal(t, "Director of Media Relations", res.Title)
}

func TestParseSignature_AgencyLine(t *testing.T) {
	res := ParseSignature("Jane Doe\nBrilliant Agency FZ LLC", "jane@x.com")
	assert.Equal(t, "Jane Doe", res.Name)
	assert.Equal(t, "Brilliant Agency FZ LLC", res.Company)
}

func TestParseSignature_AltEmails(t *testing.T) {
	block := strings.Join([]string{
		"Jane Doe",
		"jane.doe@gmail.com",
		"info@acme.com",
		"noreply@acme.com",
		"jane@acme.com",
	}, "\n")
	res := ParseSignature(block, "jane@acme.com")

	// Role accounts and the primary are filtered out.
	assert.Equal(t, []string{"jane.doe@gmail.com"}, res.AltEmails)
}

func TestParseSignature_Empty(t *testing.T) {
	res := ParseSignature("", "jane@x.com")
	assert.True(t, res.IsEmpty())

	res = ParseSignature("   \n \n", "jane@x.com")
	assert.True(t, res.IsEmpty())
}

func TestParseSignature_NoRecognizableLines(t *testing.T) {
	// Garbage input must produce an empty result, not a crash.
	res := ParseSignature("0x44 9921 aaaa\n####\n!!", "jane@x.com")
	assert.Empty(t, res.Name)
	assert.Empty(t, res.Company)
	assert.Empty(t, res.Title)
}

func TestLooksLikePersonName(t *testing.T) {
	assert.True(t, looksLikePersonName("Jane Doe"))
	assert.True(t, looksLikePersonName("Jane Q. Doe"))
	assert.False(t, looksLikePersonName("jane doe"))
	assert.False(t, looksLikePersonName("Jane"))
	assert.False(t, looksLikePersonName("Jane Doe 42"))
	assert.False(t, looksLikePersonName("One Two Three Four Five"))
}
