package grammar_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"loyscan/internal/grammar"
	"loyscan/pkg/domain"
	"loyscan/pkg/serrors"
)

// fixedClock pins wallet token derivation to 1700000000000 unix millis.
func fixedClock() time.Time { return time.UnixMilli(1700000000000) }

func newTestGrammar(t *testing.T) *grammar.Grammar {
	t.Helper()

	return grammar.New(grammar.Options{DefaultBusinessID: "7", Now: fixedClock})
}

func TestDecode_URLPath(t *testing.T) {
	g := newTestGrammar(t)

	tok, err := g.Decode("https://x.io/scan/tok123/hashABC")
	require.NoError(t, err)
	require.Equal(t, "tok123", tok.CustomerToken)
	require.Equal(t, "hashABC", tok.OfferHash)
	require.Equal(t, domain.FormatURLPath, tok.SourceFormat)
	require.True(t, tok.HasOffer())
}

func TestDecode_URLPath_BadShape(t *testing.T) {
	g := newTestGrammar(t)

	for _, text := range []string{
		"https://x.io/scan/tok123",      // missing hash segment
		"https://x.io/stamp/tok123/h1",  // wrong first segment
		"https://x.io/",                 // no path
		"http://[::1",                   // unparseable
	} {
		_, err := g.Decode(text)
		require.ErrorIs(t, err, serrors.ErrInvalidURLFormat, "input %q", text)
		require.True(t, serrors.IsFormat(err))
	}
}

func TestDecode_WalletJSON_FixedClock(t *testing.T) {
	g := newTestGrammar(t)

	tok, err := g.Decode(`{"customerId":"cust_1","offerId":"off_9","businessId":"22"}`)
	require.NoError(t, err)
	// base64("cust_1:22:1700000000000")
	require.Equal(t, "Y3VzdF8xOjIyOjE3MDAwMDAwMDAwMDA=", tok.CustomerToken)
	// first 8 hex chars of MD5("off_9:22:loyalty-platform")
	require.Equal(t, "c8daa3ae", tok.OfferHash)
	require.Equal(t, domain.FormatWalletJSON, tok.SourceFormat)
}

func TestDecode_WalletJSON_DefaultBusinessID(t *testing.T) {
	g := newTestGrammar(t)

	tok, err := g.Decode(`{"customerId":"cust_1","offerId":"off_9"}`)
	require.NoError(t, err)
	// base64("cust_1:7:1700000000000") using the configured default business
	require.Equal(t, "Y3VzdF8xOjc6MTcwMDAwMDAwMDAwMA==", tok.CustomerToken)
	// first 8 hex chars of MD5("off_9:7:loyalty-platform")
	require.Equal(t, "e14176a4", tok.OfferHash)
}

func TestDecode_WalletJSON_Invalid(t *testing.T) {
	g := newTestGrammar(t)

	for _, text := range []string{
		`{"customerId":"cust_1"}`,  // missing offerId
		`{"offerId":"off_9"}`,      // missing customerId
		`{"customerId": broken`,    // not JSON
	} {
		_, err := g.Decode(text)
		require.ErrorIs(t, err, serrors.ErrInvalidWalletJSON, "input %q", text)
	}
}

func TestDecode_LegacyToken(t *testing.T) {
	g := newTestGrammar(t)
	text := strings.Repeat("YWJj", 25) // 100 base64 chars, no colon

	tok, err := g.Decode(text)
	require.NoError(t, err)
	require.Equal(t, text, tok.CustomerToken)
	require.Empty(t, tok.OfferHash, "legacy tokens carry no offer, backend auto-selects")
	require.Equal(t, domain.FormatLegacyToken, tok.SourceFormat)
	require.False(t, tok.HasOffer())
}

func TestDecode_LegacyToken_LengthBounds(t *testing.T) {
	g := newTestGrammar(t)

	// 79 chars is below the legacy floor and has no other shape, so it is
	// unsupported rather than misclassified.
	_, err := g.Decode(strings.Repeat("A", 79))
	require.ErrorIs(t, err, serrors.ErrUnsupportedFormat)

	tok, err := g.Decode(strings.Repeat("A", 80))
	require.NoError(t, err)
	require.Equal(t, domain.FormatLegacyToken, tok.SourceFormat)

	tok, err = g.Decode(strings.Repeat("A", 150))
	require.NoError(t, err)
	require.Equal(t, domain.FormatLegacyToken, tok.SourceFormat)

	_, err = g.Decode(strings.Repeat("A", 151))
	require.ErrorIs(t, err, serrors.ErrUnsupportedFormat)
}

func TestDecode_EnhancedTokenHash_RoundTrip(t *testing.T) {
	g := newTestGrammar(t)
	text := "dG9rZW4xMjM=:a1b2c3d4"

	tok, err := g.Decode(text)
	require.NoError(t, err)
	require.Equal(t, "dG9rZW4xMjM=", tok.CustomerToken)
	require.Equal(t, "a1b2c3d4", tok.OfferHash)
	require.Equal(t, domain.FormatEnhancedTokenHash, tok.SourceFormat)

	// re-serialization reproduces the original input exactly
	require.Equal(t, text, tok.CustomerToken+":"+tok.OfferHash)
}

func TestDecode_PriorityLegacyBeforeEnhanced(t *testing.T) {
	g := newTestGrammar(t)

	// 90 base64 chars with no colon must classify as legacy even though its
	// alphabet overlaps the token side of the token:hash rule.
	text := strings.Repeat("YWJj", 22) + "YW" // 90 chars
	require.Len(t, text, 90)

	tok, err := g.Decode(text)
	require.NoError(t, err)
	require.Equal(t, domain.FormatLegacyToken, tok.SourceFormat)

	// the same token with a hash suffix flips to the token:hash rule
	tok, err = g.Decode(text + ":deadbeef")
	require.NoError(t, err)
	require.Equal(t, domain.FormatEnhancedTokenHash, tok.SourceFormat)
	require.Equal(t, text, tok.CustomerToken)
}

func TestDecode_NumericID(t *testing.T) {
	g := newTestGrammar(t)

	tok, err := g.Decode("12345")
	require.NoError(t, err)
	require.Equal(t, "12345", tok.CustomerToken)
	require.Empty(t, tok.OfferHash)
	require.Equal(t, domain.FormatNumericID, tok.SourceFormat)
}

func TestDecode_Unsupported_DiagnosticsRedacted(t *testing.T) {
	g := newTestGrammar(t)
	text := "not a known format " + strings.Repeat("x", 120)

	_, err := g.Decode(text)
	require.ErrorIs(t, err, serrors.ErrUnsupportedFormat)
	require.NotContains(t, err.Error(), text, "full raw text must never leak into errors")
	require.Contains(t, err.Error(), "len=")
}

func TestDecode_Sanitizes(t *testing.T) {
	g := newTestGrammar(t)

	// surrounding whitespace plus zero-width runes and a BOM
	tok, err := g.Decode("\ufeff  ​12345‍\n")
	require.NoError(t, err)
	require.Equal(t, "12345", tok.CustomerToken)
	require.Equal(t, domain.FormatNumericID, tok.SourceFormat)

	_, err = g.Decode(" \t​ ")
	require.ErrorIs(t, err, serrors.ErrUnsupportedFormat)
}

func TestDecode_Deterministic(t *testing.T) {
	g := newTestGrammar(t)

	for _, text := range []string{
		"https://x.io/scan/tok123/hashABC",
		`{"customerId":"cust_1","offerId":"off_9","businessId":"22"}`,
		strings.Repeat("YWJj", 25),
		"dG9rZW4xMjM=:a1b2c3d4",
		"12345",
	} {
		first, err := g.Decode(text)
		require.NoError(t, err)
		second, err := g.Decode(text)
		require.NoError(t, err)
		require.Equal(t, first, second, "input %q", text)
	}
}
