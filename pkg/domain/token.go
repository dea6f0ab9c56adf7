package domain

// FormatKind identifies which payload grammar rule produced a decoded token.
// It is carried through for diagnostics and backend routing.
type FormatKind string

const (
	// FormatURLPath is a scan URL of the shape http(s)://host/scan/{token}/{hash}.
	FormatURLPath FormatKind = "URL_PATH"
	// FormatWalletJSON is a wallet pass JSON payload carrying customerId/offerId.
	FormatWalletJSON FormatKind = "WALLET_JSON"
	// FormatLegacyToken is a bare base64-alphabet customer token, 80-150 chars,
	// without offer information.
	FormatLegacyToken FormatKind = "LEGACY_TOKEN"
	// FormatEnhancedTokenHash is an encoded token and an 8-hex offer hash
	// joined by a single colon.
	FormatEnhancedTokenHash FormatKind = "ENHANCED_TOKEN_HASH"
	// FormatNumericID is an all-digit customer identifier.
	FormatNumericID FormatKind = "NUMERIC_ID"
)

// DecodedToken is the sole artifact the scan engine hands to its caller:
// a validated (customer token, offer hash, source format) tuple.
type DecodedToken struct {
	// CustomerToken is the opaque identifier proving the customer's identity
	// to the backend. Its encoding depends on SourceFormat.
	CustomerToken string `json:"customerToken"`
	// OfferHash is the short fingerprint of the loyalty offer the scan
	// pertains to. Empty when the source format carries no offer information;
	// the backend then auto-selects an offer.
	OfferHash string `json:"offerHash,omitempty"`
	// SourceFormat names the grammar rule that produced this token.
	SourceFormat FormatKind `json:"sourceFormat"`
	// RawText is the sanitized payload the token was decoded from. Not
	// serialized; kept for diagnostics only.
	RawText string `json:"-"`
}

// HasOffer reports whether the token carries offer information.
func (t DecodedToken) HasOffer() bool { return t.OfferHash != "" }
