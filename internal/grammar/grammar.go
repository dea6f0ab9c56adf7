// Package grammar classifies raw scanned payload text into a typed loyalty
// token. Five structurally different encodings are in the wild, produced by
// different wallet and QR issuers over time; each is matched by exactly one
// rule and the rules are tried in a fixed priority order.
package grammar

import (
	"crypto/md5" //nolint: gosec // offer hashes are fingerprints, not secrets
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"loyscan/pkg/domain"
	"loyscan/pkg/serrors"
)

// walletHashSalt is appended when deriving offer hashes from wallet payloads.
// It is part of the wire contract with the backend and must not change.
const walletHashSalt = "loyalty-platform"

// previewLimit caps how much payload text may appear in error diagnostics.
const previewLimit = 50

// Options configure payload decoding.
type Options struct {
	// DefaultBusinessID is used for wallet payloads that omit businessId.
	DefaultBusinessID string
	// Now supplies the clock for wallet token derivation. Defaults to time.Now.
	Now func() time.Time
}

// Grammar decodes sanitized payload text into domain.DecodedToken values.
// It is pure apart from the injected clock and safe for concurrent use.
type Grammar struct {
	defaultBusinessID string
	now               func() time.Time
}

// New constructs a Grammar from the provided options.
func New(opts Options) *Grammar {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Grammar{
		defaultBusinessID: opts.DefaultBusinessID,
		now:               now,
	}
}

// rule pairs a cheap structural predicate with the decoder it selects.
type rule struct {
	kind   domain.FormatKind
	match  func(text string) bool
	decode func(g *Grammar, text string) (domain.DecodedToken, error)
}

var (
	// legacyTokenRe matches bare base64-alphabet customer tokens of 80-150
	// chars. The character class cannot contain a colon, which is what keeps
	// this rule disjoint from the token:hash rule below.
	legacyTokenRe = regexp.MustCompile(`^[A-Za-z0-9+/=]{80,150}$`)
	// enhancedTokenRe matches an encoded token and an 8-hex offer hash joined
	// by a single colon.
	enhancedTokenRe = regexp.MustCompile(`^[A-Za-z0-9+/=]+:[a-f0-9]{8}$`)
	// numericIDRe matches all-digit customer identifiers.
	numericIDRe = regexp.MustCompile(`^[0-9]+$`)
)

// rules is evaluated top to bottom; first match wins. Order matters: the
// legacy rule must run before the token:hash rule so an 80-150 char token
// without a colon is never split, and both run before the numeric fallback.
var rules = []rule{ //nolint: gochecknoglobals
	{
		kind:   domain.FormatURLPath,
		match:  func(text string) bool { return strings.HasPrefix(text, "http") },
		decode: (*Grammar).decodeURLPath,
	},
	{
		kind:   domain.FormatWalletJSON,
		match:  func(text string) bool { return strings.HasPrefix(text, "{") },
		decode: (*Grammar).decodeWalletJSON,
	},
	{
		kind:   domain.FormatLegacyToken,
		match:  legacyTokenRe.MatchString,
		decode: (*Grammar).decodeLegacyToken,
	},
	{
		kind:   domain.FormatEnhancedTokenHash,
		match:  enhancedTokenRe.MatchString,
		decode: (*Grammar).decodeEnhancedTokenHash,
	},
	{
		kind:   domain.FormatNumericID,
		match:  numericIDRe.MatchString,
		decode: (*Grammar).decodeNumericID,
	},
}

// Decode sanitizes text and classifies it into exactly one format, returning
// the decoded token or a format error from the serrors taxonomy.
func (g *Grammar) Decode(text string) (domain.DecodedToken, error) {
	s := Sanitize(text)
	if s == "" {
		return domain.DecodedToken{}, serrors.With(serrors.ErrUnsupportedFormat, "empty payload")
	}

	for _, r := range rules {
		if r.match(s) {
			return r.decode(g, s)
		}
	}

	return domain.DecodedToken{}, serrors.With(serrors.ErrUnsupportedFormat,
		"unrecognized payload (%s)", summarize(s))
}

// Sanitize trims surrounding whitespace and strips invisible characters
// (zero-width runes, BOM, other format controls) that QR generators and
// copy-paste sometimes smuggle into payloads. Interior printable text is
// left untouched.
func Sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Cf, r) {
			return -1
		}

		return r
	}, strings.TrimSpace(text))
}

// decodeURLPath handles http(s)://host/scan/{token}/{hash} payloads.
func (g *Grammar) decodeURLPath(text string) (domain.DecodedToken, error) {
	u, err := url.Parse(text)
	if err != nil {
		return domain.DecodedToken{}, serrors.Wrap(serrors.ErrInvalidURLFormat, err, "could not parse scan URL")
	}

	// "/scan/tok/hash" splits into ["", "scan", "tok", "hash"]
	segments := strings.Split(u.Path, "/")
	if len(segments) < 4 || segments[1] != "scan" || segments[2] == "" || segments[3] == "" {
		return domain.DecodedToken{}, serrors.With(serrors.ErrInvalidURLFormat,
			"scan URL path must be /scan/{token}/{hash}")
	}

	return domain.DecodedToken{
		CustomerToken: segments[2],
		OfferHash:     segments[3],
		SourceFormat:  domain.FormatURLPath,
		RawText:       text,
	}, nil
}

// walletPayload is the JSON shape emitted by wallet passes.
type walletPayload struct {
	CustomerID string `json:"customerId"`
	OfferID    string `json:"offerId"`
	BusinessID string `json:"businessId"`
}

// decodeWalletJSON handles wallet pass payloads. The customer token is
// derived by base64-encoding "customerId:businessId:unixMillis" and the
// offer hash is the first 8 hex chars of MD5("offerId:businessId:<salt>").
// Both derivations are bit-exact contracts with the backend.
func (g *Grammar) decodeWalletJSON(text string) (domain.DecodedToken, error) {
	var p walletPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return domain.DecodedToken{}, serrors.Wrap(serrors.ErrInvalidWalletJSON, err, "could not parse wallet payload")
	}
	if p.CustomerID == "" || p.OfferID == "" {
		return domain.DecodedToken{}, serrors.With(serrors.ErrInvalidWalletJSON,
			"wallet payload requires customerId and offerId")
	}

	businessID := p.BusinessID
	if businessID == "" {
		businessID = g.defaultBusinessID
	}

	plain := fmt.Sprintf("%s:%s:%d", p.CustomerID, businessID, g.now().UnixMilli())
	token := base64.StdEncoding.EncodeToString([]byte(plain))

	sum := md5.Sum([]byte(p.OfferID + ":" + businessID + ":" + walletHashSalt)) //nolint: gosec
	hash := hex.EncodeToString(sum[:])[:8]

	return domain.DecodedToken{
		CustomerToken: token,
		OfferHash:     hash,
		SourceFormat:  domain.FormatWalletJSON,
		RawText:       text,
	}, nil
}

// decodeLegacyToken handles bare base64-alphabet tokens. No offer hash is
// carried; the backend auto-selects an offer.
func (g *Grammar) decodeLegacyToken(text string) (domain.DecodedToken, error) {
	return domain.DecodedToken{
		CustomerToken: text,
		SourceFormat:  domain.FormatLegacyToken,
		RawText:       text,
	}, nil
}

// decodeEnhancedTokenHash splits token:hash payloads on their single colon.
// The token segment is already in its final encoded form and is never
// re-encoded.
func (g *Grammar) decodeEnhancedTokenHash(text string) (domain.DecodedToken, error) {
	token, hash, _ := strings.Cut(text, ":")

	return domain.DecodedToken{
		CustomerToken: token,
		OfferHash:     hash,
		SourceFormat:  domain.FormatEnhancedTokenHash,
		RawText:       text,
	}, nil
}

// decodeNumericID handles all-digit customer identifiers.
func (g *Grammar) decodeNumericID(text string) (domain.DecodedToken, error) {
	return domain.DecodedToken{
		CustomerToken: text,
		SourceFormat:  domain.FormatNumericID,
		RawText:       text,
	}, nil
}

// summarize builds a diagnostic description of an unclassifiable payload
// without leaking the full text: structural flags plus a short preview.
func summarize(text string) string {
	preview := text
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "..."
	}

	return fmt.Sprintf("len=%d colon=%t brace=%t http=%t preview=%q",
		len(text),
		strings.Contains(text, ":"),
		strings.HasPrefix(text, "{"),
		strings.HasPrefix(text, "http"),
		preview)
}
