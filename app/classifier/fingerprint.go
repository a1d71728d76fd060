package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var foldCaser = cases.Fold()

// normalizeText canonicalizes document text so that the fingerprint is stable
// under whitespace, casing and Unicode formatting noise introduced by
// republication (full-width punctuation, soft hyphens, decorative wrappers).
func normalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = foldCaser.String(text)

	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			// Punctuation and all whitespace collapse to a single separator.
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// Fingerprint derives a stable content identity for duplicate detection.
func Fingerprint(text string) string {
	hash := sha256.Sum256([]byte(normalizeText(text)))
	return hex.EncodeToString(hash[:])
}
