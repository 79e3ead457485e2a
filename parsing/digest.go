package parsing

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/pingcap/parser"
)

// Fingerprint returns the 40-hex-char SHA-1 digest of the literal-normalized
// statement text (spec §4.3 "Fingerprint", §8 sqlsha1 invariant). It is
// stable across statements differing only in literal values because
// parser.Normalize replaces every literal with '?' before hashing — the
// same normalization github.com/pingcap/parser exposes for its own
// statement-summary digesting.
func Fingerprint(sql string) string {
	normalized := parser.Normalize(sql)
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
