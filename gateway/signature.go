package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// SignFields computes the provider's request token: fields sorted by key,
// concatenated as key=value pairs, shared secret appended, SHA-256 over the
// whole string, hex encoded. Webhook verification runs the same algorithm in
// reverse.
func SignFields(fields map[string]string, secret string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(fields[k])
	}
	sb.WriteString(secret)

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// VerifyToken checks a token against the expected digest in constant time.
func VerifyToken(fields map[string]string, secret, token string) bool {
	expected := SignFields(fields, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}
