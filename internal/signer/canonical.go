package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// EmptyPayloadHash is hex(SHA-256("")), the payload hash of a bodyless
// request.
const EmptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// buildCanonicalRequest serializes a request into the exact newline-delimited
// layout the signature is computed over:
//
//	METHOD\nURI\nQUERY\nHEADERS\n\nSIGNED_HEADERS\nPAYLOAD_HASH
//
// It returns the canonical string and the semicolon-joined signed header
// list. Any deviation from this layout produces a signature the service
// rejects, so the pieces below are deliberately byte-exact.
func buildCanonicalRequest(method, path, rawQuery string, headers map[string]string, body []byte) (string, string) {
	if path == "" {
		path = "/"
	}

	canonHeaders, signedHeaders := canonicalHeaders(headers)

	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	b.WriteString(canonicalQuery(rawQuery))
	b.WriteByte('\n')
	b.WriteString(canonHeaders) // ends with \n, yielding the blank separator line
	b.WriteByte('\n')
	b.WriteString(signedHeaders)
	b.WriteByte('\n')
	b.WriteString(hashHex(body))

	return b.String(), signedHeaders
}

// canonicalQuery normalizes a raw query string: each key and value is
// percent-encoded independently (space as %20, never +), pairs are sorted by
// encoded key and, for duplicate keys, by encoded value.
func canonicalQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	pairs := strings.Split(rawQuery, "&")
	encoded := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p == "" {
			continue
		}
		key, value, _ := strings.Cut(p, "=")
		encoded = append(encoded, uriEncode(queryUnescape(key))+"="+uriEncode(queryUnescape(value)))
	}
	sort.Strings(encoded)
	return strings.Join(encoded, "&")
}

// queryUnescape decodes %XX sequences and + so that pre-encoded input does
// not get double-encoded. Malformed escapes are kept literally.
func queryUnescape(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '+':
			b.WriteByte(' ')
		case s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

const upperhex = "0123456789ABCDEF"

// uriEncode percent-encodes everything except RFC 3986 unreserved
// characters. Space becomes %20.
func uriEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' ||
			c == '-' || c == '_' || c == '.' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}

// canonicalHeaders lower-cases header names, sorts them, and renders one
// "name:value\n" line per header. The second return value is the sorted,
// semicolon-joined signed header list.
func canonicalHeaders(headers map[string]string) (string, string) {
	values := make(map[string]string, len(headers))
	for name, value := range headers {
		values[strings.ToLower(name)] = strings.TrimSpace(value)
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(values[name])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}

// deriveKey runs the four-stage keyed-hash chain binding the secret to a
// (date, region, service) scope. The result is valid only for that scope
// and is recomputed for every signing operation.
func deriveKey(secret, date, region, service string) []byte {
	kDate := hmacSHA256([]byte(secret), date)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "request")
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
