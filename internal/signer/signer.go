// Package signer implements the keyed-hash request signature scheme used by
// the signature-protected generation services. A request is serialized into
// a byte-exact canonical form, hashed into a string-to-sign, and signed with
// a key derived from the secret and a (date, region, service) scope.
package signer

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"genvid/internal/core/domain"
)

const algorithm = "HMAC-SHA256"

// Credentials is a static access-key pair. Loaded once at process start and
// read-only afterwards.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Scope binds a derived signing key to a region and service. The date
// component is taken from the signing timestamp.
type Scope struct {
	Region  string
	Service string
}

// Sign authenticates a request in place. It injects Host, X-Date and
// Content-Type into headers (overwriting caller values for those names) so
// they are always covered by the signature, then adds the Authorization
// header. Caller-supplied entries under other names are preserved and
// signed as-is.
//
// now is the signing instant; pass time.Now() outside of tests.
func Sign(creds Credentials, method, rawURL string, headers map[string]string, body []byte, scope Scope, now time.Time) error {
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return fmt.Errorf("%w: empty credentials", domain.ErrSigning)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: parse url %q: %v", domain.ErrSigning, rawURL, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url %q has no host", domain.ErrSigning, rawURL)
	}

	timestamp := now.UTC().Format("20060102T150405Z")
	date := timestamp[:8]

	// Drop case-variant spellings of the injected names so the canonical
	// form sees exactly one value for each.
	for name := range headers {
		switch strings.ToLower(name) {
		case "host", "x-date", "content-type", "authorization":
			delete(headers, name)
		}
	}
	headers["Host"] = u.Host
	headers["X-Date"] = timestamp
	headers["Content-Type"] = "application/json"

	canonical, signedHeaders := buildCanonicalRequest(method, u.Path, u.RawQuery, headers, body)

	credentialScope := fmt.Sprintf("%s/%s/%s/request", date, scope.Region, scope.Service)
	stringToSign := fmt.Sprintf("%s\n%s\n%s\n%s", algorithm, timestamp, credentialScope, hashHex([]byte(canonical)))

	signingKey := deriveKey(creds.SecretKey, date, scope.Region, scope.Service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	headers["Authorization"] = fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, creds.AccessKey, credentialScope, signedHeaders, signature)
	return nil
}
