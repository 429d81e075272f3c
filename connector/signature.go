package connector

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"time"

	"github.com/go-fed/httpsig"
)

var (
	getSignedHeaders  = []string{httpsig.RequestTarget, "host", "date"}
	postSignedHeaders = []string{httpsig.RequestTarget, "host", "date", "digest"}
)

// signatureExpiry is how long a signature stays valid, in seconds
const signatureExpiry = 3600

// requestSigner signs outgoing requests for servers that require signed fetch.
type requestSigner struct {
	key   crypto.PrivateKey
	keyID string
}

// parsePrivateKey reads a PKCS#8 or PKCS#1 pem.
func parsePrivateKey(pemBytes []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no pem block in private key")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}

func newRequestSigner(pemBytes []byte, keyID string) (*requestSigner, error) {
	key, err := parsePrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}
	return &requestSigner{key: key, keyID: keyID}, nil
}

// sign adds Date, Host, Digest (for a body) and Signature headers.
// An httpsig signer is not safe for concurrent use, so each request gets its own.
func (s *requestSigner) sign(r *http.Request, body []byte) error {
	if r.Header.Get("Date") == "" {
		r.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	r.Header.Set("Host", r.URL.Host)

	headers := getSignedHeaders
	if body != nil {
		headers = postSignedHeaders
	}
	prefs := []httpsig.Algorithm{httpsig.RSA_SHA256}
	signer, _, err := httpsig.NewSigner(prefs, httpsig.DigestSha256, headers, httpsig.Signature, signatureExpiry)
	if err != nil {
		return fmt.Errorf("creating signer: %w", err)
	}
	if err := signer.SignRequest(s.key, s.keyID, r, body); err != nil {
		return fmt.Errorf("signing request: %w", err)
	}
	return nil
}
