package registry

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrSignatureInvalid is the single outcome for every verification
// mismatch: wrong key, wrong signature, tampered payload, wrong length.
// Callers get no partial trust and no detail an attacker could use.
var ErrSignatureInvalid = errors.New("payload signature verification failed")

// MinKeyBits is the smallest RSA modulus accepted for a repository key.
const MinKeyBits = 2048

// LoadPublicKey parses a PEM-encoded repository public key. It accepts a
// PKIX "PUBLIC KEY" block, a PKCS#1 "RSA PUBLIC KEY" block, or an X.509
// "CERTIFICATE" block whose subject key is extracted. Non-RSA keys and
// moduli under MinKeyBits are rejected before any verification attempt.
func LoadPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key material")
	}

	var key any
	var err error
	switch block.Type {
	case "PUBLIC KEY":
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		var cert *x509.Certificate
		cert, err = x509.ParseCertificate(block.Bytes)
		if err == nil {
			key = cert.PublicKey
		}
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("repository key must be RSA, got %T", key)
	}
	if bits := rsaKey.N.BitLen(); bits < MinKeyBits {
		return nil, fmt.Errorf("repository key is %d bits, need at least %d", bits, MinKeyBits)
	}
	return rsaKey, nil
}

// Verify checks a detached RSA PKCS#1 v1.5 signature over the SHA-256
// digest of the raw, unparsed payload bytes. It is a pure function; the
// only failure it reports is ErrSignatureInvalid.
func Verify(pub *rsa.PublicKey, payload, signature []byte) error {
	digest := sha256.Sum256(payload)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}

// VerifySigned verifies an envelope and releases its payload. The payload
// is returned only after the signature passes, so structurally plausible
// but unsigned bytes can never reach the codec.
func VerifySigned(s *Signed, pub *rsa.PublicKey) ([]byte, error) {
	if err := Verify(pub, s.Payload, s.Signature); err != nil {
		return nil, err
	}
	return s.Payload, nil
}

// Sign produces the detached signature for a payload. The registry signs
// server-side; the client-side signer exists to build test fixtures and
// to round-trip private repositories.
func Sign(priv *rsa.PrivateKey, payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)
	return rsa.SignPKCS1v15(nil, priv, crypto.SHA256, digest[:])
}
