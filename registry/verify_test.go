package registry

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return priv
}

func TestVerify(t *testing.T) {
	priv := testKey(t)
	payload := []byte("signed index payload")

	sig, err := Sign(priv, payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(&priv.PublicKey, payload, sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	priv := testKey(t)
	payload := []byte("signed index payload")
	sig, err := Sign(priv, payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tampered := append([]byte(nil), payload...)
	tampered[0] ^= 0x01
	if err := Verify(&priv.PublicKey, tampered, sig); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("tampered payload: got %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	priv := testKey(t)
	payload := []byte("signed index payload")
	sig, err := Sign(priv, payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	sig[0] ^= 0x01
	if err := Verify(&priv.PublicKey, payload, sig); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("tampered signature: got %v, want ErrSignatureInvalid", err)
	}
	if err := Verify(&priv.PublicKey, payload, nil); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("empty signature: got %v, want ErrSignatureInvalid", err)
	}
	if err := Verify(&priv.PublicKey, payload, sig[:10]); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("truncated signature: got %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv := testKey(t)
	other := testKey(t)
	payload := []byte("signed index payload")
	sig, err := Sign(priv, payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(&other.PublicKey, payload, sig); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("wrong key: got %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifySigned(t *testing.T) {
	priv := testKey(t)
	payload := []byte("payload")
	sig, err := Sign(priv, payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	got, err := VerifySigned(&Signed{Payload: payload, Signature: sig}, &priv.PublicKey)
	if err != nil {
		t.Fatalf("VerifySigned: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("payload: got %q", got)
	}

	if _, err := VerifySigned(&Signed{Payload: []byte("other"), Signature: sig}, &priv.PublicKey); err == nil {
		t.Error("expected error for payload not matching signature")
	}
}

func TestLoadPublicKeyPKIX(t *testing.T) {
	priv := testKey(t)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	pub, err := LoadPublicKey(pemBytes)
	if err != nil {
		t.Fatalf("LoadPublicKey: %v", err)
	}
	if pub.N.Cmp(priv.PublicKey.N) != 0 {
		t.Error("loaded key does not match")
	}
}

func TestLoadPublicKeyPKCS1(t *testing.T) {
	priv := testKey(t)
	der := x509.MarshalPKCS1PublicKey(&priv.PublicKey)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: der})

	if _, err := LoadPublicKey(pemBytes); err != nil {
		t.Fatalf("LoadPublicKey: %v", err)
	}
}

func TestLoadPublicKeyRejectsUndersizedKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	if _, err := LoadPublicKey(pemBytes); err == nil {
		t.Error("expected error for 1024-bit key")
	}
}

func TestLoadPublicKeyRejectsNonRSA(t *testing.T) {
	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&ec.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	if _, err := LoadPublicKey(pemBytes); err == nil {
		t.Error("expected error for ECDSA key")
	}
}

func TestLoadPublicKeyRejectsGarbage(t *testing.T) {
	if _, err := LoadPublicKey([]byte("not pem at all")); err == nil {
		t.Error("expected error for non-PEM input")
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1, 2, 3}})
	if _, err := LoadPublicKey(pemBytes); err == nil {
		t.Error("expected error for unsupported block type")
	}
}
