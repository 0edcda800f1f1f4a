package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pkcs12"

	"github.com/oshokin/passkit/internal/domain/build"
)

var (
	// ErrNoCertificate is returned when PEM data holds no certificate.
	ErrNoCertificate = errors.New("no certificate found")
	// ErrNoPrivateKey is returned when no usable private key is found.
	ErrNoPrivateKey = errors.New("no private key found")
	// ErrKeyMismatch is returned when the private key does not belong to the certificate.
	ErrKeyMismatch = errors.New("private key does not match certificate")
	// ErrUnsupportedKey is returned for keys that cannot sign.
	ErrUnsupportedKey = errors.New("unsupported private key type")
)

// Identity is a signing certificate, its private key and the chain up to (excluding) a root.
type Identity struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.Signer
	Chain       []*x509.Certificate
}

// Validate checks that the identity is complete and the key belongs to the certificate.
func (id *Identity) Validate() error {
	if id == nil || id.Certificate == nil {
		return ErrNoCertificate
	}

	if id.PrivateKey == nil {
		return ErrNoPrivateKey
	}

	public, ok := id.PrivateKey.Public().(interface{ Equal(x crypto.PublicKey) bool })
	if !ok || !public.Equal(id.Certificate.PublicKey) {
		return ErrKeyMismatch
	}

	return nil
}

// LoadPEM reads a certificate, its private key and optional chain files.
func LoadPEM(certificatePath, keyPath string, chainPaths ...string) (*Identity, error) {
	certs, err := LoadCertificates(certificatePath)
	if err != nil {
		return nil, err
	}

	keyData, err := os.ReadFile(filepath.Clean(keyPath))
	if err != nil {
		return nil, build.Fail(build.ErrSigning, keyPath, err)
	}

	key, err := parsePrivateKey(keyData)
	if err != nil {
		return nil, build.Fail(build.ErrSigning, keyPath, err)
	}

	chain, err := LoadCertificates(chainPaths...)
	if err != nil {
		return nil, err
	}

	id := &Identity{
		Certificate: certs[0],
		PrivateKey:  key,
		Chain:       append(certs[1:], chain...),
	}

	if err = id.Validate(); err != nil {
		return nil, build.Fail(build.ErrSigning, certificatePath, err)
	}

	return id, nil
}

// LoadPKCS12 reads a PKCS#12 bundle and optional chain files.
// The bundle certificate matching the key becomes the signing certificate;
// any other bundle certificate joins the chain.
func LoadPKCS12(path, password string, chainPaths ...string) (*Identity, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, build.Fail(build.ErrSigning, path, err)
	}

	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, build.Fail(build.ErrSigning, path, err)
	}

	var (
		key   crypto.Signer
		certs []*x509.Certificate
	)

	for _, block := range blocks {
		switch block.Type {
		case "CERTIFICATE":
			cert, parseErr := x509.ParseCertificate(block.Bytes)
			if parseErr != nil {
				return nil, build.Fail(build.ErrSigning, path, parseErr)
			}

			certs = append(certs, cert)
		default:
			if key, err = parsePrivateKeyDER(block.Bytes); err != nil {
				return nil, build.Fail(build.ErrSigning, path, err)
			}
		}
	}

	if key == nil {
		return nil, build.Fail(build.ErrSigning, path, ErrNoPrivateKey)
	}

	chain, err := LoadCertificates(chainPaths...)
	if err != nil {
		return nil, err
	}

	id := &Identity{PrivateKey: key}

	for _, cert := range certs {
		candidate := &Identity{Certificate: cert, PrivateKey: key}
		if id.Certificate == nil && candidate.Validate() == nil {
			id.Certificate = cert

			continue
		}

		id.Chain = append(id.Chain, cert)
	}

	id.Chain = append(id.Chain, chain...)

	if err = id.Validate(); err != nil {
		return nil, build.Fail(build.ErrSigning, path, err)
	}

	return id, nil
}

// LoadCertificates reads every certificate from the given PEM files, in order.
func LoadCertificates(paths ...string) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	for _, path := range paths {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, build.Fail(build.ErrSigning, path, err)
		}

		parsed, err := ParseCertificates(data)
		if err != nil {
			return nil, build.Fail(build.ErrSigning, path, err)
		}

		certs = append(certs, parsed...)
	}

	return certs, nil
}

// ParseCertificates decodes all CERTIFICATE blocks of PEM data.
func ParseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	for {
		var block *pem.Block

		block, data = pem.Decode(data)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}

		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, ErrNoCertificate
	}

	return certs, nil
}

// CertPool returns a pool holding certs.
func CertPool(certs ...*x509.Certificate) *x509.CertPool {
	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}

	return pool
}

// parsePrivateKey returns the first private key found in PEM data.
func parsePrivateKey(data []byte) (crypto.Signer, error) {
	for {
		var block *pem.Block

		block, data = pem.Decode(data)
		if block == nil {
			return nil, ErrNoPrivateKey
		}

		if block.Type == "CERTIFICATE" {
			continue
		}

		return parsePrivateKeyDER(block.Bytes)
	}
}

// parsePrivateKeyDER accepts PKCS#1, SEC 1 and PKCS#8 encodings.
func parsePrivateKeyDER(der []byte) (crypto.Signer, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}

	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPrivateKey, err)
	}

	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
}
