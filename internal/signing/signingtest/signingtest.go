// Package signingtest generates throwaway signing identities for tests: a
// root authority, an intermediate and a leaf pass type certificate.
package signingtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/passkit/internal/signing"
)

// PassTypeIdentifier is the pass type the leaf certificate is issued for.
const PassTypeIdentifier = "pass.com.example"

const keyBits = 2048

// Fixture is a generated certificate hierarchy.
type Fixture struct {
	// Identity signs with the leaf and embeds the intermediate.
	Identity *signing.Identity
	// Root is the self-signed authority.
	Root *x509.Certificate
}

// Paths locates a fixture written as PEM files.
type Paths struct {
	Certificate string
	PrivateKey  string
	Chain       string
	Root        string
}

var (
	//nolint:gochecknoglobals // Key generation is slow, every test shares one read-only hierarchy.
	shared struct {
		once    sync.Once
		fixture *Fixture
		err     error
	}
)

// NewIdentity returns the shared generated hierarchy.
func NewIdentity(t testing.TB) *Fixture {
	t.Helper()

	shared.once.Do(func() {
		shared.fixture, shared.err = generate("Test")
	})

	require.NoError(t, shared.err)

	return shared.fixture
}

// NewUnrelated returns a freshly generated hierarchy sharing nothing with NewIdentity.
func NewUnrelated(t testing.TB) *Fixture {
	t.Helper()

	f, err := generate("Unrelated")
	require.NoError(t, err)

	return f
}

// Roots returns a pool trusting only the fixture root.
func (f *Fixture) Roots() *x509.CertPool {
	return signing.CertPool(f.Root)
}

// WritePEM stores the fixture in dir as cert.pem, key.pem, chain.pem and root.pem.
func (f *Fixture) WritePEM(t testing.TB, dir string) Paths {
	t.Helper()

	keyDER, err := x509.MarshalPKCS8PrivateKey(f.Identity.PrivateKey)
	require.NoError(t, err)

	paths := Paths{
		Certificate: filepath.Join(dir, "cert.pem"),
		PrivateKey:  filepath.Join(dir, "key.pem"),
		Chain:       filepath.Join(dir, "chain.pem"),
		Root:        filepath.Join(dir, "root.pem"),
	}

	var chain []byte
	for _, cert := range f.Identity.Chain {
		chain = append(chain, encodeCertificate(cert)...)
	}

	require.NoError(t, os.WriteFile(paths.Certificate, encodeCertificate(f.Identity.Certificate), 0o600))
	require.NoError(t, os.WriteFile(paths.PrivateKey, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600))
	require.NoError(t, os.WriteFile(paths.Chain, chain, 0o600))
	require.NoError(t, os.WriteFile(paths.Root, encodeCertificate(f.Root), 0o600))

	return paths
}

func encodeCertificate(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

func generate(name string) (*Fixture, error) {
	now := time.Now()

	rootKey, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, err
	}

	root, err := issue(&x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: name + " Root CA", Organization: []string{"passkit"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}, nil, rootKey, rootKey)
	if err != nil {
		return nil, err
	}

	intermediateKey, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, err
	}

	intermediate, err := issue(&x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: name + " Developer Relations CA", Organization: []string{"passkit"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
	}, root, intermediateKey, rootKey)
	if err != nil {
		return nil, err
	}

	leafKey, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, err
	}

	leaf, err := issue(&x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "Pass Type ID: " + PassTypeIdentifier, Organization: []string{"passkit"}},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}, intermediate, leafKey, intermediateKey)
	if err != nil {
		return nil, err
	}

	return &Fixture{
		Identity: &signing.Identity{
			Certificate: leaf,
			PrivateKey:  leafKey,
			Chain:       []*x509.Certificate{intermediate},
		},
		Root: root,
	}, nil
}

// issue signs template with parentKey. A nil parent self-signs.
func issue(template, parent *x509.Certificate, key, parentKey *rsa.PrivateKey) (*x509.Certificate, error) {
	if parent == nil {
		parent = template
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, parentKey)
	if err != nil {
		return nil, err
	}

	return x509.ParseCertificate(der)
}
