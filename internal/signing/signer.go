package signing

import (
	"context"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"

	"github.com/digitorus/pkcs7"

	"github.com/oshokin/passkit/internal/config"
	"github.com/oshokin/passkit/internal/domain/build"
	"github.com/oshokin/passkit/internal/logger"
)

// Filename is the archive entry holding the detached signature.
const Filename = "signature"

var (
	errUnknownDigest = errors.New("unknown signature digest")
	errNoSigner      = errors.New("no signing identity configured")
)

// Signer produces a detached signature over content.
type Signer interface {
	Sign(ctx context.Context, content []byte) ([]byte, error)
}

// PKCS7Signer signs with a fixed identity and digest algorithm. It is safe for concurrent use.
type PKCS7Signer struct {
	identity *Identity
	digest   asn1.ObjectIdentifier
}

// Option configures a PKCS7Signer.
type Option func(*PKCS7Signer) error

// WithDigest selects the signature digest by config name (sha256 or sha1).
func WithDigest(name string) Option {
	return func(s *PKCS7Signer) error {
		switch name {
		case "", config.DigestSHA256:
			s.digest = pkcs7.OIDDigestAlgorithmSHA256
		case config.DigestSHA1:
			s.digest = pkcs7.OIDDigestAlgorithmSHA1
		default:
			return fmt.Errorf("%w: %q", errUnknownDigest, name)
		}

		return nil
	}
}

// NewPKCS7Signer validates identity and returns a signer.
func NewPKCS7Signer(identity *Identity, options ...Option) (*PKCS7Signer, error) {
	if identity == nil {
		return nil, build.Fail(build.ErrSigning, "", errNoSigner)
	}

	if err := identity.Validate(); err != nil {
		return nil, build.Fail(build.ErrSigning, "", err)
	}

	s := &PKCS7Signer{
		identity: identity,
		digest:   pkcs7.OIDDigestAlgorithmSHA256,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, build.Fail(build.ErrSigning, "", err)
		}
	}

	return s, nil
}

// Sign returns a DER-encoded detached signature over content. Nothing is
// returned unless the whole structure was produced.
func (s *PKCS7Signer) Sign(ctx context.Context, content []byte) ([]byte, error) {
	if s == nil || s.identity == nil {
		return nil, build.Fail(build.ErrSigning, Filename, errNoSigner)
	}

	signedData, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, build.Fail(build.ErrSigning, Filename, err)
	}

	signedData.SetDigestAlgorithm(s.digest)

	err = signedData.AddSignerChain(s.identity.Certificate, s.identity.PrivateKey, s.identity.Chain, pkcs7.SignerInfoConfig{})
	if err != nil {
		return nil, build.Fail(build.ErrSigning, Filename, err)
	}

	signedData.Detach()

	signature, err := signedData.Finish()
	if err != nil {
		return nil, build.Fail(build.ErrSigning, Filename, err)
	}

	logger.DebugKV(ctx, "Manifest signed",
		"subject", s.identity.Certificate.Subject.CommonName,
		"bytes", len(signature))

	return signature, nil
}

// Verify checks a detached signature over content. With a nil pool only the
// signature value is checked; otherwise the signer chain must lead to one of roots.
func Verify(content, signature []byte, roots *x509.CertPool) (*x509.Certificate, error) {
	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}

	p7.Content = content

	if roots == nil {
		err = p7.Verify()
	} else {
		err = p7.VerifyWithChain(roots)
	}

	if err != nil {
		return nil, fmt.Errorf("verify signature: %w", err)
	}

	return p7.GetOnlySigner(), nil
}
