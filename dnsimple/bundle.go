package dnsimple

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"github.com/go-acme/lego/v4/certcrypto"
)

// ErrKeyMismatch indicates the private key does not belong to the certificate.
var ErrKeyMismatch = errors.New("private key does not match certificate")

// FullChainPEM returns the server certificate followed by the chain, the
// layout web servers expect in a fullchain file.
func (b *CertificateBundle) FullChainPEM() string {
	parts := make([]string, 0, len(b.IntermediateCertificates)+1)
	if s := strings.TrimSpace(b.ServerCertificate); s != "" {
		parts = append(parts, s)
	}
	for _, pem := range b.IntermediateCertificates {
		if s := strings.TrimSpace(pem); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n") + "\n"
}

// ChainPEM returns only the intermediate certificates.
func (b *CertificateBundle) ChainPEM() string {
	parts := make([]string, 0, len(b.IntermediateCertificates))
	for _, pem := range b.IntermediateCertificates {
		if s := strings.TrimSpace(pem); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n") + "\n"
}

// Leaf parses the server certificate.
func (b *CertificateBundle) Leaf() (*x509.Certificate, error) {
	cert, err := certcrypto.ParsePEMCertificate([]byte(b.ServerCertificate))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server certificate: %w", err)
	}
	return cert, nil
}

// Certificates parses the server certificate and the chain, in order.
func (b *CertificateBundle) Certificates() ([]*x509.Certificate, error) {
	certs, err := certcrypto.ParsePEMBundle([]byte(b.FullChainPEM()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate bundle: %w", err)
	}
	return certs, nil
}

// Domains returns the names covered by the server certificate.
func (b *CertificateBundle) Domains() ([]string, error) {
	leaf, err := b.Leaf()
	if err != nil {
		return nil, err
	}
	return certcrypto.ExtractDomains(leaf), nil
}

// Parse decodes the PEM private key (PKCS#1, SEC 1 or PKCS#8).
func (k *CertificatePrivateKey) Parse() (crypto.PrivateKey, error) {
	key, err := certcrypto.ParsePEMPrivateKey([]byte(k.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// VerifyKeyPair checks that key is the private key of the bundle's server
// certificate.
func VerifyKeyPair(bundle *CertificateBundle, key *CertificatePrivateKey) error {
	leaf, err := bundle.Leaf()
	if err != nil {
		return err
	}

	privateKey, err := key.Parse()
	if err != nil {
		return err
	}

	signer, ok := privateKey.(crypto.Signer)
	if !ok {
		return fmt.Errorf("unsupported private key type %T", privateKey)
	}

	pub, ok := leaf.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(signer.Public()) {
		return ErrKeyMismatch
	}
	return nil
}
