package dnsimple

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CertificateState is the lifecycle state of a certificate
type CertificateState string

const (
	// CertificateStateNew indicates a certificate order that was just created
	CertificateStateNew CertificateState = "new"
	// CertificateStatePurchased indicates a paid certificate not yet requested
	CertificateStatePurchased CertificateState = "purchased"
	// CertificateStateRequesting indicates the certificate is being requested
	CertificateStateRequesting CertificateState = "requesting"
	// CertificateStateIssued indicates an issued certificate
	CertificateStateIssued CertificateState = "issued"
	// CertificateStateCancelled indicates a cancelled order
	CertificateStateCancelled CertificateState = "cancelled"
	// CertificateStateRefunded indicates a refunded order
	CertificateStateRefunded CertificateState = "refunded"
	// CertificateStateFailed indicates a failed issuance
	CertificateStateFailed CertificateState = "failed"
)

// ExpiresOnLayout is the date format of Certificate.ExpiresOn.
const ExpiresOnLayout = "2006-01-02"

// LetsencryptAuthority is the authority identifier of Let's Encrypt certificates.
const LetsencryptAuthority = "letsencrypt"

// Certificate represents an SSL/TLS certificate
type Certificate struct {
	ID                  int64            `json:"id"`
	DomainID            int64            `json:"domain_id"`
	ContactID           int64            `json:"contact_id"`
	Name                string           `json:"name"`
	CommonName          string           `json:"common_name"`
	AlternateNames      []string         `json:"alternate_names"`
	Years               int              `json:"years"`
	CSR                 string           `json:"csr,omitempty"`
	State               CertificateState `json:"state"`
	AuthorityIdentifier string           `json:"authority_identifier"`
	AutoRenew           bool             `json:"auto_renew"`
	CreatedAt           string           `json:"created_at"`
	UpdatedAt           string           `json:"updated_at"`
	ExpiresAt           string           `json:"expires_at,omitempty"`
	ExpiresOn           string           `json:"expires_on"`
}

// IsIssued checks if the certificate has been issued
func (c *Certificate) IsIssued() bool {
	return c.State == CertificateStateIssued
}

// IsLetsencrypt checks if the certificate was issued by Let's Encrypt
func (c *Certificate) IsLetsencrypt() bool {
	return strings.EqualFold(c.AuthorityIdentifier, LetsencryptAuthority)
}

// Names returns the common name followed by the alternate names
func (c *Certificate) Names() []string {
	names := make([]string, 0, len(c.AlternateNames)+1)
	if c.CommonName != "" {
		names = append(names, c.CommonName)
	}
	return append(names, c.AlternateNames...)
}

// ExpiresOnTime parses ExpiresOn. Certificates that were never issued have
// no expiry date and return the zero time.
func (c *Certificate) ExpiresOnTime() (time.Time, error) {
	if c.ExpiresOn == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(ExpiresOnLayout, c.ExpiresOn)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expires_on %q: %w", c.ExpiresOn, err)
	}
	return t, nil
}

// DaysUntilExpiry returns the whole days between now and the expiry date.
// The second value is false when the certificate has no valid expiry date.
func (c *Certificate) DaysUntilExpiry(now time.Time) (int, bool) {
	expires, err := c.ExpiresOnTime()
	if err != nil || expires.IsZero() {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(expires.Sub(today).Hours() / 24), true
}

// CertificateChain is the list of intermediate certificates in a bundle.
// The API may send a single PEM string, a list or null; all decode to a
// non-nil slice.
type CertificateChain []string

// UnmarshalJSON accepts a string, an array of strings or null.
func (c *CertificateChain) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		*c = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("certificate chain must be a string or a list of strings: %w", err)
	}

	if single == "" {
		*c = CertificateChain{}
		return nil
	}
	*c = CertificateChain{single}
	return nil
}

// CertificateBundle is the PEM material of an issued certificate
type CertificateBundle struct {
	ServerCertificate        string           `json:"server"`
	RootCertificate          *string          `json:"root"`
	IntermediateCertificates CertificateChain `json:"chain"`
}

// CertificatePrivateKey holds the PEM encoded private key of a certificate
type CertificatePrivateKey struct {
	PrivateKey string `json:"private_key"`
}

// CertificatePurchase represents a certificate order
type CertificatePurchase struct {
	ID            int64  `json:"id"`
	CertificateID int64  `json:"certificate_id"`
	State         string `json:"state"`
	AutoRenew     bool   `json:"auto_renew"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// CertificateRenewal represents a renewal order linking the old and new certificate
type CertificateRenewal struct {
	ID               int64  `json:"id"`
	OldCertificateID int64  `json:"old_certificate_id"`
	NewCertificateID int64  `json:"new_certificate_id"`
	State            string `json:"state"`
	AutoRenew        bool   `json:"auto_renew"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// LetsencryptCertificateAttributes are the attributes of a Let's Encrypt purchase
type LetsencryptCertificateAttributes struct {
	ContactID          int64    `json:"contact_id,omitempty"`
	Name               string   `json:"name,omitempty"`
	AutoRenew          bool     `json:"auto_renew,omitempty"`
	AlternateNames     []string `json:"alternate_names,omitempty"`
	SignatureAlgorithm string   `json:"signature_algorithm,omitempty"`
}

// LetsencryptRenewalAttributes are the attributes of a Let's Encrypt renewal purchase
type LetsencryptRenewalAttributes struct {
	AutoRenew          bool   `json:"auto_renew,omitempty"`
	SignatureAlgorithm string `json:"signature_algorithm,omitempty"`
}

// Typed envelopes for the certificate endpoints.
type (
	CertificatesResponse          = Response[[]Certificate]
	CertificateResponse           = Response[Certificate]
	CertificateBundleResponse     = Response[CertificateBundle]
	CertificatePrivateKeyResponse = Response[CertificatePrivateKey]
	CertificatePurchaseResponse   = Response[CertificatePurchase]
	CertificateRenewalResponse    = Response[CertificateRenewal]
)
