package certs

import (
	"context"
	"time"

	"github.com/s0up4200/dnscerts/dnsimple"
)

// CertificateAPI defines the DNSimple certificate operations used here.
// *dnsimple.Client satisfies it.
type CertificateAPI interface {
	// Read operations
	AllCertificates(ctx context.Context, accountID, domain string, opts *dnsimple.ListOptions) ([]dnsimple.Certificate, error)
	GetCertificate(ctx context.Context, accountID, domain string, certificateID int64) (*dnsimple.CertificateResponse, error)
	DownloadCertificate(ctx context.Context, accountID, domain string, certificateID int64) (*dnsimple.CertificateBundleResponse, error)
	GetCertificatePrivateKey(ctx context.Context, accountID, domain string, certificateID int64) (*dnsimple.CertificatePrivateKeyResponse, error)

	// Let's Encrypt ordering
	PurchaseLetsencryptCertificate(ctx context.Context, accountID, domain string, attributes dnsimple.LetsencryptCertificateAttributes) (*dnsimple.CertificatePurchaseResponse, error)
	IssueLetsencryptCertificate(ctx context.Context, accountID, domain string, certificateID int64) (*dnsimple.CertificateResponse, error)
	PurchaseLetsencryptCertificateRenewal(ctx context.Context, accountID, domain string, certificateID int64, attributes dnsimple.LetsencryptRenewalAttributes) (*dnsimple.CertificateRenewalResponse, error)
	IssueLetsencryptCertificateRenewal(ctx context.Context, accountID, domain string, certificateID, renewalID int64) (*dnsimple.CertificateResponse, error)
}

// CertificateFormatter defines the interface for formatting certificate output
type CertificateFormatter interface {
	FormatCertificateList(certs []dnsimple.Certificate, options FormatOptions) string
	FormatCertificate(cert dnsimple.Certificate, options FormatOptions) string
	FormatRenewalCandidates(certs []dnsimple.Certificate, now time.Time) string
	FormatRenewResult(result BatchRenewResult) string
	FormatDownloadResult(result BatchDownloadResult) string
}

// FormatOptions contains options for formatting output
type FormatOptions struct {
	ShowDetails bool
	Now         time.Time
}
