package dnsimple

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// certificatesPath returns /domains/{domain}/certificates plus an optional suffix.
func certificatesPath(domain string, suffix string) string {
	return fmt.Sprintf("/domains/%s/certificates%s", url.PathEscape(domain), suffix)
}

// ListCertificates lists one page of the certificates of a domain.
func (c *Client) ListCertificates(ctx context.Context, accountID, domain string, opts *ListOptions) (*CertificatesResponse, error) {
	path := accountPath(accountID, certificatesPath(domain, ""))
	return do[[]Certificate](ctx, c, newRequest(http.MethodGet, path, opts, nil))
}

// AllCertificates walks every page of ListCertificates.
func (c *Client) AllCertificates(ctx context.Context, accountID, domain string, opts *ListOptions) ([]Certificate, error) {
	return CollectAll[Certificate](ctx, func(ctx context.Context, pageOpts *ListOptions) (*CertificatesResponse, error) {
		return c.ListCertificates(ctx, accountID, domain, pageOpts)
	}, opts)
}

// GetCertificate fetches a single certificate.
func (c *Client) GetCertificate(ctx context.Context, accountID, domain string, certificateID int64) (*CertificateResponse, error) {
	path := accountPath(accountID, certificatesPath(domain, fmt.Sprintf("/%d", certificateID)))
	return do[Certificate](ctx, c, newRequest(http.MethodGet, path, nil, nil))
}

// DownloadCertificate fetches the PEM bundle of an issued certificate.
func (c *Client) DownloadCertificate(ctx context.Context, accountID, domain string, certificateID int64) (*CertificateBundleResponse, error) {
	path := accountPath(accountID, certificatesPath(domain, fmt.Sprintf("/%d/download", certificateID)))
	resp, err := do[CertificateBundle](ctx, c, newRequest(http.MethodGet, path, nil, nil))
	if err != nil {
		return nil, err
	}
	if resp.Data.IntermediateCertificates == nil {
		resp.Data.IntermediateCertificates = CertificateChain{}
	}
	return resp, nil
}

// GetCertificatePrivateKey fetches the PEM private key of a certificate.
func (c *Client) GetCertificatePrivateKey(ctx context.Context, accountID, domain string, certificateID int64) (*CertificatePrivateKeyResponse, error) {
	path := accountPath(accountID, certificatesPath(domain, fmt.Sprintf("/%d/private_key", certificateID)))
	return do[CertificatePrivateKey](ctx, c, newRequest(http.MethodGet, path, nil, nil))
}

// PurchaseLetsencryptCertificate orders a new Let's Encrypt certificate.
// The certificate still has to be issued with IssueLetsencryptCertificate.
func (c *Client) PurchaseLetsencryptCertificate(ctx context.Context, accountID, domain string, attributes LetsencryptCertificateAttributes) (*CertificatePurchaseResponse, error) {
	path := accountPath(accountID, certificatesPath(domain, "/letsencrypt"))
	return do[CertificatePurchase](ctx, c, newRequest(http.MethodPost, path, nil, attributes))
}

// IssueLetsencryptCertificate requests issuance of a purchased certificate.
func (c *Client) IssueLetsencryptCertificate(ctx context.Context, accountID, domain string, certificateID int64) (*CertificateResponse, error) {
	path := accountPath(accountID, certificatesPath(domain, fmt.Sprintf("/letsencrypt/%d/issue", certificateID)))
	return do[Certificate](ctx, c, newRequest(http.MethodPost, path, nil, nil))
}

// PurchaseLetsencryptCertificateRenewal orders a renewal of an existing
// certificate. The renewal references both the old and the new certificate.
func (c *Client) PurchaseLetsencryptCertificateRenewal(ctx context.Context, accountID, domain string, certificateID int64, attributes LetsencryptRenewalAttributes) (*CertificateRenewalResponse, error) {
	path := accountPath(accountID, certificatesPath(domain, fmt.Sprintf("/letsencrypt/%d/renewal", certificateID)))
	return do[CertificateRenewal](ctx, c, newRequest(http.MethodPost, path, nil, attributes))
}

// IssueLetsencryptCertificateRenewal requests issuance of a purchased renewal
// and returns the new certificate.
func (c *Client) IssueLetsencryptCertificateRenewal(ctx context.Context, accountID, domain string, certificateID, renewalID int64) (*CertificateResponse, error) {
	path := accountPath(accountID, certificatesPath(domain, fmt.Sprintf("/letsencrypt/%d/renewals/%d/issue", certificateID, renewalID)))
	return do[Certificate](ctx, c, newRequest(http.MethodPost, path, nil, nil))
}
