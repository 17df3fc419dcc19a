package certs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/dnscerts/dnsimple"
)

// ErrCancelled is returned when the user declines a confirmation prompt
var ErrCancelled = errors.New("cancelled by user")

// PurchaseOptions contains options for ordering a new certificate
type PurchaseOptions struct {
	Attributes dnsimple.LetsencryptCertificateAttributes
	// Issue requests issuance right after the purchase
	Issue  bool
	DryRun bool
}

// PurchaseResult describes an ordered certificate
type PurchaseResult struct {
	Purchase dnsimple.CertificatePurchase
	Issued   *dnsimple.Certificate
}

// Operations implements the certificate workflows of one domain
type Operations struct {
	api         CertificateAPI
	accountID   string
	domain      string
	logger      zerolog.Logger
	formatter   CertificateFormatter
	concurrency int
	now         func() time.Time
	out         io.Writer
	in          io.Reader
}

// NewOperations creates a new Operations instance for a domain
func NewOperations(api CertificateAPI, accountID, domain string, logger zerolog.Logger) *Operations {
	return &Operations{
		api:         api,
		accountID:   accountID,
		domain:      domain,
		logger:      logger,
		formatter:   NewConsoleFormatter(),
		concurrency: DefaultConcurrency,
		now:         time.Now,
		out:         os.Stdout,
		in:          os.Stdin,
	}
}

// SetConcurrency sets how many certificates are renewed or downloaded at once
func (o *Operations) SetConcurrency(n int) {
	o.concurrency = max(1, min(n, MaxConcurrency))
}

// SetOutput redirects console output and confirmation prompts
func (o *Operations) SetOutput(out io.Writer, in io.Reader) {
	o.out = out
	o.in = in
}

// SetClock sets the time source used for expiry calculations
func (o *Operations) SetClock(now func() time.Time) {
	o.now = now
}

// Now returns the current time of the operations clock
func (o *Operations) Now() time.Time {
	return o.now()
}

// Formatter returns the formatter used for console output
func (o *Operations) Formatter() CertificateFormatter {
	return o.formatter
}

// Domain returns the domain the operations act on
func (o *Operations) Domain() string {
	return o.domain
}

// SearchCertificates returns every certificate of the domain matching
// filterFunc, ordered by expiry date. A nil filterFunc matches everything.
func (o *Operations) SearchCertificates(ctx context.Context, filterFunc func(dnsimple.Certificate) bool) ([]dnsimple.Certificate, error) {
	all, err := o.api.AllCertificates(ctx, o.accountID, o.domain, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	results := make([]dnsimple.Certificate, 0, len(all))
	for _, cert := range all {
		if filterFunc == nil || filterFunc(cert) {
			results = append(results, cert)
		}
	}

	sortByExpiry(results)

	o.logger.Info().
		Str("domain", o.domain).
		Int("total", len(all)).
		Msgf("Found %d certificates matching filter", len(results))
	return results, nil
}

// ExpiringCertificates returns issued certificates expiring within the given
// number of days, including already expired ones.
func (o *Operations) ExpiringCertificates(ctx context.Context, within int) ([]dnsimple.Certificate, error) {
	now := o.now()
	return o.SearchCertificates(ctx, func(cert dnsimple.Certificate) bool {
		if !cert.IsIssued() {
			return false
		}
		days, ok := cert.DaysUntilExpiry(now)
		return ok && days <= within
	})
}

// RenewCertificates purchases, and optionally issues, a renewal for each
// Let's Encrypt certificate. Other certificates are skipped.
func (o *Operations) RenewCertificates(ctx context.Context, certs []dnsimple.Certificate, opts RenewOptions) (BatchRenewResult, error) {
	renewable := make([]dnsimple.Certificate, 0, len(certs))
	for _, cert := range certs {
		if !cert.IsLetsencrypt() {
			o.logger.Warn().
				Int64("certificate_id", cert.ID).
				Str("authority", cert.AuthorityIdentifier).
				Msg("Skipping certificate not issued by Let's Encrypt")
			continue
		}
		renewable = append(renewable, cert)
	}

	if len(renewable) == 0 {
		o.logger.Info().Msg("No certificates to renew")
		return BatchRenewResult{}, nil
	}

	if opts.DryRun {
		o.logger.Info().Msg("DRY RUN MODE - No renewals will be purchased")
		fmt.Fprint(o.out, o.formatter.FormatRenewalCandidates(renewable, o.now()))
		return BatchRenewResult{Requested: len(renewable)}, nil
	}

	if opts.Confirm {
		fmt.Fprint(o.out, o.formatter.FormatRenewalCandidates(renewable, o.now()))
		if !o.confirm(fmt.Sprintf("Renew %d certificate(s)?", len(renewable))) {
			o.logger.Info().Msg("Renewal cancelled by user")
			return BatchRenewResult{}, ErrCancelled
		}
	}

	result := o.batchRenew(ctx, renewable, opts)

	o.logger.Info().
		Int("renewed", len(result.Successful)).
		Int("failed", len(result.Failed)).
		Msg("Renewal complete")

	for _, failure := range result.Failed {
		o.logger.Error().
			Err(failure.Err).
			Int64("id", failure.CertificateID).
			Str("common_name", failure.CommonName).
			Msg("Failed to renew certificate")
	}

	if len(result.Failed) > 0 {
		return result, fmt.Errorf("failed to renew %d certificates", len(result.Failed))
	}
	return result, nil
}

// PurchaseCertificate orders a new Let's Encrypt certificate
func (o *Operations) PurchaseCertificate(ctx context.Context, opts PurchaseOptions) (*PurchaseResult, error) {
	if opts.DryRun {
		o.logger.Info().
			Str("domain", o.domain).
			Str("name", opts.Attributes.Name).
			Strs("alternate_names", opts.Attributes.AlternateNames).
			Msg("DRY RUN MODE - No certificate will be purchased")
		return nil, nil
	}

	purchase, err := o.api.PurchaseLetsencryptCertificate(ctx, o.accountID, o.domain, opts.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to purchase certificate: %w", err)
	}

	result := &PurchaseResult{Purchase: purchase.Data}
	o.logger.Info().
		Int64("purchase_id", purchase.Data.ID).
		Int64("certificate_id", purchase.Data.CertificateID).
		Msg("Purchased certificate")

	if !opts.Issue {
		return result, nil
	}

	issued, err := o.IssueCertificate(ctx, purchase.Data.CertificateID)
	if err != nil {
		return result, err
	}
	result.Issued = issued
	return result, nil
}

// IssueCertificate requests issuance of a purchased certificate
func (o *Operations) IssueCertificate(ctx context.Context, certificateID int64) (*dnsimple.Certificate, error) {
	resp, err := o.api.IssueLetsencryptCertificate(ctx, o.accountID, o.domain, certificateID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue certificate %d: %w", certificateID, err)
	}

	o.logger.Info().
		Int64("certificate_id", resp.Data.ID).
		Str("state", string(resp.Data.State)).
		Msg("Requested certificate issuance")
	return &resp.Data, nil
}

// DownloadBundles writes the PEM files of the given certificates into dir
func (o *Operations) DownloadBundles(ctx context.Context, ids []int64, dir string, includeKey bool) (BatchDownloadResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return BatchDownloadResult{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := o.batchDownload(ctx, ids, dir, includeKey)

	o.logger.Info().
		Str("dir", dir).
		Int("downloaded", len(result.Successful)).
		Int("failed", len(result.Failed)).
		Msg("Download complete")

	if len(result.Failed) > 0 {
		return result, fmt.Errorf("failed to download %d certificates", len(result.Failed))
	}
	return result, nil
}

// confirm prompts the user for confirmation
func (o *Operations) confirm(question string) bool {
	fmt.Fprintf(o.out, "\n%s [y/N]: ", question)

	response, _ := bufio.NewReader(o.in).ReadString('\n')
	return strings.ToLower(strings.TrimSpace(response)) == "y"
}

// sortByExpiry orders certificates by expiry date, soonest first. Certificates
// without an expiry date go last.
func sortByExpiry(certs []dnsimple.Certificate) {
	sort.SliceStable(certs, func(i, j int) bool {
		a, b := certs[i].ExpiresOn, certs[j].ExpiresOn
		switch {
		case a == b:
			return strings.ToLower(certs[i].CommonName) < strings.ToLower(certs[j].CommonName)
		case a == "":
			return false
		case b == "":
			return true
		}
		return a < b
	})
}
