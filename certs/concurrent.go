package certs

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/dnscerts/dnsimple"
)

const (
	// DefaultConcurrency is the number of certificates processed at once
	DefaultConcurrency = 4
	// MaxConcurrency caps user supplied concurrency
	MaxConcurrency = 10
)

// RenewOptions contains options for renewing certificates
type RenewOptions struct {
	DryRun  bool
	Confirm bool
	// Issue requests issuance right after the renewal is purchased
	Issue              bool
	AutoRenew          bool
	SignatureAlgorithm string
}

// RenewOutcome describes one renewed certificate
type RenewOutcome struct {
	CertificateID int64
	CommonName    string
	Renewal       dnsimple.CertificateRenewal
	// Issued is set when the renewal was issued in the same run
	Issued *dnsimple.Certificate
}

// BatchRenewResult contains the results of a batch renewal
type BatchRenewResult struct {
	Requested  int
	Successful []RenewOutcome
	Failed     []RenewError
}

// RenewError contains information about a failed renewal
type RenewError struct {
	CertificateID int64
	CommonName    string
	Err           error
}

// Error implements the error interface
func (e RenewError) Error() string {
	return fmt.Sprintf("failed to renew certificate %s (ID: %d): %v", e.CommonName, e.CertificateID, e.Err)
}

func (e RenewError) Unwrap() error {
	return e.Err
}

// DownloadedBundle lists the files written for one certificate
type DownloadedBundle struct {
	CertificateID int64
	CommonName    string
	Files         []string
}

// BatchDownloadResult contains the results of a batch download
type BatchDownloadResult struct {
	Requested  int
	Successful []DownloadedBundle
	Failed     []DownloadError
}

// DownloadError contains information about a failed download
type DownloadError struct {
	CertificateID int64
	Err           error
}

// Error implements the error interface
func (e DownloadError) Error() string {
	return fmt.Sprintf("failed to download certificate %d: %v", e.CertificateID, e.Err)
}

func (e DownloadError) Unwrap() error {
	return e.Err
}

// batchRenew renews certificates concurrently. Individual failures are
// collected and never cancel the other renewals.
func (o *Operations) batchRenew(ctx context.Context, certs []dnsimple.Certificate, opts RenewOptions) BatchRenewResult {
	result := BatchRenewResult{Requested: len(certs)}
	if len(certs) == 0 {
		return result
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	successChan := make(chan RenewOutcome, len(certs))
	errorChan := make(chan RenewError, len(certs))

	for _, cert := range certs {
		g.Go(func() error {
			outcome, err := o.renewOne(ctx, cert, opts)
			if err != nil {
				errorChan <- RenewError{CertificateID: cert.ID, CommonName: cert.CommonName, Err: err}
				return nil
			}
			successChan <- outcome
			return nil
		})
	}

	_ = g.Wait()
	close(successChan)
	close(errorChan)

	for outcome := range successChan {
		result.Successful = append(result.Successful, outcome)
	}
	for err := range errorChan {
		result.Failed = append(result.Failed, err)
	}

	// Completion order is random
	slices.SortFunc(result.Successful, func(a, b RenewOutcome) int {
		return cmp.Compare(a.CertificateID, b.CertificateID)
	})
	slices.SortFunc(result.Failed, func(a, b RenewError) int {
		return cmp.Compare(a.CertificateID, b.CertificateID)
	})

	return result
}

func (o *Operations) renewOne(ctx context.Context, cert dnsimple.Certificate, opts RenewOptions) (RenewOutcome, error) {
	outcome := RenewOutcome{CertificateID: cert.ID, CommonName: cert.CommonName}

	renewal, err := o.api.PurchaseLetsencryptCertificateRenewal(ctx, o.accountID, o.domain, cert.ID, dnsimple.LetsencryptRenewalAttributes{
		AutoRenew:          opts.AutoRenew,
		SignatureAlgorithm: opts.SignatureAlgorithm,
	})
	if err != nil {
		return outcome, fmt.Errorf("purchase renewal: %w", err)
	}
	outcome.Renewal = renewal.Data

	o.logger.Info().
		Int64("certificate_id", cert.ID).
		Int64("renewal_id", renewal.Data.ID).
		Int64("new_certificate_id", renewal.Data.NewCertificateID).
		Str("common_name", cert.CommonName).
		Msg("Purchased certificate renewal")

	if !opts.Issue {
		return outcome, nil
	}

	issued, err := o.api.IssueLetsencryptCertificateRenewal(ctx, o.accountID, o.domain, cert.ID, renewal.Data.ID)
	if err != nil {
		return outcome, fmt.Errorf("issue renewal %d: %w", renewal.Data.ID, err)
	}
	outcome.Issued = &issued.Data

	o.logger.Info().
		Int64("certificate_id", issued.Data.ID).
		Str("state", string(issued.Data.State)).
		Msg("Requested renewal issuance")

	return outcome, nil
}

// batchDownload downloads bundles concurrently into dir. Every certificate is
// looked up before any file is written so that file names are assigned for the
// whole batch at once.
func (o *Operations) batchDownload(ctx context.Context, ids []int64, dir string, includeKey bool) BatchDownloadResult {
	ids = uniqueIDs(ids)
	result := BatchDownloadResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result
	}

	successChan := make(chan DownloadedBundle, len(ids))
	errorChan := make(chan DownloadError, len(ids))

	fail := func(id int64, err error) {
		o.logger.Warn().Err(err).Int64("certificate_id", id).Msg("Failed to download certificate")
		errorChan <- DownloadError{CertificateID: id, Err: err}
	}

	// Lookup
	found := make([]*dnsimple.Certificate, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			cert, err := o.lookupIssued(gctx, id)
			if err != nil {
				fail(id, err)
				return nil
			}
			found[i] = &cert
			return nil
		})
	}
	_ = g.Wait()

	issued := make([]dnsimple.Certificate, 0, len(found))
	for _, cert := range found {
		if cert != nil {
			issued = append(issued, *cert)
		}
	}
	names := bundleNames(issued)

	// Download and write
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, cert := range issued {
		g.Go(func() error {
			bundle, err := o.downloadOne(gctx, cert, filepath.Join(dir, names[cert.ID]), includeKey)
			if err != nil {
				fail(cert.ID, err)
				return nil
			}
			successChan <- bundle
			return nil
		})
	}
	_ = g.Wait()
	close(successChan)
	close(errorChan)

	for bundle := range successChan {
		result.Successful = append(result.Successful, bundle)
	}
	for err := range errorChan {
		result.Failed = append(result.Failed, err)
	}

	slices.SortFunc(result.Successful, func(a, b DownloadedBundle) int {
		return cmp.Compare(a.CertificateID, b.CertificateID)
	})
	slices.SortFunc(result.Failed, func(a, b DownloadError) int {
		return cmp.Compare(a.CertificateID, b.CertificateID)
	})

	return result
}

// uniqueIDs drops repeated ids, keeping the first occurrence
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
