package certs

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/s0up4200/dnscerts/dnsimple"
)

// File suffixes written for each certificate
const (
	FullChainSuffix = ".crt"
	ChainSuffix     = ".chain.crt"
	KeySuffix       = ".key"
)

// BundleBaseName returns a file name safe version of a common name.
// Wildcards become underscores: *.example.com -> _.example.com. Names that are
// empty or only dots fall back to certificate-<id>.
func BundleBaseName(commonName string, id int64) string {
	name := strings.TrimSpace(commonName)
	name = strings.NewReplacer("*", "_", "/", "_", string(os.PathSeparator), "_").Replace(name)
	if strings.Trim(name, ".") == "" {
		return fmt.Sprintf("certificate-%d", id)
	}
	return name
}

// bundleNames assigns a base name to each certificate of a download batch.
// Certificates sharing a common name, such as a renewal and the certificate
// it replaces, all get their id appended so no two write the same files.
func bundleNames(certs []dnsimple.Certificate) map[int64]string {
	counts := make(map[string]int, len(certs))
	for _, cert := range certs {
		counts[strings.ToLower(BundleBaseName(cert.CommonName, cert.ID))]++
	}

	names := make(map[int64]string, len(certs))
	for _, cert := range certs {
		base := BundleBaseName(cert.CommonName, cert.ID)
		if counts[strings.ToLower(base)] > 1 {
			base = fmt.Sprintf("%s-%d", base, cert.ID)
		}
		names[cert.ID] = base
	}
	return names
}

type bundleFile struct {
	path    string
	content string
	mode    os.FileMode
}

// lookupIssued fetches a certificate and checks it can be downloaded
func (o *Operations) lookupIssued(ctx context.Context, id int64) (dnsimple.Certificate, error) {
	cert, err := o.api.GetCertificate(ctx, o.accountID, o.domain, id)
	if err != nil {
		return dnsimple.Certificate{}, fmt.Errorf("get certificate: %w", err)
	}
	if !cert.Data.IsIssued() {
		return dnsimple.Certificate{}, fmt.Errorf("certificate is %s, not issued", cert.Data.State)
	}
	return cert.Data, nil
}

// downloadOne writes the bundle of cert to base plus the file suffixes
func (o *Operations) downloadOne(ctx context.Context, cert dnsimple.Certificate, base string, includeKey bool) (DownloadedBundle, error) {
	id := cert.ID
	out := DownloadedBundle{CertificateID: id, CommonName: cert.CommonName}

	bundle, err := o.api.DownloadCertificate(ctx, o.accountID, o.domain, id)
	if err != nil {
		return out, fmt.Errorf("download bundle: %w", err)
	}

	var key *dnsimple.CertificatePrivateKey
	if includeKey {
		resp, err := o.api.GetCertificatePrivateKey(ctx, o.accountID, o.domain, id)
		if err != nil {
			return out, fmt.Errorf("get private key: %w", err)
		}
		key = &resp.Data

		if err := dnsimple.VerifyKeyPair(&bundle.Data, key); err != nil {
			return out, err
		}
	}

	files := []bundleFile{
		{base + FullChainSuffix, bundle.Data.FullChainPEM(), 0o644},
		{base + ChainSuffix, bundle.Data.ChainPEM(), 0o644},
	}
	if key != nil {
		files = append(files, bundleFile{base + KeySuffix, ensureNewline(key.PrivateKey), 0o600})
	}

	for _, f := range files {
		if f.content == "" {
			continue
		}
		if err := os.WriteFile(f.path, []byte(f.content), f.mode); err != nil {
			return out, fmt.Errorf("write %s: %w", f.path, err)
		}
		out.Files = append(out.Files, f.path)
	}

	o.logger.Debug().
		Int64("certificate_id", id).
		Strs("files", out.Files).
		Msg("Wrote certificate bundle")

	return out, nil
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
