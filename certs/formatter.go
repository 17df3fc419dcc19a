package certs

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/s0up4200/dnscerts/dnsimple"
)

// ConsoleFormatter provides console output formatting for certificates
type ConsoleFormatter struct{}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{}
}

// FormatCertificateList formats a list of certificates for console display
func (f *ConsoleFormatter) FormatCertificateList(certs []dnsimple.Certificate, options FormatOptions) string {
	if len(certs) == 0 {
		return "No certificates found\n"
	}

	var sb strings.Builder

	sb.WriteString("\nCertificate")
	if len(certs) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " (%d):\n\n", len(certs))

	for i, cert := range certs {
		isLast := i == len(certs)-1
		f.formatCertificate(&sb, cert, isLast, options)

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatCertificate formats a single certificate
func (f *ConsoleFormatter) FormatCertificate(cert dnsimple.Certificate, options FormatOptions) string {
	var sb strings.Builder
	sb.WriteString("\n")
	f.formatCertificate(&sb, cert, true, options)
	sb.WriteString("\n")
	return sb.String()
}

// FormatRenewalCandidates formats certificates about to be renewed
func (f *ConsoleFormatter) FormatRenewalCandidates(certs []dnsimple.Certificate, now time.Time) string {
	if len(certs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\nCertificate")
	if len(certs) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " to be renewed (%d):\n\n", len(certs))

	for i, cert := range certs {
		isLast := i == len(certs)-1
		prefix, indent := branch(isLast)

		fmt.Fprintf(&sb, "%s── %s (ID: %d)\n", prefix, displayName(cert), cert.ID)
		fmt.Fprintf(&sb, "%s%s\n", indent, expiryText(cert, now))
		if cert.AutoRenew {
			fmt.Fprintf(&sb, "%sAuto-renew is already enabled\n", indent)
		}

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatRenewResult formats the outcome of a batch renewal
func (f *ConsoleFormatter) FormatRenewResult(result BatchRenewResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nRenewed %d of %d certificate(s):\n\n", len(result.Successful), result.Requested)

	total := len(result.Successful) + len(result.Failed)
	n := 0
	for _, outcome := range result.Successful {
		n++
		prefix, indent := branch(n == total)
		fmt.Fprintf(&sb, "%s── %s (ID: %d)\n", prefix, outcome.CommonName, outcome.CertificateID)
		fmt.Fprintf(&sb, "%sRenewal: %d, new certificate: %d\n", indent, outcome.Renewal.ID, outcome.Renewal.NewCertificateID)
		if outcome.Issued != nil {
			fmt.Fprintf(&sb, "%sState: %s\n", indent, outcome.Issued.State)
		}
	}
	for _, failure := range result.Failed {
		n++
		prefix, indent := branch(n == total)
		fmt.Fprintf(&sb, "%s── %s (ID: %d)\n", prefix, failure.CommonName, failure.CertificateID)
		fmt.Fprintf(&sb, "%sFailed: %v\n", indent, failure.Err)
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatDownloadResult formats the files written by a batch download
func (f *ConsoleFormatter) FormatDownloadResult(result BatchDownloadResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nDownloaded %d of %d certificate(s):\n\n", len(result.Successful), result.Requested)

	total := len(result.Successful) + len(result.Failed)
	n := 0
	for _, bundle := range result.Successful {
		n++
		prefix, indent := branch(n == total)
		fmt.Fprintf(&sb, "%s── %s (ID: %d)\n", prefix, bundle.CommonName, bundle.CertificateID)
		for _, file := range bundle.Files {
			fmt.Fprintf(&sb, "%s%s\n", indent, filepath.Base(file))
		}
	}
	for _, failure := range result.Failed {
		n++
		prefix, indent := branch(n == total)
		fmt.Fprintf(&sb, "%s── certificate %d\n", prefix, failure.CertificateID)
		fmt.Fprintf(&sb, "%sFailed: %v\n", indent, failure.Err)
	}

	sb.WriteString("\n")
	return sb.String()
}

// formatCertificate formats a single certificate entry
func (f *ConsoleFormatter) formatCertificate(sb *strings.Builder, cert dnsimple.Certificate, isLast bool, options FormatOptions) {
	prefix, indent := branch(isLast)

	fmt.Fprintf(sb, "%s── %s (ID: %d)\n", prefix, displayName(cert), cert.ID)

	now := options.Now
	if now.IsZero() {
		now = time.Now()
	}

	statusParts := []string{fmt.Sprintf("State: %s", cert.State)}
	if cert.IsIssued() {
		statusParts = append(statusParts, expiryText(cert, now))
	}
	if cert.AutoRenew {
		statusParts = append(statusParts, "Auto-renew")
	}
	fmt.Fprintf(sb, "%s%s\n", indent, strings.Join(statusParts, " | "))

	if len(cert.AlternateNames) > 0 {
		fmt.Fprintf(sb, "%sAlternate names: %s\n", indent, strings.Join(cert.AlternateNames, ", "))
	}

	if options.ShowDetails {
		if cert.AuthorityIdentifier != "" {
			fmt.Fprintf(sb, "%sAuthority: %s\n", indent, cert.AuthorityIdentifier)
		}
		if cert.Years > 0 {
			fmt.Fprintf(sb, "%sYears: %d\n", indent, cert.Years)
		}
		if cert.CreatedAt != "" {
			fmt.Fprintf(sb, "%sCreated: %s\n", indent, cert.CreatedAt)
		}
		if cert.ContactID != 0 {
			fmt.Fprintf(sb, "%sContact: %d\n", indent, cert.ContactID)
		}
	}
}

// branch returns the tree prefix and continuation indent
func branch(isLast bool) (string, string) {
	if isLast {
		return "╰", "    "
	}
	return "├", "│   "
}

func displayName(cert dnsimple.Certificate) string {
	if cert.CommonName != "" {
		return cert.CommonName
	}
	return cert.Name
}

func expiryText(cert dnsimple.Certificate, now time.Time) string {
	days, ok := cert.DaysUntilExpiry(now)
	switch {
	case !ok:
		return "Expires: unknown"
	case days < 0:
		return fmt.Sprintf("Expired: %s (%d days ago)", cert.ExpiresOn, -days)
	case days == 1:
		return fmt.Sprintf("Expires: %s (in 1 day)", cert.ExpiresOn)
	}
	return fmt.Sprintf("Expires: %s (in %d days)", cert.ExpiresOn, days)
}
