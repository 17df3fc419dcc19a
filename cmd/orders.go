package cmd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/s0up4200/dnscerts/certs"
	"github.com/s0up4200/dnscerts/dnsimple"
)

var (
	// purchase flags
	certName           string
	alternateNames     []string
	contactID          int64
	autoRenew          bool
	signatureAlgorithm string
	issueNow           bool

	// renew flags
	renewExpiring bool
	renewFilter   string
	assumeYes     bool

	// download flags
	outputDir      string
	includeKey     bool
	downloadFilter string
)

func init() {
	rootCmd.AddCommand(purchaseCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(renewCmd)
	rootCmd.AddCommand(downloadCmd)

	purchaseCmd.Flags().StringVar(&certName, "name", "", "certificate name, the part before the domain (empty for the apex)")
	purchaseCmd.Flags().StringSliceVar(&alternateNames, "alt", nil, "alternate names, repeatable")
	purchaseCmd.Flags().Int64Var(&contactID, "contact", 0, "contact id (default is certificates.contact_id)")
	purchaseCmd.Flags().BoolVar(&autoRenew, "auto-renew", false, "let DNSimple renew the certificate automatically")
	purchaseCmd.Flags().StringVar(&signatureAlgorithm, "signature-algorithm", "", "signature algorithm (ECDSA or RSA)")
	purchaseCmd.Flags().BoolVar(&issueNow, "issue", false, "request issuance right after the purchase")

	renewCmd.Flags().BoolVar(&renewExpiring, "expiring", false, "renew every certificate expiring within certificates.renew_within_days")
	renewCmd.Flags().StringVarP(&renewFilter, "filter", "f", "", "renew certificates matching a filter preset or expression")
	renewCmd.Flags().IntVar(&withinDays, "days", -1, "days until expiry used with --expiring")
	renewCmd.Flags().BoolVar(&issueNow, "issue", false, "request issuance right after each renewal")
	renewCmd.Flags().BoolVar(&autoRenew, "auto-renew", false, "enable auto renewal on the renewed certificates")
	renewCmd.Flags().StringVar(&signatureAlgorithm, "signature-algorithm", "", "signature algorithm (ECDSA or RSA)")
	renewCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")

	downloadCmd.Flags().StringVar(&outputDir, "dir", "", "output directory (default is certificates.output_dir)")
	downloadCmd.Flags().BoolVar(&includeKey, "key", false, "also download the private key")
	downloadCmd.Flags().StringVarP(&downloadFilter, "filter", "f", "", "download issued certificates matching a filter preset or expression")
}

// purchaseCmd represents the purchase command
var purchaseCmd = &cobra.Command{
	Use:   "purchase",
	Short: "Order a new Let's Encrypt certificate",
	Long: `Order a new Let's Encrypt certificate for the configured domain.

A purchased certificate is not issued until 'dnscerts issue <id>' is run, or
--issue is passed.`,
	RunE: runPurchase,
}

func runPurchase(cmd *cobra.Command, args []string) error {
	if err := requireDomain(); err != nil {
		return err
	}

	contact := contactID
	if contact == 0 {
		contact = cfg.Certificates.ContactID
	}

	opts := certs.PurchaseOptions{
		Attributes: dnsimple.LetsencryptCertificateAttributes{
			ContactID:          contact,
			Name:               certName,
			AutoRenew:          autoRenew || cfg.Certificates.AutoRenew,
			AlternateNames:     alternateNames,
			SignatureAlgorithm: signatureAlgorithm,
		},
		Issue:  issueNow,
		DryRun: cfg.Safety.DryRun,
	}

	result, err := operations.PurchaseCertificate(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	fmt.Printf("\n✓ Purchased certificate %d (purchase %d, state %s)\n",
		result.Purchase.CertificateID, result.Purchase.ID, result.Purchase.State)
	if result.Issued != nil {
		fmt.Printf("✓ Issuance requested, state %s\n", result.Issued.State)
	} else {
		fmt.Printf("Run 'dnscerts issue %d' to request issuance.\n", result.Purchase.CertificateID)
	}
	return nil
}

// issueCmd represents the issue command
var issueCmd = &cobra.Command{
	Use:   "issue <certificate-id>",
	Short: "Request issuance of a purchased Let's Encrypt certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  runIssue,
}

func runIssue(cmd *cobra.Command, args []string) error {
	if err := requireDomain(); err != nil {
		return err
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	if cfg.Safety.DryRun {
		logger.Info().Int64("certificate_id", ids[0]).Msg("DRY RUN MODE - Issuance not requested")
		return nil
	}

	cert, err := operations.IssueCertificate(cmd.Context(), ids[0])
	if err != nil {
		return err
	}

	fmt.Printf("✓ Issuance requested for certificate %d, state %s\n", cert.ID, cert.State)
	return nil
}

// renewCmd represents the renew command
var renewCmd = &cobra.Command{
	Use:   "renew [certificate-id...]",
	Short: "Renew Let's Encrypt certificates",
	Long: `Purchase a renewal for each selected Let's Encrypt certificate and
optionally request its issuance.

Certificates are selected by id, with --expiring, or with --filter:

  dnscerts renew 101967 101972
  dnscerts renew --expiring --days 14 --issue
  dnscerts renew -f 'isLetsencrypt() && !AutoRenew && expiresWithin(30)'`,
	RunE: runRenew,
}

func runRenew(cmd *cobra.Command, args []string) error {
	if err := requireDomain(); err != nil {
		return err
	}

	ctx := cmd.Context()
	var selected []dnsimple.Certificate

	switch {
	case len(args) > 0:
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		selected, err = operations.SearchCertificates(ctx, func(cert dnsimple.Certificate) bool {
			return slices.Contains(ids, cert.ID)
		})
		if err != nil {
			return err
		}
		if len(selected) != len(ids) {
			return fmt.Errorf("found %d of %d certificates", len(selected), len(ids))
		}
	case renewExpiring:
		days := withinDays
		if days < 0 {
			days = cfg.Certificates.RenewWithinDays
		}
		var err error
		selected, err = operations.ExpiringCertificates(ctx, days)
		if err != nil {
			return err
		}
	case renewFilter != "":
		var err error
		selected, err = selectCertificates(ctx, renewFilter)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("specify certificate ids, --expiring or --filter")
	}

	if len(selected) == 0 {
		fmt.Println("No certificates to renew.")
		return nil
	}

	confirm, err := requireConfirmation(assumeYes)
	if err != nil {
		return err
	}

	result, err := operations.RenewCertificates(ctx, selected, certs.RenewOptions{
		DryRun:             cfg.Safety.DryRun,
		Confirm:            confirm,
		Issue:              issueNow,
		AutoRenew:          autoRenew || cfg.Certificates.AutoRenew,
		SignatureAlgorithm: signatureAlgorithm,
	})
	if errors.Is(err, certs.ErrCancelled) {
		return nil
	}
	if len(result.Successful)+len(result.Failed) > 0 {
		fmt.Print(operations.Formatter().FormatRenewResult(result))
	}
	return err
}

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download [certificate-id...]",
	Short: "Download certificate bundles as PEM files",
	Long: `Write <name>.crt, <name>.chain.crt and, with --key, <name>.key for each
selected certificate. Only issued certificates can be downloaded.`,
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	if err := requireDomain(); err != nil {
		return err
	}

	ctx := cmd.Context()
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	if downloadFilter != "" {
		selected, err := selectCertificates(ctx, downloadFilter)
		if err != nil {
			return err
		}
		for _, cert := range selected {
			if cert.IsIssued() && !slices.Contains(ids, cert.ID) {
				ids = append(ids, cert.ID)
			}
		}
	}

	if len(ids) == 0 {
		return fmt.Errorf("specify certificate ids or --filter")
	}

	dir := outputDir
	if dir == "" {
		dir = cfg.Certificates.OutputDir
	}

	result, err := operations.DownloadBundles(ctx, ids, dir, includeKey)
	if result.Requested > 0 {
		fmt.Print(operations.Formatter().FormatDownloadResult(result))
	}
	return err
}
