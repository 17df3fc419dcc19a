package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/dnscerts/certs"
	"github.com/s0up4200/dnscerts/dnsimple"
)

var (
	filterExpr  string
	showDetails bool
	keyOutput   string
	withinDays  int
)

func init() {
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(privateKeyCmd)
	rootCmd.AddCommand(expiringCmd)
	rootCmd.AddCommand(filtersCmd)

	listCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter preset name or expression")
	listCmd.Flags().BoolVar(&showDetails, "details", false, "show certificate details")

	privateKeyCmd.Flags().StringVarP(&keyOutput, "out", "o", "", "write the key to a file instead of stdout")

	expiringCmd.Flags().IntVar(&withinDays, "days", -1, "days until expiry (default is certificates.renew_within_days)")
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the connection to DNSimple",
	Long:  `Verify the access token and show the account it belongs to.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	fmt.Printf("Testing connection to DNSimple at %s...\n", client.BaseURL())

	identity, err := client.TestConnection(cmd.Context())
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Println("✓ Connection successful!")

	switch {
	case identity.Account != nil:
		fmt.Printf("- Account: %s (ID: %d)\n", identity.Account.Email, identity.Account.ID)
		if identity.Account.PlanIdentifier != "" {
			fmt.Printf("- Plan: %s\n", identity.Account.PlanIdentifier)
		}
	case identity.User != nil:
		fmt.Printf("- User: %s (ID: %d)\n", identity.User.Email, identity.User.ID)
	}

	if cfg.DNSimple.Sandbox {
		fmt.Println("- Environment: sandbox")
	}
	return nil
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List certificates matching the filter criteria",
	Long: `List the certificates of the configured domain, soonest expiry first.

The --filter flag accepts the name of a preset from the config file or an
expression, for example:

  dnscerts list -f 'isLetsencrypt() && expiresWithin(30)'
  dnscerts list -f 'hasName("www.example.com")'`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	if err := requireDomain(); err != nil {
		return err
	}

	certificates, err := selectCertificates(cmd.Context(), filterExpr)
	if err != nil {
		return err
	}

	if len(certificates) == 0 {
		fmt.Println("No certificates found matching the filter criteria.")
		return nil
	}

	fmt.Print(operations.Formatter().FormatCertificateList(certificates, certs.FormatOptions{
		ShowDetails: showDetails,
		Now:         operations.Now(),
	}))
	return nil
}

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <certificate-id>",
	Short: "Show a single certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	if err := requireDomain(); err != nil {
		return err
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	resp, err := client.GetCertificate(cmd.Context(), cfg.DNSimple.AccountID, cfg.Certificates.Domain, ids[0])
	if err != nil {
		return fmt.Errorf("failed to get certificate: %w", err)
	}

	fmt.Print(operations.Formatter().FormatCertificate(resp.Data, certs.FormatOptions{
		ShowDetails: true,
		Now:         operations.Now(),
	}))
	return nil
}

// privateKeyCmd represents the private-key command
var privateKeyCmd = &cobra.Command{
	Use:   "private-key <certificate-id>",
	Short: "Print the private key of a certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrivateKey,
}

func runPrivateKey(cmd *cobra.Command, args []string) error {
	if err := requireDomain(); err != nil {
		return err
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	resp, err := client.GetCertificatePrivateKey(cmd.Context(), cfg.DNSimple.AccountID, cfg.Certificates.Domain, ids[0])
	if err != nil {
		return fmt.Errorf("failed to get private key: %w", err)
	}

	if _, err := resp.Data.Parse(); err != nil {
		logger.Warn().Err(err).Int64("certificate_id", ids[0]).Msg("Private key could not be parsed")
	}

	pem := resp.Data.PrivateKey
	if !strings.HasSuffix(pem, "\n") {
		pem += "\n"
	}

	if keyOutput == "" {
		fmt.Print(pem)
		return nil
	}

	if err := os.WriteFile(keyOutput, []byte(pem), 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	logger.Info().Str("path", keyOutput).Msg("Private key written")
	return nil
}

// expiringCmd represents the expiring command
var expiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "List issued certificates that expire soon",
	RunE:  runExpiring,
}

func runExpiring(cmd *cobra.Command, args []string) error {
	if err := requireDomain(); err != nil {
		return err
	}

	days := withinDays
	if days < 0 {
		days = cfg.Certificates.RenewWithinDays
	}

	certificates, err := operations.ExpiringCertificates(cmd.Context(), days)
	if err != nil {
		return err
	}

	if len(certificates) == 0 {
		fmt.Printf("No certificates expire within %d days.\n", days)
		return nil
	}

	fmt.Print(operations.Formatter().FormatRenewalCandidates(certificates, operations.Now()))
	return nil
}

// filtersCmd represents the filters command
var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Show the filter presets and how many certificates each matches",
	RunE:  runFilters,
}

func runFilters(cmd *cobra.Command, args []string) error {
	names := filterManager.ListFilters()
	if len(names) == 0 {
		fmt.Println("No filter presets configured.")
		return nil
	}

	var matches map[string][]dnsimple.Certificate
	if cfg.Certificates.Domain != "" {
		all, err := operations.SearchCertificates(cmd.Context(), nil)
		if err != nil {
			return err
		}
		matches, err = filterManager.EvaluateAll(cmd.Context(), all)
		if err != nil {
			return err
		}
	}

	fmt.Printf("\nFilter presets (%d):\n", len(names))
	for _, name := range names {
		compiled, _ := filterManager.GetFilter(name)
		if matches != nil {
			fmt.Printf("  • %s: %s (%d matches)\n", name, compiled.Expression(), len(matches[name]))
			continue
		}
		fmt.Printf("  • %s: %s\n", name, compiled.Expression())
	}
	return nil
}
