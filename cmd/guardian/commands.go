package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/threat"
	"github.com/davidleathers/contact-guardian/internal/domain/values"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/config"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/telemetry"
	"github.com/davidleathers/contact-guardian/internal/service"
	"github.com/davidleathers/contact-guardian/internal/service/insights"
)

type globalOptions struct {
	configPath     string
	corpusPath     string
	signaturesPath string
	logLevel       string
	jsonOutput     bool
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Verify contacts and messages against the contact corpus",
		Long: `guardian classifies phone numbers, emails and websites against a
verified contact corpus, scores free-text messages for scam indicators and
looks up official services.`,
		SilenceUsage: true,
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	f.StringVar(&opts.corpusPath, "corpus", "", "Corpus file, overrides corpus.path")
	f.StringVar(&opts.signaturesPath, "signatures", "", "Signature file, overrides signatures.path")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	f.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")

	cmd.AddCommand(
		verifyCmd(opts),
		analyzeCmd(opts),
		searchCmd(opts),
		validateCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// load reads configuration, applies flag overrides and loads the corpus.
// A missing corpus falls back to the built-in sample with a warning.
func (o *globalOptions) load(cmd *cobra.Command) (*service.Services, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.corpusPath != "" {
		cfg.Corpus.Path = o.corpusPath
	}
	if o.signaturesPath != "" {
		cfg.Signatures.Path = o.signaturesPath
	}

	logger, err := telemetry.NewLogger(o.logLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}

	svc, err := service.NewServiceFactories(cfg, logger).Build(service.Options{})
	if err != nil {
		return nil, err
	}

	if _, err := svc.Store.Reload(cmd.Context()); err != nil {
		if svc.Store.Current() == nil {
			return nil, err
		}
		logger.Warn("using built-in sample corpus", zap.Error(err))
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; using built-in sample corpus\n", err)
	}
	return svc, nil
}

func (o *globalOptions) print(w io.Writer, v interface{}, text func(io.Writer)) error {
	if o.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func verifyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <phone|email|website|organization|general> <value>",
		Short: "Classify one identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := values.ParseContactKind(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q", args[0])
			}
			svc, err := opts.load(cmd)
			if err != nil {
				return err
			}

			res, err := svc.Verifier.Verify(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s: %s\n", res.Kind, res.Value, strings.ToUpper(string(res.RiskLevel)))
				fmt.Fprintf(w, "  %s\n", res.Message)
				if res.OrganizationName != "" {
					fmt.Fprintf(w, "  organization: %s (%s)\n", res.OrganizationName, res.OrganizationType)
				}
				fmt.Fprintf(w, "  confidence: %.2f  source: %s\n", res.ConfidenceScore, res.Source)
			})
		},
	}
}

func analyzeCmd(opts *globalOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Score a message for scam indicators",
		Long:  "Score a message for scam indicators. The text is read from the arguments, --file, or stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := messageText(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			svc, err := opts.load(cmd)
			if err != nil {
				return err
			}

			res, err := svc.Analyzer.Analyze(cmd.Context(), text)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "risk: %s\n", strings.ToUpper(string(res.RiskLevel)))
				if len(res.PhoneNumbers) > 0 {
					fmt.Fprintf(w, "phone numbers: %s\n", strings.Join(res.PhoneNumbers, ", "))
				}
				if len(res.URLs) > 0 {
					fmt.Fprintf(w, "urls: %s\n", strings.Join(res.URLs, ", "))
				}
				fmt.Fprintln(w, res.Details)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the message from a file")
	return cmd
}

func messageText(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(string(b)) == "" {
			return "", fmt.Errorf("no message given")
		}
		return string(b), nil
	}
}

func searchCmd(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		answer bool
	)

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Find official services matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			svc, err := opts.load(cmd)
			if err != nil {
				return err
			}

			if answer {
				ans, err := svc.Assistant.Answer(cmd.Context(), query)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), ans, func(w io.Writer) {
					fmt.Fprintln(w, ans.Text)
				})
			}

			results, err := svc.Assistant.Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), results, func(w io.Writer) {
				if len(results) == 0 {
					fmt.Fprintf(w, "no services found for %q\n", query)
					return
				}
				for i, r := range results {
					fmt.Fprintf(w, "%d. %s  %s  [%s] score=%d\n",
						i+1, r.Entry.ServiceName, r.Entry.PhoneNumber, r.Entry.Agency, r.Score)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")
	cmd.Flags().BoolVar(&answer, "answer", false, "Print the assistant answer instead of the ranking")
	return cmd
}

type validateReport struct {
	Source     string         `json:"source"`
	Version    string         `json:"version"`
	Loaded     int            `json:"loaded"`
	Skipped    int            `json:"skipped"`
	RowErrors  []string       `json:"row_errors,omitempty"`
	Conflicts  int            `json:"conflicts"`
	Stats      insights.Stats `json:"stats"`
	Signatures map[string]int `json:"signatures,omitempty"`
}

func validateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [corpus-file]",
		Short: "Load a corpus and signature file and report problems",
		Long: `Load a corpus and report skipped rows, identifiers recorded as both safe
and threat, and summary statistics. Fails when the corpus cannot be loaded
or the signature file is invalid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			path := cfg.Corpus.Path
			switch {
			case len(args) == 1:
				path = args[0]
			case opts.corpusPath != "":
				path = opts.corpusPath
			}
			if opts.signaturesPath != "" {
				cfg.Signatures.Path = opts.signaturesPath
			}

			factories := service.NewServiceFactories(cfg, zap.NewNop())
			holder, err := factories.CreateSignatureHolder()
			if err != nil {
				return fmt.Errorf("signatures: %w", err)
			}

			c, report, err := factories.CreateLoader().LoadFile(cmd.Context(), path)
			if err != nil {
				return err
			}

			out := validateReport{
				Source:     report.Source,
				Version:    report.Version,
				Loaded:     report.Loaded,
				Skipped:    report.Skipped,
				Conflicts:  len(insights.Conflicts(c)),
				Stats:      insights.ComputeStats(c),
				Signatures: signatureCounts(holder.Current()),
			}
			for _, re := range report.RowErrors {
				out.RowErrors = append(out.RowErrors, fmt.Sprintf("line %d: %s", re.Line, re.Reason))
			}

			return opts.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "corpus %s (version %s)\n", out.Source, out.Version)
				fmt.Fprintf(w, "  loaded: %d  skipped: %d\n", out.Loaded, out.Skipped)
				for _, e := range out.RowErrors {
					fmt.Fprintf(w, "  %s\n", e)
				}
				fmt.Fprintf(w, "  safe: %s%%  threats: %d  verified: %d\n",
					out.Stats.SafetyRate.StringFixed(2), out.Stats.Threats, out.Stats.Verified)
				fmt.Fprintf(w, "  conflicting identifiers: %d\n", out.Conflicts)
			})
		},
	}
}

func signatureCounts(s *threat.SignatureSet) map[string]int {
	if s == nil {
		return nil
	}
	return map[string]int{
		"scam_keywords":              len(s.ScamKeywords),
		"phishing_indicators":        len(s.PhishingIndicators),
		"legitimate_domain_suffixes": len(s.LegitimateDomainSuffixes),
		"impersonation_rules":        len(s.ImpersonationRules),
	}
}
