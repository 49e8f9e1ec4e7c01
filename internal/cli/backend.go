package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgellow/research-hub/internal"
	"github.com/dgellow/research-hub/internal/config"
	"github.com/dgellow/research-hub/internal/log"
	"github.com/dgellow/research-hub/internal/storage"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log.LogInfoWithFields("main", "Starting research-hub", map[string]any{
		"version": BuildVersion,
		"config":  serveConfig,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := internal.NewResearchHub(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create research hub: %w", err)
	}
	return app.Run(ctx)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := writeTemplate(path); err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Generated default config at: %s\n", green("✓"), path)
	return nil
}

func writeTemplate(path string) error {
	data, err := json.MarshalIndent(config.Template(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	result, err := config.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("error during validation: %w", err)
	}
	return writeValidationReport(cmd.OutOrStdout(), path, result)
}

// writeValidationReport prints errors then warnings and fails when either
// is present.
func writeValidationReport(w io.Writer, path string, result *config.ValidationResult) error {
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintf(w, "Validating: %s\n", path)

	printIssues := func(title string, issues []config.ValidationError, paint func(a ...any) string) {
		if len(issues) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s (%d):\n", paint(title), len(issues))
		for _, issue := range issues {
			if issue.Path != "" {
				fmt.Fprintf(w, "  - %s: %s\n", issue.Path, issue.Message)
			} else {
				fmt.Fprintf(w, "  - %s\n", issue.Message)
			}
		}
	}
	printIssues("Errors", result.Errors, red)
	printIssues("Warnings", result.Warnings, yellow)

	fmt.Fprintln(w)
	switch {
	case len(result.Errors) == 0 && len(result.Warnings) == 0:
		fmt.Fprintf(w, "Result: %s\n", green("PASS"))
		return nil
	case len(result.Errors) == 0:
		fmt.Fprintf(w, "Result: %s\n", yellow("FAIL (warnings present)"))
	default:
		fmt.Fprintf(w, "Result: %s\n", red("FAIL"))
	}
	return fmt.Errorf("validation failed: %d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
}

func runStoreList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(storeConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	store, err := internal.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := store.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("No profiles stored.")
		return nil
	}
	return writeProfileTable(cmd.OutOrStdout(), docs)
}

func writeProfileTable(out io.Writer, docs []*storage.ProfileDocument) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORCID\tINSTITUTION\tDEPARTMENT\tUPDATED")
	for _, doc := range docs {
		updated := "-"
		if !doc.Metadata.LastUpdated.IsZero() {
			updated = doc.Metadata.LastUpdated.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			doc.ORCID,
			orDash(truncate(doc.AdditionalData.Institution, 30)),
			orDash(truncate(doc.AdditionalData.Department, 30)),
			updated,
		)
	}
	return w.Flush()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
