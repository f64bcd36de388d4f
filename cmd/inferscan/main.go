package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemos-ai/mnemos/internal/config"
	"github.com/mnemos-ai/mnemos/internal/core/inference"
	"github.com/mnemos-ai/mnemos/internal/driver"
	"github.com/mnemos-ai/mnemos/internal/logging"
)

var (
	cfgPath string
	since   string
	limit   int
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "inferscan",
	Short: "Scan committed facts for relations they imply",
	Long: `inferscan walks company facts that have no valid employment relation
and creates the implied relation when the organization can be matched.
With --dry-run it reports what would be created without writing.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", "config/config.toml", "path to config file")
	rootCmd.Flags().StringVar(&since, "since", "", "only scan facts created after this RFC3339 timestamp")
	rootCmd.Flags().IntVar(&limit, "limit", 0, "max facts to process (0 = no limit)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report inferred relations without creating them")
}

func run(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "loaded .env")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	opts := inference.Options{Limit: limit, DryRun: dryRun}
	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		opts.Since = t
	}

	ctx := context.Background()
	d, err := driver.NewMemgraphDriver(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to graph store: %w", err)
	}
	defer d.Close(ctx)

	scanner := inference.NewScanner(driver.NewStore(d, logger), cfg.Resolution.InferenceThreshold, logger)
	report, err := scanner.Scan(ctx, opts)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	logger.Info("scan complete",
		zap.Int("processed", report.Processed),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)),
		zap.Bool("dry_run", report.DryRun))

	for _, rel := range report.Relations {
		fmt.Printf("%s -> %s (%s, confidence %.2f)\n",
			rel.EntityID, rel.OrganizationName, rel.RelationType, rel.Confidence)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "fact %s: %s\n", e.FactID, e.Error)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
