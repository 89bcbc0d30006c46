package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
	"github.com/community-scripts/dataset-dashboard/internal/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := loadConfig()

	rootCmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Serve and prepare dataset documents for the browser dashboard",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newServeCmd(&cfg),
		newInspectCmd(),
		newReduceCmd(),
		newExportCmd(),
		newBuildCmd(&cfg),
	)
	return rootCmd
}

func newServeCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard pages, documents and summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := observability.NewLoggerWithLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *cfg, logger)
		},
	}
	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Listen address")
	cmd.Flags().StringVar(&cfg.DocumentsDir, "documents", cfg.DocumentsDir, "Directory holding dataset documents")
	cmd.Flags().StringVar(&cfg.WasmDir, "wasm-dir", cfg.WasmDir, "Directory holding dashboard.wasm and wasm_exec.js")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect [document.json]",
		Short: "Print the categories and datasets of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := dashboard.ReadFile(args[0])
			if err != nil {
				return err
			}
			summary := Summarize(args[0], doc)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return writeSummaryText(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func newReduceCmd() *cobra.Command {
	opts := ReduceOptions{SampleSize: defaultSampleSize, MaxDepth: defaultMaxDepth}
	var outputPath string
	cmd := &cobra.Command{
		Use:   "reduce [input.json]",
		Short: "Write a sampled copy of a large JSON file",
		Long: `reduce keeps the first entries of every array and object and replaces
values nested beyond the maximum depth, writing {name}_reduced.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			if outputPath == "" {
				outputPath = ReducedPath(args[0])
			}
			out, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			if err := ReduceJSON(in, out, opts); err != nil {
				_ = out.Close()
				_ = os.Remove(outputPath)
				return fmt.Errorf("reduce %s: %w", args[0], err)
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reduced JSON saved to %s\n", outputPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.SampleSize, "sample", opts.SampleSize, "Entries kept per array and object")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", opts.MaxDepth, "Maximum nesting depth kept")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: {name}_reduced.json beside the input)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "export [document.json]",
		Short: "Export every dataset of a document to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := dashboard.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := BuildWorkbook(doc)
			if err != nil {
				return fmt.Errorf("build workbook: %w", err)
			}
			defer f.Close()
			if err := f.SaveAs(outputPath); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workbook saved to %s\n", outputPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "datasets.xlsx", "Output workbook path")
	return cmd
}

func newBuildCmd(cfg *Config) *cobra.Command {
	var reportPath string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compute dataset documents from SQL queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := observability.NewLoggerWithLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			return runBuild(cmd.Context(), reportPath, logger)
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "report.yaml", "Report definition (YAML)")
	return cmd
}

func runBuild(ctx context.Context, reportPath string, logger *zap.Logger) error {
	report, err := loadReport(reportPath)
	if err != nil {
		return err
	}
	db, err := openReportDB(report.Driver, report.DSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	written, err := NewPrecomputer(db, logger.Named("build")).Run(ctx, report)
	logger.Info("build finished", zap.Int("documents", len(written)), zap.Strings("paths", written))
	return err
}
