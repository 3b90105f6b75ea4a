// Command build-index extracts the text of one PDF and writes the standalone
// chunk file and flat vector index.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/logger"
	"docqa/internal/service"
	"docqa/internal/source"
)

func main() {
	_ = godotenv.Load()

	var configPath string
	root := &cobra.Command{
		Use:          "build-index [pdf-path]",
		Short:        "Build the standalone vector index from a PDF",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := prompt(cmd, "Enter the path to your PDF file: ")
				if err != nil {
					return err
				}
				path = p
			}
			return run(cmd, configPath, path)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func run(cmd *cobra.Command, configPath, pdfPath string) error {
	if pdfPath == "" {
		return errors.New("no PDF path given")
	}
	cfg, _, err := config.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	text, err := source.NewPDFExtractor(cfg.Sources.PDF.LicenseKeyEnv, log.Named("pdf")).ExtractFile(pdfPath)
	if err != nil {
		return fmt.Errorf("extract %s: %w", pdfPath, err)
	}
	emb, err := embedding.New(cfg.Standalone.Embedder, log)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	report, err := service.NewOffline(cfg.Standalone, emb, log.Named("offline")).Build(cmd.Context(), text)
	if errors.Is(err, service.ErrNoText) {
		fmt.Fprintln(cmd.OutOrStdout(), "No extractable text found in PDF.")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("index built",
		zap.Int("chunks", report.Chunks),
		zap.Int("indexed", report.Indexed),
		zap.Int("dimension", report.Dimension))
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d of %d chunks into %s and %s.\n",
		report.Indexed, report.Chunks, cfg.Standalone.ChunksFile, cfg.Standalone.IndexFile)
	return nil
}
