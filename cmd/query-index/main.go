// Command query-index prints the stored chunks nearest to a question.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/logger"
	"docqa/internal/service"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "query-index [question]",
		Short:        "Print the indexed chunks nearest to a question",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := readQuestion(cmd.InOrStdin(), cmd.OutOrStdout(), args)
			if err != nil {
				return err
			}
			if question == "" {
				fmt.Fprintln(cmd.OutOrStdout(), service.MsgEmptyQuestion)
				return nil
			}
			return run(cmd, configPath, question)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	return root
}

// readQuestion joins the arguments, or prompts on in when there are none.
func readQuestion(in io.Reader, out io.Writer, args []string) (string, error) {
	if q := strings.TrimSpace(strings.Join(args, " ")); q != "" {
		return q, nil
	}
	fmt.Fprint(out, "Ask a question: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func run(cmd *cobra.Command, configPath, question string) error {
	cfg, _, err := config.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	emb, err := embedding.New(cfg.Standalone.Embedder, log)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	matches, err := service.NewOffline(cfg.Standalone, emb, log.Named("offline")).Query(cmd.Context(), question)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, m := range matches {
		fmt.Fprintf(out, "Chunk %d: %s\n", i+1, service.Preview(m.Chunk.Text, cfg.Standalone.PreviewLen))
	}
	return nil
}
