package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "docqa",
		Short: "Ask questions about a PDF, Wikipedia article or Notion page",
		Long: "docqa indexes a document into a vector store and answers questions about it\n" +
			"with a chat model. Without a subcommand it starts the terminal chat.",
		SilenceUsage: true,
		RunE:         runChat,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ./config.yaml, then ~/.config/docqa/config.yaml)")

	root.AddCommand(chatCmd())
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
