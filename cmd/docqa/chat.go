package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/config"
	"docqa/internal/logger"
	"docqa/internal/metrics"
	"docqa/internal/service"
	"docqa/internal/tui"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive terminal chat",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, path, err := config.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// The terminal belongs to the UI, so logs go to a file.
	if cfg.Log.File == "" {
		cfg.Log.File = defaultLogFile()
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting chat", zap.String("config", path), zap.String("store", cfg.VectorStore.Type))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := service.NewComponents(cfg, log, metrics.New())
	if err != nil {
		return err
	}
	session, err := components.NewSession(ctx, cfg.VectorStore.Collection)
	if err != nil {
		return err
	}
	defer session.Close()

	banner := fmt.Sprintf("No document loaded. Store: %s/%s", cfg.VectorStore.Type, cfg.VectorStore.Collection)
	p := tea.NewProgram(tui.New(ctx, session, banner), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "docqa", "docqa.log")
}
