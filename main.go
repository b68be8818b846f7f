package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chatrelay/config"
	"chatrelay/db"
	"chatrelay/filestore"
	"chatrelay/logging"
	"chatrelay/server"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "chatrelay",
		Short:        "Session and presence server for the chat clients",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")

	root.AddCommand(serveCmd(), ctlCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if removed, err := database.CleanExpiredSessions(); err != nil {
		logger.Warn("failed to clean expired sessions", "error", err)
	} else if removed > 0 {
		logger.Info("cleaned expired sessions", "removed", removed)
	}

	files, err := filestore.New(cfg.FileDir)
	if err != nil {
		return fmt.Errorf("open file store: %w", err)
	}

	srv := server.New(database, files, &server.Config{
		Port:         cfg.Port,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		MaxConns:     cfg.MaxConns,
	}, logger)

	if err := srv.ServeControl(cfg.ControlSocket); err != nil {
		return fmt.Errorf("open control socket: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", "signal", sig.String())
		srv.Shutdown()
	}()

	return srv.Start()
}

func ctlCmd() *cobra.Command {
	ctl := &cobra.Command{
		Use:   "ctl",
		Short: "Talk to a running server over its control socket",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print live connection stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return controlRequest("stats")
		},
	}
	shutdown := &cobra.Command{
		Use:   "shutdown",
		Short: "Stop the running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return controlRequest("shutdown")
		},
	}

	ctl.AddCommand(stats, shutdown)
	return ctl
}

func controlRequest(command string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("unix", cfg.ControlSocket, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect to control socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return err
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Print(line)
	return nil
}
