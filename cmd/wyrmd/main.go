// Package main provides the WyrmDB CLI entry point.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wyrmgraph/wyrm/pkg/config"
	"github.com/wyrmgraph/wyrm/pkg/graphdb"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "wyrmd",
		Short: "WyrmDB - a small property-graph database with a Neo4j-flavored Cypher subset",
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wyrmd v%s\n", version)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the WyrmDB HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("data-dir", "./wyrmdb.db", "SQLite data file (or :memory:)")
	serveCmd.Flags().Int("http-port", 7474, "HTTP API port")
	serveCmd.Flags().String("seed-file", "", "YAML seed file to import on first start")
	serveCmd.Flags().Bool("no-auth", true, "Disable HTTP Basic-Auth")
	serveCmd.Flags().String("admin-password", "password", "Admin password, when auth is enabled")
	rootCmd.AddCommand(serveCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new WyrmDB database file",
		RunE:  runInit,
	}
	initCmd.Flags().String("data-dir", "./wyrmdb.db", "SQLite data file to create")
	rootCmd.AddCommand(initCmd)

	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive Cypher shell against a local database file",
		RunE:  runShell,
	}
	shellCmd.Flags().String("data-dir", "./wyrmdb.db", "SQLite data file")
	rootCmd.AddCommand(shellCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configFromFlags(cmd *cobra.Command) *config.Config {
	cfg := config.LoadFromEnv()

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.Database.DataSource = dataDir
	}
	if httpPort, err := cmd.Flags().GetInt("http-port"); err == nil && cmd.Flags().Changed("http-port") {
		cfg.Server.Port = httpPort
	}
	if seedFile, err := cmd.Flags().GetString("seed-file"); err == nil && seedFile != "" {
		cfg.Database.SeedFile = seedFile
	}
	if noAuth, err := cmd.Flags().GetBool("no-auth"); err == nil {
		cfg.Auth.Enabled = !noAuth
	}
	if adminPassword, err := cmd.Flags().GetString("admin-password"); err == nil && adminPassword != "" {
		cfg.Auth.AdminPassword = adminPassword
	}

	return cfg
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := configFromFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	db, err := graphdb.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Server().Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	log.Printf("wyrmd listening on %s", db.Server().Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return db.Server().Stop(shutdownCtx)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := configFromFlags(cmd)
	ctx := context.Background()

	db, err := graphdb.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	fmt.Printf("initialized %s\n", cfg.Database.DataSource)
	return nil
}

// runShell is a minimal interactive Cypher REPL: it reads one query per
// line from stdin and prints the resulting records as JSON, running
// directly against the executor rather than over HTTP.
func runShell(cmd *cobra.Command, args []string) error {
	cfg := configFromFlags(cmd)
	ctx := context.Background()

	db, err := graphdb.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	fmt.Println("wyrmd shell — type Cypher queries, 'exit' to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("wyrm> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		result, err := db.Executor().Execute(ctx, line, nil, nil)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		out, _ := json.MarshalIndent(result.Records, "", "  ")
		fmt.Println(string(out))
	}

	return scanner.Err()
}
