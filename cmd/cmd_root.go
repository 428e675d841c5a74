// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})

	// .env is optional, real environments set the variables directly
	_ = godotenv.Load()
}

var rootCmd = &cobra.Command{
	Use:   "prasat",
	Short: "Cambodian heritage destinations backend",
	Long: `
prasat serves and curates a catalog of Cambodian heritage destinations:
temples, museums, monuments and historical sites, with nearby search that
blends the curated catalog with live place discovery.
`,
}

var dbPath string

var Version = "dev"

func init() {
	rootCmd.PersistentFlags().StringVar(
		&dbPath,
		"db",
		"db",
		"directory holding the duckdb database",
	)
}

func openDatabase() (*sql.DB, error) {
	if err := os.MkdirAll(dbPath, 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(dbPath, "prasat.duckdb"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
