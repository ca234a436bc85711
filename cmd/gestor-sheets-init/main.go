// Command gestor-sheets-init creates the ledger tabs, with their header
// rows, in the configured spreadsheet.
package main

import (
	"context"
	"os"
	"time"

	"gestor/internal/cli"
	"gestor/internal/log"
	gsheet "gestor/internal/sheets/google"
	"gestor/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentSheets)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	created, err := client.EnsureTables(ctx, store.Tables())
	if err != nil {
		logger.Error("Failed to create tables", log.FieldError, err, "created", created)
		os.Exit(1)
	}
	if len(created) == 0 {
		logger.Info("All tables already exist")
		return
	}
	logger.Info("Tables created", "tables", created)
}
