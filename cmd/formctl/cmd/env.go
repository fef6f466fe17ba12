package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/templui/formdesk/internal/config"
	"github.com/templui/formdesk/internal/db"
	"github.com/templui/formdesk/internal/logger"
)

// setup loads tool configuration and opens the database.
func setup() (*config.Config, *sqlx.DB, error) {
	cfg := config.LoadTool()
	logger.Init(logger.Options{Dev: true})

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, database, nil
}
