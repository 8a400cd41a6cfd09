package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"agencydesk/internal/config"
	"agencydesk/internal/db"
	"agencydesk/internal/engine"
	"agencydesk/internal/migrate"
)

// Workspace is an opened, migrated agencydesk workspace with its engine.
type Workspace struct {
	Dir    string
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

// Open prepares the workspace directory, migrates the database to the latest schema,
// loads agencydesk.yml (defaults when absent) and builds the engine over it.
func Open(ctx context.Context, dir string, logger *slog.Logger) (*Workspace, error) {
	if _, err := db.EnsureWorkspace(dir); err != nil {
		return nil, fmt.Errorf("prepare workspace: %w", err)
	}
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applied, err := migrate.Apply(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if applied > 0 {
		logger.Debug("applied migrations", "count", applied, "path", db.Path(db.Config{Workspace: dir}))
	}
	e := engine.New(conn, cfg)
	e.Logger = logger
	return &Workspace{Dir: dir, DB: conn, Config: cfg, Engine: e}, nil
}

func (w *Workspace) Close() error {
	if w == nil || w.DB == nil {
		return nil
	}
	return w.DB.Close()
}
