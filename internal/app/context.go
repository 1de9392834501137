package app

import (
	"context"
	"database/sql"
	"fmt"

	"checkline/internal/config"
	"checkline/internal/db"
	"checkline/internal/engine"
	"checkline/internal/migrate"
)

// Open resolves the workspace into a ready engine: database opened and
// migrated, config loaded (falling back to defaults when checkline.yml
// is absent), configured categories seeded.
func Open(ctx context.Context, workspace, actorID string) (engine.Engine, *sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	eng := engine.New(conn, cfg)
	if err := eng.EnsureCategories(ctx, actorID); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("seed categories: %w", err)
	}
	return eng, conn, nil
}
