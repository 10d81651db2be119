package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/billix/billix/internal/clickhouse"
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Applies the SQL files under migrations/ in lexical order. Statements are
// written to be re-runnable (IF NOT EXISTS), so there is no version table.
func main() {
	dir := flag.String("dir", "migrations", "Directory containing migration SQL files")
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := migratePostgres(ctx, cfg, filepath.Join(*dir, "postgres"), *dryRun); err != nil {
		logger.Fatalw("Postgres migration failed", "error", err)
	}

	if cfg.ClickHouse.Enabled {
		if err := migrateClickHouse(ctx, cfg, filepath.Join(*dir, "clickhouse"), *dryRun); err != nil {
			logger.Fatalw("ClickHouse migration failed", "error", err)
		}
	}

	logger.Info("Migration completed successfully")
}

func migratePostgres(ctx context.Context, cfg *config.Configuration, dir string, dryRun bool) error {
	files, err := sqlFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	if dryRun {
		return printFiles(files)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

func migrateClickHouse(ctx context.Context, cfg *config.Configuration, dir string, dryRun bool) error {
	files, err := sqlFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	if dryRun {
		return printFiles(files)
	}

	store, err := clickhouse.NewStore(cfg)
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer store.Close()

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if err := store.Conn().Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

func sqlFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func printFiles(files []string) error {
	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		fmt.Printf("-- %s\n%s\n", filepath.Base(file), sql)
	}
	return nil
}
