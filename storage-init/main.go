package main

import (
	"context"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/rajan-marasini/task-kanban/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	cols, err := storage.LoadSeed(os.Getenv("COLUMNS_FILE"))
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	ctx := context.Background()
	var repo storage.Repository

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	sqlitePath := os.Getenv("SQLITE_PATH")
	switch {
	case connStr != "":
		tables, err := storage.NewTables(connStr, envOr("COLUMNS_TABLE", "Columns"), envOr("TASKS_TABLE", "Tasks"), envOr("BOARD_ID", "default"))
		if err != nil {
			log.Fatalf("tables: %v", err)
		}
		if err := tables.EnsureTables(ctx); err != nil {
			log.Fatalf("create tables: %v", err)
		}
		if name := os.Getenv("CHANGES_QUEUE"); name != "" {
			q, err := storage.NewQueuePublisher(connStr, name)
			if err != nil {
				log.Fatalf("queue: %v", err)
			}
			if err := q.EnsureQueue(ctx); err != nil {
				log.Fatalf("create queue: %v", err)
			}
		}
		repo = tables
	case sqlitePath != "":
		db, err := storage.OpenSQLite(sqlitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		defer db.Close()
		repo = db
	default:
		log.Fatal("missing STORAGE_CONNECTION_STRING or SQLITE_PATH")
	}

	n, err := storage.Seed(ctx, repo, cols)
	if err != nil {
		log.Fatalf("seed columns: %v", err)
	}
	log.WithField("created", n).Info("storage init complete")
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
