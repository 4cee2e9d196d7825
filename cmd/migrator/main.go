package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/linemk/commerce-core/internal/config"
)

const migrationsTable = "schema_migrations"

// buildMigrateDSN adds the migrations table parameter understood by golang-migrate
func buildMigrateDSN(dbCfg config.DatabaseConfig, table string) string {
	return fmt.Sprintf("%s&x-migrations-table=%s", dbCfg.DSN(), table)
}

func main() {
	var migrationsPathFlag string
	var down bool
	flag.StringVar(&migrationsPathFlag, "migrations-path", "", "path to migration files")
	flag.BoolVar(&down, "down", false, "roll back every migration")

	// MustLoad parses the flags
	cfg := config.MustLoad()

	migrationsPath := cfg.Migrations.Path
	if migrationsPathFlag != "" {
		migrationsPath = migrationsPathFlag
	}

	m, err := migrate.New("file://"+migrationsPath, buildMigrateDSN(cfg.Database, migrationsTable))
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	apply := m.Up
	if down {
		apply = m.Down
	}

	if err := apply(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migration failed: %v", err)
		}
		log.Println("no migrations to apply")
	} else {
		log.Println("migrations applied successfully")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`)
	if err != nil {
		log.Fatalf("failed to query tables: %v", err)
	}
	defer rows.Close()

	fmt.Println("Current tables in the database:")
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			log.Fatalf("failed to scan row: %v", err)
		}
		fmt.Println(" -", tableName)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("error reading rows: %v", err)
	}
}
