package data

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nimishshah/portfolio_engine/config"
)

const (
	defaultConnAttemts = 10
	connTimeout        = time.Second
)

// NewDbClient connects to postgres when DATABASE_URL is set, otherwise falls
// back to a local sqlite file. Either way migrations run before the handle is
// returned.
func NewDbClient(cfg *config.Config) *sqlx.DB {
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		db = newPostgresClient(cfg)
	} else {
		db = newSqliteClient(cfg)
	}

	addColumnMigrations(db)
	return db
}

func newPostgresClient(cfg *config.Config) *sqlx.DB {
	connAttempts := defaultConnAttemts
	var db *sqlx.DB
	var err error

	for connAttempts > 0 {
		db, err = sqlx.Connect("pgx", cfg.DatabaseURL)
		if err == nil {
			break
		}

		slog.Info("Postgres is trying to connect", slog.Int("attempts left", connAttempts))

		time.Sleep(connTimeout)

		connAttempts--
	}

	if err != nil {
		slog.Error("Postgres connAttempts = 0")
		panic(err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second)
	if err = db.Ping(); err != nil {
		slog.Error("Postgres dbPing error")
		panic(err)
	}
	slog.Info("Postgres connected")

	migratePostgres(db, cfg.Postgres.MigrationDir)
	slog.Info("postgres migrated successfully")

	return db
}

func newSqliteClient(cfg *config.Config) *sqlx.DB {
	db, err := sqlx.Connect("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", cfg.Sqlite.Path))
	if err != nil {
		slog.Error("sqlite connect error", slog.String("err", err.Error()))
		panic(err)
	}

	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	slog.Info("Sqlite connected", slog.String("path", cfg.Sqlite.Path))

	migrateSqlite(db, cfg.Sqlite.MigrationDir)
	slog.Info("sqlite migrated successfully")

	return db
}

func migratePostgres(db *sqlx.DB, migrationDir string) {
	driver, err := migratepostgres.WithInstance(db.DB, &migratepostgres.Config{})
	if err != nil {
		slog.Error("postgres migration failed on postgres.WithInstance", slog.String("err", err.Error()))
		panic(err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationDir),
		"postgres",
		driver,
	)
	if err != nil {
		slog.Error("postgres migration failed on migrate.NewWithDatabaseInstance", slog.String("err", err.Error()))
		panic(err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("postgres migration failed on m.Up()", slog.String("err", err.Error()))
		panic(err)
	}
}

func migrateSqlite(db *sqlx.DB, migrationDir string) {
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		slog.Error("sqlite migration failed on sqlite3.WithInstance", slog.String("err", err.Error()))
		panic(err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationDir),
		"sqlite3",
		driver,
	)
	if err != nil {
		slog.Error("sqlite migration failed on migrate.NewWithDatabaseInstance", slog.String("err", err.Error()))
		panic(err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("sqlite migration failed on m.Up()", slog.String("err", err.Error()))
		panic(err)
	}
}

// addColumnMigrations patches schemas created before these columns existed.
// ADD COLUMN fails when the column is already there, so errors are ignored.
func addColumnMigrations(db *sqlx.DB) {
	alters := []string{
		`ALTER TABLE transactions ADD COLUMN cost_basis_at_sell DOUBLE PRECISION`,
		`ALTER TABLE holdings ADD COLUMN sector TEXT`,
		`ALTER TABLE portfolios ADD COLUMN tenant_id TEXT NOT NULL DEFAULT 'default'`,
	}

	for _, stmt := range alters {
		if _, err := db.Exec(stmt); err != nil {
			slog.Debug("add column skipped", slog.String("stmt", stmt), slog.String("err", err.Error()))
		}
	}
}
