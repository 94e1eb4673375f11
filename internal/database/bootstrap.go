package database

// bootstrap.go brings the schema to its current shape on startup.  Every step
// is idempotent so the routine can run on every boot: create-if-absent DDL,
// column additions guarded by information_schema lookups, a rewrite of the
// legacy single-tenant clients table, and seeding of the default admin
// account.  The whole routine is best effort; failures after the base tables
// exist are logged and startup continues.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gastenlixt/gastenlixt/internal/auth"
	"github.com/gastenlixt/gastenlixt/internal/utils"
)

// Default administrator account created on first bootstrap.  The password is
// well known and must be changed after the first login in any real
// deployment.
const (
	AdminEmail    = "admin@admin.com"
	adminName     = "admin"
	adminPassword = "admin123"
)

const createUsersSQL = `
CREATE TABLE IF NOT EXISTS users (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
  name VARCHAR(255) NOT NULL,
  email VARCHAR(255) NOT NULL,
  password VARCHAR(255) NOT NULL,
  role TINYINT NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (id),
  UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// clientsDDL renders the current clients table shape under the given name.
// The same definition serves both the create-if-absent step and the rewrite
// step, which builds the replacement table under a temporary name.
func clientsDDL(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
  user_id BIGINT UNSIGNED NOT NULL,
  razao_social VARCHAR(255) NOT NULL,
  cnpj VARCHAR(32) NOT NULL,
  email VARCHAR(255) NULL,
  telefone VARCHAR(32) NULL,
  regime_tributario VARCHAR(64) NOT NULL,
  anexo_simples VARCHAR(32) NULL,
  cidade VARCHAR(128) NULL,
  estado VARCHAR(2) NULL,
  faturamento_anual DECIMAL(15,2) NULL,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  PRIMARY KEY (id),
  UNIQUE KEY uq_%s_user_cnpj (user_id, cnpj),
  CONSTRAINT fk_%s_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, table, table, table)
}

// Bootstrap ensures the schema and the seed admin account exist.  It must run
// before the HTTP listener binds.  An error is returned only when the base
// tables cannot be created; every later step logs its failure and lets
// startup continue.
func Bootstrap(ctx context.Context, db *sql.DB, logger zerolog.Logger, bcryptCost int) error {
	if _, err := db.ExecContext(ctx, createUsersSQL); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := db.ExecContext(ctx, clientsDDL("clients")); err != nil {
		return fmt.Errorf("create clients table: %w", err)
	}

	// Additive upgrades for databases created before these columns existed.
	// The column is checked before altering so that unrelated failures are
	// not masked by a blanket "already exists" swallow.
	if err := ensureColumn(ctx, db, "users", "role",
		"ALTER TABLE users ADD COLUMN role TINYINT NOT NULL DEFAULT 0"); err != nil {
		logger.Error().Err(err).Str("component", "bootstrap").Msg("add users.role column")
	}
	if err := ensureColumn(ctx, db, "clients", "user_id",
		"ALTER TABLE clients ADD COLUMN user_id BIGINT UNSIGNED NULL"); err != nil {
		logger.Error().Err(err).Str("component", "bootstrap").Msg("add clients.user_id column")
	}

	if err := migrateLegacyClients(ctx, db, logger); err != nil {
		// Non-fatal: the schema stays in its pre-migration state and the
		// next restart retries.
		logger.Error().Err(err).Str("component", "bootstrap").Msg("clients table migration failed")
	}

	created, err := seedAdmin(ctx, db, bcryptCost)
	if err != nil {
		logger.Error().Err(err).Str("component", "bootstrap").Msg("seed admin user")
	} else if created {
		logger.Info().Str("email", AdminEmail).Msg("default admin user created")
	}

	logger.Info().Msg("database initialized")
	return nil
}

// ensureColumn adds a column only when information_schema says it is absent.
func ensureColumn(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	exists, err := columnExists(ctx, db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = db.ExecContext(ctx, alterSQL)
	return err
}

// columnExists checks the current database for a column on the given table.
func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	const q = `SELECT COUNT(*) FROM information_schema.columns
			   WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?`
	var n int
	if err := db.QueryRowContext(ctx, q, table, column).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// clientsShape summarizes what the stored DDL of the clients table reveals
// about its schema generation.
type clientsShape struct {
	MissingUserID    bool // no user_id column at all: pre-multi-tenant database
	GlobalUniqueCNPJ bool // cnpj carries a standalone unique key (old invariant)
	PerUserUnique    bool // composite (user_id, cnpj) unique key (target invariant)
}

// NeedsRewrite reports whether the table must be rebuilt into the per-user
// unique shape.
func (s clientsShape) NeedsRewrite() bool {
	return s.MissingUserID || (s.GlobalUniqueCNPJ && !s.PerUserUnique)
}

var uniqueCNPJRe = regexp.MustCompile(`unique key [a-z0-9_]* ?\(cnpj\)`)

// inspectClientsDDL classifies a SHOW CREATE TABLE rendering of the clients
// table.  Matching the server's DDL text is inherently tied to the engine's
// output format; normalization of backticks, case and whitespace keeps the
// match stable across server versions.
func inspectClientsDDL(ddl string) clientsShape {
	norm := normalizeDDL(ddl)
	return clientsShape{
		MissingUserID:    !strings.Contains(norm, "user_id"),
		GlobalUniqueCNPJ: uniqueCNPJRe.MatchString(norm),
		PerUserUnique:    strings.Contains(norm, "(user_id,cnpj)"),
	}
}

// normalizeDDL lowercases the DDL, strips backticks and collapses whitespace
// so that key declarations can be matched with plain substrings.
func normalizeDDL(ddl string) string {
	s := strings.ToLower(ddl)
	s = strings.ReplaceAll(s, "`", "")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "( ", "(")
	s = strings.ReplaceAll(s, " )", ")")
	s = strings.ReplaceAll(s, " ,", ",")
	s = strings.ReplaceAll(s, ", ", ",")
	return s
}

// Column list shared by the legacy copy statement; id is preserved so
// existing references keep working.
const clientsColumns = `id, user_id, razao_social, cnpj, email, telefone,
	regime_tributario, anexo_simples, cidade, estado, faturamento_anual,
	created_at, updated_at`

// migrateLegacyClients rebuilds the clients table when its stored DDL shows a
// pre-multi-tenant shape.  Rows without an owner belong to a schema
// generation with no concept of ownership and are dropped.  The replacement
// is built under a temporary name and swapped in with a multi-table RENAME,
// which MySQL performs atomically: readers see either the old table or the
// finished new one, never a half-copied state.
func migrateLegacyClients(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	var tableName, ddl string
	if err := db.QueryRowContext(ctx, "SHOW CREATE TABLE clients").Scan(&tableName, &ddl); err != nil {
		return fmt.Errorf("read clients DDL: %w", err)
	}
	shape := inspectClientsDDL(ddl)
	if !shape.NeedsRewrite() {
		return nil
	}
	logger.Info().
		Bool("missing_user_id", shape.MissingUserID).
		Bool("global_unique_cnpj", shape.GlobalUniqueCNPJ).
		Msg("rewriting legacy clients table")

	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS clients_new"); err != nil {
		return fmt.Errorf("drop stale clients_new: %w", err)
	}
	if _, err := db.ExecContext(ctx, clientsDDL("clients_new")); err != nil {
		return fmt.Errorf("create clients_new: %w", err)
	}

	copySQL := fmt.Sprintf(
		"INSERT INTO clients_new (%s) SELECT %s FROM clients WHERE user_id IS NOT NULL",
		clientsColumns, clientsColumns)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		dropTemp(ctx, db, logger)
		return fmt.Errorf("begin copy transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, copySQL); err != nil {
		_ = tx.Rollback()
		dropTemp(ctx, db, logger)
		return fmt.Errorf("copy clients rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		dropTemp(ctx, db, logger)
		return fmt.Errorf("commit copy transaction: %w", err)
	}

	if _, err := db.ExecContext(ctx, "RENAME TABLE clients TO clients_old, clients_new TO clients"); err != nil {
		dropTemp(ctx, db, logger)
		return fmt.Errorf("swap clients table: %w", err)
	}
	if _, err := db.ExecContext(ctx, "DROP TABLE clients_old"); err != nil {
		return fmt.Errorf("drop old clients table: %w", err)
	}
	return nil
}

// dropTemp removes the temporary table after a failed rewrite so a retry on
// the next startup begins clean.
func dropTemp(ctx context.Context, db *sql.DB, logger zerolog.Logger) {
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS clients_new"); err != nil {
		logger.Error().Err(err).Str("component", "bootstrap").Msg("drop clients_new after failed rewrite")
	}
}

// seedAdmin inserts the default administrator when no user carries the
// sentinel email.  The guard is an email lookup, not a migration marker, so
// the step is a no-op on every boot after the first.
func seedAdmin(ctx context.Context, db *sql.DB, bcryptCost int) (bool, error) {
	var id int64
	err := db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", AdminEmail).Scan(&id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	hash, err := utils.HashPassword(adminPassword, bcryptCost)
	if err != nil {
		return false, err
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO users (name, email, password, role) VALUES (?, ?, ?, ?)",
		adminName, AdminEmail, hash, auth.RoleAdmin)
	if err != nil {
		return false, err
	}
	return true, nil
}
