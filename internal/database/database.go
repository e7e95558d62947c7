package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"appserver/internal/config"
	"appserver/pkg/serrors"
)

var sqlOpen = sql.Open

// BuildDSN substitutes the configured password into the connection string template.
// Every occurrence of config.PasswordPlaceholder is replaced verbatim, so the result never contains it.
// Example: postgres://app:<db_password>@db:5432/app -> postgres://app:s3cret@db:5432/app
func BuildDSN(c config.DatabaseConfig) (string, error) {
	if c.URL == "" {
		return "", serrors.With(serrors.ErrConfig, "invalid database config: connection template is required")
	}
	if !strings.Contains(c.URL, config.PasswordPlaceholder) {
		return c.URL, nil
	}
	if c.Password == "" {
		return "", serrors.With(serrors.ErrConfig, "invalid database config: template contains %s but no password is set", config.PasswordPlaceholder)
	}

	return strings.ReplaceAll(c.URL, config.PasswordPlaceholder, c.Password), nil
}

// NewPostgres opens a database/sql connection using the pgx stdlib driver and applies pooling settings.
// It pings exactly once; there is no retry.
func NewPostgres(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := BuildDSN(c)
	if err != nil {
		return nil, err
	}

	driverName, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrDBConnect, err, "failed to register otelsql")
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrDBConnect, err, "sql open")
	}

	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.ConnectTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, serrors.Wrap(serrors.ErrDBConnect, err, "db ping")
	}

	return db, nil
}

// Redact hides the password in a connection string so it can be logged.
func Redact(dsn, password string) string {
	if password == "" {
		return dsn
	}
	return strings.ReplaceAll(dsn, password, "xxxxx")
}
