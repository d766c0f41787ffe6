// Package postgres implements the PostgreSQL connector on pgconn, the
// low-level protocol layer of pgx. Each session is a single *pgconn.PgConn.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joacominatel/querystor/internal/database"
)

// Name is the connector name; Alias is accepted as well.
const (
	Name  = "postgres"
	Alias = "postgresql"
)

func init() {
	_ = database.Register(Name, Connector{})
	_ = database.Register(Alias, Connector{})
}

// Connector opens PostgreSQL sessions.
type Connector struct{}

// Connect dials ep and connects to ep.Database, creating it through the
// maintenance database when the server reports it missing.
func (Connector) Connect(ctx context.Context, ep database.Endpoint) (database.Conn, error) {
	pc, err := connect(ctx, ep, ep.Database)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeInvalidCatalogName {
		if err := createDatabase(ctx, ep); err != nil {
			return nil, connectionError(ep, err)
		}
		pc, err = connect(ctx, ep, ep.Database)
	}
	if err != nil {
		return nil, connectionError(ep, err)
	}
	return newConn(pc), nil
}

func connect(ctx context.Context, ep database.Endpoint, db string) (*pgconn.PgConn, error) {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(ep.Username, ep.Password),
		Host:   ep.Address(),
		Path:   "/" + db,
	}
	cfg, err := pgconn.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ConnectTimeout = ep.Timeout

	return pgconn.ConnectConfig(ctx, cfg)
}

func createDatabase(ctx context.Context, ep database.Endpoint) error {
	pc, err := connect(ctx, ep, maintenanceDatabase)
	if err != nil {
		return fmt.Errorf("connect %s: %w", maintenanceDatabase, err)
	}
	defer pc.Close(context.Background())

	sql := "CREATE DATABASE " + pgx.Identifier{ep.Database}.Sanitize()
	_, err = pc.Exec(ctx, sql).ReadAll()

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeDuplicateDatabase {
		return nil
	}
	return err
}

// connectionError keeps the server's diagnostic text when there is one.
func connectionError(ep database.Endpoint, err error) error {
	msg := err.Error()
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg = pgErr.Message
	}
	return &database.ConnectionError{Connector: Name, Address: ep.Address(), Message: msg, Err: err}
}

// queryError converts a pgconn failure into a *database.QueryError.
// PostgreSQL has no numeric codes, so only SQLState is set.
func queryError(stmt database.Statement, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &database.QueryError{
			SQLState:  pgErr.Code,
			Message:   pgErr.Message,
			Statement: stmt,
			Err:       err,
		}
	}
	return &database.QueryError{Message: err.Error(), Statement: stmt, Err: err}
}
