// Package mariadb implements the MariaDB/MySQL connector on top of
// go-sql-driver/mysql. It works at the database/sql/driver level: every
// session is exactly one driver.Conn and nothing is pooled.
package mariadb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-sql-driver/mysql"
	"github.com/joacominatel/querystor/internal/database"
)

// Name is the connector name; Alias is accepted as well.
const (
	Name  = "mariadb"
	Alias = "mysql"
)

// errUnknownDatabase is ER_BAD_DB_ERROR.
const errUnknownDatabase = 1049

func init() {
	_ = database.Register(Name, Connector{})
	_ = database.Register(Alias, Connector{})
}

// SetLogger routes the driver's own diagnostics (dropped connections,
// malformed packets) to l.
func SetLogger(l *log.Logger) error {
	return mysql.SetLogger(l.StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel}))
}

// Connector opens MariaDB sessions.
type Connector struct{}

// Connect dials ep, authenticates, and selects ep.Database, creating it when
// the server reports it unknown.
func (Connector) Connect(ctx context.Context, ep database.Endpoint) (database.Conn, error) {
	cfg := mysql.NewConfig()
	cfg.User = ep.Username
	cfg.Passwd = ep.Password
	cfg.Net = "tcp"
	cfg.Addr = ep.Address()
	cfg.Timeout = ep.Timeout
	cfg.ColumnsWithAlias = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, connectionError(ep, err)
	}

	raw, err := connector.Connect(ctx)
	if err != nil {
		return nil, connectionError(ep, err)
	}

	c, err := newConn(raw)
	if err != nil {
		_ = raw.Close()
		return nil, connectionError(ep, err)
	}
	if err := c.init(ctx, ep.Database); err != nil {
		_ = c.Close()
		return nil, connectionError(ep, err)
	}
	return c, nil
}

// init negotiates the quoting dialect and selects the operating database.
func (c *conn) init(ctx context.Context, name string) error {
	mode, err := c.scalar(ctx, database.Raw("SELECT @@SESSION.sql_mode"))
	if err != nil {
		return fmt.Errorf("read sql_mode: %w", err)
	}
	c.dialect = dialectFor(mode)

	enc := database.Encoder{Dialect: c.dialect}
	use, err := enc.Encode("USE ?n", name)
	if err != nil {
		return err
	}

	err = c.exec(ctx, use)
	var qe *database.QueryError
	if !errors.As(err, &qe) || qe.Code != errUnknownDatabase {
		return err
	}

	create, err := enc.Encode("CREATE DATABASE IF NOT EXISTS ?n", name)
	if err != nil {
		return err
	}
	if err := c.exec(ctx, create); err != nil {
		return err
	}
	return c.exec(ctx, use)
}

// connectionError keeps the server's diagnostic text when there is one.
func connectionError(ep database.Endpoint, err error) error {
	msg := err.Error()
	var myErr *mysql.MySQLError
	var qe *database.QueryError
	switch {
	case errors.As(err, &myErr):
		msg = myErr.Message
	case errors.As(err, &qe):
		msg = qe.Message
	}
	return &database.ConnectionError{Connector: Name, Address: ep.Address(), Message: msg, Err: err}
}

// queryError converts a driver failure into a *database.QueryError.
func queryError(stmt database.Statement, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		qe := &database.QueryError{
			Code:      int(myErr.Number),
			Message:   myErr.Message,
			Statement: stmt,
			Err:       err,
		}
		if myErr.SQLState != [5]byte{} {
			qe.SQLState = string(myErr.SQLState[:])
		}
		return qe
	}
	if errors.Is(err, driver.ErrBadConn) {
		return &database.QueryError{Message: "connection lost", Statement: stmt, Err: err}
	}
	return &database.QueryError{Message: err.Error(), Statement: stmt, Err: err}
}
