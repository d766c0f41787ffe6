package mariadb

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joacominatel/querystor/internal/database"
)

func TestRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"mariadb", "MariaDB", "mysql"} {
		if _, err := database.Lookup(name); err != nil {
			t.Fatalf("Lookup(%q) returned error: %v", name, err)
		}
	}
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ep := database.Endpoint{Host: "127.0.0.1", Port: 1, Username: "root", Timeout: time.Second}
	s, err := database.Open(ctx, "mariadb", ep)
	var connErr *database.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if s != nil {
		t.Fatalf("expected no session")
	}
	if connErr.Address != "127.0.0.1:1" || connErr.Message == "" {
		t.Fatalf("unexpected error detail %+v", connErr)
	}
}

func TestQueryError(t *testing.T) {
	t.Parallel()

	stmt := database.Raw("SELECT * FROM nope")
	cause := &mysql.MySQLError{
		Number:   1146,
		SQLState: [5]byte{'4', '2', 'S', '0', '2'},
		Message:  "Table 'querystordb.nope' doesn't exist",
	}

	var qe *database.QueryError
	if !errors.As(queryError(stmt, cause), &qe) {
		t.Fatalf("expected *QueryError")
	}
	if qe.Code != 1146 || qe.SQLState != "42S02" || qe.Message != cause.Message {
		t.Fatalf("diagnostic not preserved: %+v", qe)
	}
	if qe.Statement != stmt || !errors.Is(qe, cause) {
		t.Fatalf("expected statement and cause to be kept: %+v", qe)
	}

	if !errors.As(queryError(stmt, &mysql.MySQLError{Number: 1064, Message: "syntax"}), &qe) || qe.SQLState != "" {
		t.Fatalf("expected an empty SQLSTATE when none is reported, got %+v", qe)
	}

	if !errors.As(queryError(stmt, driver.ErrBadConn), &qe) || qe.Code != 0 || !errors.Is(qe, driver.ErrBadConn) {
		t.Fatalf("expected transport failure to map to code 0, got %+v", qe)
	}
}

func TestConnectionError(t *testing.T) {
	t.Parallel()

	ep := database.Endpoint{Host: "db", Port: 3306}
	cause := &mysql.MySQLError{Number: 1045, Message: "Access denied for user 'root'@'10.0.0.2' (using password: YES)"}

	var connErr *database.ConnectionError
	if !errors.As(connectionError(ep, cause), &connErr) {
		t.Fatalf("expected *ConnectionError")
	}
	if connErr.Message != cause.Message || connErr.Connector != Name || connErr.Address != "db:3306" {
		t.Fatalf("unexpected error %+v", connErr)
	}

	wrapped := connectionError(ep, queryError("USE `x`", cause))
	if !errors.As(wrapped, &connErr) || connErr.Message != cause.Message {
		t.Fatalf("expected the server text through a QueryError, got %v", wrapped)
	}
}
