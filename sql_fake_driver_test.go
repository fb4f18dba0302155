package resource

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
)

// fakeSQLDriver lets construction-failure paths run without a database.
type fakeSQLDriver struct {
	pingErr error
}

func (d *fakeSQLDriver) Open(name string) (driver.Conn, error) {
	return &fakeSQLConn{pingErr: d.pingErr}, nil
}

type fakeSQLConn struct {
	pingErr error
}

func (c *fakeSQLConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not impl") }
func (c *fakeSQLConn) Close() error                        { return nil }
func (c *fakeSQLConn) Begin() (driver.Tx, error)           { return nil, errors.New("not impl") }

func (c *fakeSQLConn) Ping(ctx context.Context) error { return c.pingErr }

func init() {
	sql.Register("pingfail", &fakeSQLDriver{pingErr: errors.New("ping boom")})
}
