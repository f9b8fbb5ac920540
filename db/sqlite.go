package db

import (
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLite és el motor per defecte. Fa servir una sola connexió per evitar SQLITE_BUSY.
type SQLite struct {
	Path string
	store
}

func (d *SQLite) Connect() error {
	dsn := d.Path
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_foreign_keys=on&_busy_timeout=5000"
	conn, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return errors.Wrap(err, "error connectant a SQLite")
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "error connectant a SQLite")
	}
	d.store = newStore(conn, "sqlite", "CURRENT_TIMESTAMP")
	logInfof("Connectat a SQLite (%s)", d.Path)
	return nil
}
