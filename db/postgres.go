package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

type PostgreSQL struct {
	Host    string
	Port    string
	User    string
	Pass    string
	DBName  string
	SSLMode string
	store
}

func (d *PostgreSQL) Connect() error {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Pass, d.DBName, sslMode)
	conn, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return errors.Wrap(err, "error connectant a PostgreSQL")
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "error connectant a PostgreSQL")
	}
	d.store = newStore(conn, "postgres", "NOW()")
	logInfof("Connectat a PostgreSQL (%s:%s/%s)", d.Host, d.Port, d.DBName)
	return nil
}
