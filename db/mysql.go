package db

import (
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type MySQL struct {
	Host   string
	Port   string
	User   string
	Pass   string
	DBName string
	store
}

// DSN construeix la cadena de connexió. ClientFoundRows fa que RowsAffected
// compti les files trobades i no només les modificades.
func (d *MySQL) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Host, d.Port)
	cfg.DBName = d.DBName
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

func (d *MySQL) Connect() error {
	conn, err := sqlx.Open("mysql", d.DSN())
	if err != nil {
		return errors.Wrap(err, "error connectant a MySQL")
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "error connectant a MySQL")
	}
	d.store = newStore(conn, "mysql", "NOW()")
	logInfof("Connectat a MySQL (%s/%s)", d.Host, d.DBName)
	return nil
}
