package db

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// store implementa DB per sobre d'una connexió sqlx; els motors l'incrusten.
type store struct {
	conn *sqlx.DB
	sqlHelper
}

func newStore(conn *sqlx.DB, style, nowFun string) store {
	return store{conn: conn, sqlHelper: newSQLHelper(conn, style, nowFun)}
}

func (s *store) Close() {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			logErrorf("error tancant la connexió: %v", err)
		}
	}
}

func (s *store) Style() string {
	return s.style
}

// WithTx obre una transacció i li passa els escriptors GEDCOM lligats a ella.
func (s *store) WithTx(ctx context.Context, fn func(tx GedcomTx) error) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "no puc començar la transacció")
	}
	if err := fn(&gedcomTx{sqlHelper: newSQLHelper(tx, s.style, s.nowFun)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logErrorf("rollback fallit: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit de la importació")
}

// CreateSchema aplica l'esquema embegut del motor.
func (s *store) CreateSchema(ctx context.Context) error {
	script, err := schemaFor(s.style)
	if err != nil {
		return err
	}
	logInfof("Aplicant esquema %s", s.style)
	return applySchema(ctx, s.conn, script)
}
