package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// formatPlaceholders converteix '?' a placeholders de l'estil PostgreSQL ($1, $2...) si cal.
func formatPlaceholders(style, query string) string {
	if strings.ToLower(style) != "postgres" {
		return query
	}
	var b strings.Builder
	idx := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteString(fmt.Sprintf("$%d", idx))
			idx++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}

// sqlHelper comparteix el codi SQL entre motors. ext pot ser la connexió o una transacció.
type sqlHelper struct {
	ext    sqlx.ExtContext
	style  string
	nowFun string
}

func newSQLHelper(ext sqlx.ExtContext, style, nowFun string) sqlHelper {
	return sqlHelper{ext: ext, style: strings.ToLower(style), nowFun: nowFun}
}

func (h sqlHelper) builder() sq.StatementBuilderType {
	if h.style == "postgres" {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (h sqlHelper) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := h.ext.ExecContext(ctx, formatPlaceholders(h.style, query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (h sqlHelper) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, h.ext, dest, formatPlaceholders(h.style, query), args...)
}

func (h sqlHelper) selectBuilt(ctx context.Context, dest interface{}, b sq.SelectBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, h.ext, dest, query, args...)
}

// insertReturningID insereix i retorna l'id: RETURNING a PostgreSQL, LastInsertId a la resta.
func (h sqlHelper) insertReturningID(ctx context.Context, query string, args ...interface{}) (int, error) {
	query = formatPlaceholders(h.style, query)
	if h.style == "postgres" {
		var id int
		if err := h.ext.QueryRowxContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := h.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// upsertByXref insereix o actualitza una fila clau (tree_id, gedcom_xref) i en retorna l'id.
// Els valors del fitxer sobreescriuen els existents.
func (h sqlHelper) upsertByXref(ctx context.Context, table string, columns []string, values []interface{}) (int, error) {
	ins := h.builder().Insert(table).Columns(columns...).Values(values...)
	var sets []string
	for _, c := range columns {
		if c == "tree_id" || c == "gedcom_xref" {
			continue
		}
		switch h.style {
		case "mysql":
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
		default:
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	sets = append(sets, "updated_at = "+h.nowFun)

	if h.style == "mysql" {
		query, args, err := ins.Suffix("ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), " + strings.Join(sets, ", ")).ToSql()
		if err != nil {
			return 0, err
		}
		res, err := h.ext.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		id, err := res.LastInsertId()
		return int(id), err
	}
	query, args, err := ins.Suffix("ON CONFLICT (tree_id, gedcom_xref) DO UPDATE SET " + strings.Join(sets, ", ") + " RETURNING id").ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := h.ext.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// applySchema executa un script SQL sentència a sentència dins d'una transacció.
func applySchema(ctx context.Context, conn *sqlx.DB, script string) error {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || trimmed == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "no s'ha pogut començar transacció")
	}
	for _, stmt := range strings.Split(b.String(), ";") {
		q := strings.TrimSpace(stmt)
		if q == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "error executant %q", firstLine(q))
		}
	}
	return errors.Wrap(tx.Commit(), "commit de l'esquema")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func nullableString(val string) sql.NullString {
	if strings.TrimSpace(val) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: val, Valid: true}
}

func nullableInt(val int) sql.NullInt64 {
	if val <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(val), Valid: true}
}

// dbTime normalitza els temps que es comparen en SQL (UTC, mil·lisegons).
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
