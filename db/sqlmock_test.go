package db

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, style, nowFun string) (*store, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := sqlx.NewDb(raw, style)
	s := newStore(conn, style, nowFun)
	t.Cleanup(func() { _ = raw.Close() })
	return &s, mock
}

func TestFormatPlaceholders(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", formatPlaceholders("postgres", "a = ? AND b = ?"))
	assert.Equal(t, "a = ? AND b = ?", formatPlaceholders("mysql", "a = ? AND b = ?"))
}

func TestUpsertPostgresUsesOnConflictReturning(t *testing.T) {
	s, mock := newMockStore(t, "postgres", "NOW()")
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO notes (tree_id,gedcom_xref,text_content,additional_data) VALUES ($1,$2,$3,$4) " +
		"ON CONFLICT (tree_id, gedcom_xref) DO UPDATE SET text_content = excluded.text_content, additional_data = excluded.additional_data, updated_at = NOW() RETURNING id")).
		WithArgs(5, "@N1@", "hola", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	tx := &gedcomTx{sqlHelper: s.sqlHelper}
	id, err := tx.UpsertNote(context.Background(), &Note{TreeID: 5, GedcomXref: str("@N1@"), Text: str("hola")})
	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMySQLUsesLastInsertID(t *testing.T) {
	s, mock := newMockStore(t, "mysql", "NOW()")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes (tree_id,gedcom_xref,text_content,additional_data) VALUES (?,?,?,?) " +
		"ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), text_content = VALUES(text_content), additional_data = VALUES(additional_data), updated_at = NOW()")).
		WithArgs(5, "@N1@", "hola", nil).
		WillReturnResult(sqlmock.NewResult(17, 2))

	tx := &gedcomTx{sqlHelper: s.sqlHelper}
	id, err := tx.UpsertNote(context.Background(), &Note{TreeID: 5, GedcomXref: str("@N1@"), Text: str("hola")})
	require.NoError(t, err)
	assert.Equal(t, 17, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTreePostgresReturning(t *testing.T) {
	s, mock := newMockStore(t, "postgres", "NOW()")
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO trees (owner_user_id, name) VALUES ($1, $2) RETURNING id")).
		WithArgs(1, "Família").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	tree := &Tree{OwnerUserID: 1, Name: "Família"}
	id, err := s.CreateTree(context.Background(), tree)
	require.NoError(t, err)
	assert.Equal(t, 9, id)
	assert.Equal(t, 9, tree.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollbackOnMock(t *testing.T) {
	s, mock := newMockStore(t, "postgres", "NOW()")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM family_children WHERE family_id = $1")).
		WithArgs(3).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx GedcomTx) error {
		return tx.ReplaceFamilyChildren(context.Background(), 3, nil)
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMySQLInsertIgnore(t *testing.T) {
	s, mock := newMockStore(t, "mysql", "NOW()")
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO import_notifications")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := s.CreateImportNotification(context.Background(), &ImportNotification{
		UserID: 1, Kind: NotificationImportFailed, Title: "x", DedupeKey: "k:failed",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
