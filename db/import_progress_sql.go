package db

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

const importProgressColumns = `id, user_id, tree_id, status, total_records, processed_records,
	error_message, summary_json, started_at, finished_at, updated_at`

// ResetImportProgress deixa la fila (user, tree) a PENDING, creant-la si cal.
// Una nova importació del mateix parell sobreescriu l'anterior.
func (h sqlHelper) ResetImportProgress(ctx context.Context, userID, treeID int) error {
	var query string
	switch h.style {
	case "mysql":
		query = `INSERT INTO import_progress (user_id, tree_id, status, total_records, processed_records)
			VALUES (?, ?, ?, 0, 0)
			ON DUPLICATE KEY UPDATE status = VALUES(status), total_records = 0, processed_records = 0,
				error_message = NULL, summary_json = NULL, started_at = NULL, finished_at = NULL, updated_at = NOW()`
	default:
		query = `INSERT INTO import_progress (user_id, tree_id, status, total_records, processed_records)
			VALUES (?, ?, ?, 0, 0)
			ON CONFLICT (user_id, tree_id) DO UPDATE SET status = excluded.status, total_records = 0,
				processed_records = 0, error_message = NULL, summary_json = NULL, started_at = NULL,
				finished_at = NULL, updated_at = ` + h.nowFun
	}
	_, err := h.exec(ctx, query, userID, treeID, ImportStatusPending)
	return errors.Wrap(err, "no puc reiniciar el progrés d'importació")
}

func (h sqlHelper) GetImportProgress(ctx context.Context, userID, treeID int) (*ImportProgress, error) {
	var p ImportProgress
	err := h.get(ctx, &p, `SELECT `+importProgressColumns+` FROM import_progress WHERE user_id = ? AND tree_id = ?`, userID, treeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (h sqlHelper) ListImportProgress(ctx context.Context, f ImportProgressFilter) ([]ImportProgress, error) {
	b := h.builder().Select("id", "user_id", "tree_id", "status", "total_records", "processed_records",
		"error_message", "summary_json", "started_at", "finished_at", "updated_at").
		From("import_progress").OrderBy("id DESC")
	if f.UserID > 0 {
		b = b.Where(sq.Eq{"user_id": f.UserID})
	}
	if f.TreeID > 0 {
		b = b.Where(sq.Eq{"tree_id": f.TreeID})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	var out []ImportProgress
	if err := h.selectBuilt(ctx, &out, b); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkImportProcessing passa a PROCESSING des de PENDING (o es manté en un reintent).
func (h sqlHelper) MarkImportProcessing(ctx context.Context, userID, treeID int, at time.Time) error {
	n, err := h.exec(ctx, `UPDATE import_progress SET status = ?, started_at = COALESCE(started_at, ?), updated_at = `+h.nowFun+`
		WHERE user_id = ? AND tree_id = ? AND status IN (?, ?)`,
		ImportStatusProcessing, dbTime(at), userID, treeID, ImportStatusPending, ImportStatusProcessing)
	return transitionResult(n, err, ImportStatusProcessing)
}

func (h sqlHelper) SetImportTotals(ctx context.Context, userID, treeID, total int) error {
	n, err := h.exec(ctx, `UPDATE import_progress SET total_records = ?, updated_at = `+h.nowFun+`
		WHERE user_id = ? AND tree_id = ? AND status = ?`,
		total, userID, treeID, ImportStatusProcessing)
	return transitionResult(n, err, "total_records")
}

func (h sqlHelper) MarkImportCompleted(ctx context.Context, userID, treeID, processed int, summaryJSON string, at time.Time) error {
	n, err := h.exec(ctx, `UPDATE import_progress SET status = ?, processed_records = ?, summary_json = ?,
		error_message = NULL, finished_at = ?, updated_at = `+h.nowFun+`
		WHERE user_id = ? AND tree_id = ? AND status = ?`,
		ImportStatusCompleted, processed, nullableString(summaryJSON), dbTime(at), userID, treeID, ImportStatusProcessing)
	return transitionResult(n, err, ImportStatusCompleted)
}

// MarkImportFailed força FAILED des de qualsevol estat que no sigui COMPLETED.
func (h sqlHelper) MarkImportFailed(ctx context.Context, userID, treeID int, message string, at time.Time) error {
	n, err := h.exec(ctx, `UPDATE import_progress SET status = ?, error_message = ?, finished_at = ?, updated_at = `+h.nowFun+`
		WHERE user_id = ? AND tree_id = ? AND status <> ?`,
		ImportStatusFailed, message, dbTime(at), userID, treeID, ImportStatusCompleted)
	return transitionResult(n, err, ImportStatusFailed)
}

func transitionResult(affected int64, err error, target string) error {
	if err != nil {
		return errors.Wrapf(err, "no puc actualitzar el progrés (%s)", target)
	}
	if affected == 0 {
		return errors.Wrapf(ErrInvalidTransition, "cap fila per a %s", target)
	}
	return nil
}
