package db

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

var importJobColumns = []string{"id", "job_uuid", "user_id", "tree_id", "file_path", "original_filename",
	"status", "attempts", "max_attempts", "available_at", "locked_at", "last_error", "created_at", "updated_at"}

func (h sqlHelper) CreateImportJob(ctx context.Context, j *ImportJob) (int, error) {
	if j.Status == "" {
		j.Status = JobStatusQueued
	}
	if j.AvailableAt.IsZero() {
		j.AvailableAt = time.Now()
	}
	id, err := h.insertReturningID(ctx, `INSERT INTO import_jobs
		(job_uuid, user_id, tree_id, file_path, original_filename, status, attempts, max_attempts, available_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.JobUUID, j.UserID, j.TreeID, j.FilePath, j.OriginalFilename, j.Status, j.Attempts, j.MaxAttempts, dbTime(j.AvailableAt))
	if err != nil {
		return 0, errors.Wrap(err, "no puc encuar la importació")
	}
	j.ID = id
	return id, nil
}

func (h sqlHelper) GetImportJob(ctx context.Context, id int) (*ImportJob, error) {
	var out []ImportJob
	if err := h.selectBuilt(ctx, &out, h.builder().Select(importJobColumns...).From("import_jobs").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// ClaimImportJob agafa el treball disponible més antic: un de cua amb available_at vençut
// o un running amb el bloqueig caducat. Retorna nil si no n'hi ha cap o si un altre worker
// l'ha agafat abans. Cada reclamació compta com un intent.
func (h sqlHelper) ClaimImportJob(ctx context.Context, now time.Time, lockTTL time.Duration) (*ImportJob, error) {
	now = dbTime(now)
	stale := now.Add(-lockTTL)
	var candidates []ImportJob
	err := h.selectBuilt(ctx, &candidates, h.builder().Select(importJobColumns...).From("import_jobs").
		Where(sq.Or{
			sq.And{sq.Eq{"status": JobStatusQueued}, sq.LtOrEq{"available_at": now}},
			sq.And{sq.Eq{"status": JobStatusRunning}, sq.Lt{"locked_at": stale}},
		}).
		OrderBy("available_at", "id").Limit(1))
	if err != nil {
		return nil, errors.Wrap(err, "cercant treballs d'importació")
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	job := candidates[0]
	n, err := h.exec(ctx, `UPDATE import_jobs SET status = ?, attempts = attempts + 1, locked_at = ?, updated_at = `+h.nowFun+`
		WHERE id = ? AND status = ? AND attempts = ?`,
		JobStatusRunning, now, job.ID, job.Status, job.Attempts)
	if err != nil {
		return nil, errors.Wrap(err, "reclamant treball d'importació")
	}
	if n == 0 {
		return nil, nil
	}
	job.Status = JobStatusRunning
	job.Attempts++
	job.LockedAt = sql.NullTime{Time: now, Valid: true}
	return &job, nil
}

// RequeueImportJob torna el treball a la cua per a un nou intent a partir d'availableAt.
func (h sqlHelper) RequeueImportJob(ctx context.Context, id int, availableAt time.Time, lastError string) error {
	n, err := h.exec(ctx, `UPDATE import_jobs SET status = ?, available_at = ?, locked_at = NULL, last_error = ?, updated_at = `+h.nowFun+`
		WHERE id = ? AND status = ?`,
		JobStatusQueued, dbTime(availableAt), nullableString(lastError), id, JobStatusRunning)
	if err != nil {
		return errors.Wrap(err, "no puc reencuar el treball")
	}
	if n == 0 {
		return errors.Wrapf(ErrInvalidTransition, "treball %d no està en execució", id)
	}
	return nil
}

// FinishImportJob tanca el treball (done o failed) i allibera el bloqueig.
func (h sqlHelper) FinishImportJob(ctx context.Context, id int, status, lastError string) error {
	if status != JobStatusDone && status != JobStatusFailed {
		return errors.Errorf("estat final no vàlid: %s", status)
	}
	n, err := h.exec(ctx, `UPDATE import_jobs SET status = ?, locked_at = NULL, last_error = ?, updated_at = `+h.nowFun+`
		WHERE id = ? AND status IN (?, ?)`,
		status, nullableString(lastError), id, JobStatusRunning, JobStatusQueued)
	if err != nil {
		return errors.Wrap(err, "no puc tancar el treball")
	}
	if n == 0 {
		return errors.Wrapf(ErrInvalidTransition, "treball %d ja estava tancat", id)
	}
	return nil
}

// ReleaseImportJob retorna a la cua un treball reclamat que no s'ha arribat a executar,
// sense comptar-ne l'intent.
func (h sqlHelper) ReleaseImportJob(ctx context.Context, id int, availableAt time.Time) error {
	n, err := h.exec(ctx, `UPDATE import_jobs SET status = ?, attempts = attempts - 1, available_at = ?, locked_at = NULL, updated_at = `+h.nowFun+`
		WHERE id = ? AND status = ? AND attempts > 0`,
		JobStatusQueued, dbTime(availableAt), id, JobStatusRunning)
	if err != nil {
		return errors.Wrap(err, "no puc alliberar el treball")
	}
	if n == 0 {
		return errors.Wrapf(ErrInvalidTransition, "treball %d no està en execució", id)
	}
	return nil
}

// HasActiveImportJob indica si el parell (user, tree) té un treball a la cua o en execució.
func (h sqlHelper) HasActiveImportJob(ctx context.Context, userID, treeID int) (bool, error) {
	var n int
	err := h.get(ctx, &n, `SELECT COUNT(*) FROM import_jobs WHERE user_id = ? AND tree_id = ? AND status IN (?, ?)`,
		userID, treeID, JobStatusQueued, JobStatusRunning)
	if err != nil {
		return false, errors.Wrap(err, "cercant treballs actius")
	}
	return n > 0, nil
}
