package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// CreateImportNotification desa la notificació si la dedupe_key encara no existeix.
// Retorna false quan ja n'hi havia una.
func (h sqlHelper) CreateImportNotification(ctx context.Context, n *ImportNotification) (bool, error) {
	if n.Status == "" {
		n.Status = "unread"
	}
	verb, suffix := "INSERT INTO", " ON CONFLICT (dedupe_key) DO NOTHING"
	if h.style == "mysql" {
		verb, suffix = "INSERT IGNORE INTO", ""
	}
	affected, err := h.exec(ctx, verb+` import_notifications (user_id, tree_id, kind, title, body, payload_json, dedupe_key, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`+suffix,
		n.UserID, n.TreeID, n.Kind, n.Title, n.Body, n.PayloadJSON, n.DedupeKey, n.Status)
	if err != nil {
		return false, errors.Wrap(err, "no puc crear la notificació")
	}
	return affected > 0, nil
}

func (h sqlHelper) ListImportNotifications(ctx context.Context, userID int) ([]ImportNotification, error) {
	var out []ImportNotification
	err := h.selectBuilt(ctx, &out, h.builder().
		Select("id", "user_id", "tree_id", "kind", "title", "body", "payload_json", "dedupe_key", "status", "created_at").
		From("import_notifications").Where(sq.Eq{"user_id": userID}).OrderBy("id"))
	return out, err
}
