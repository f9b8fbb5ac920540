package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/marcmoiagese/ArbreGedcom/db"
)

// ImportEvent és el contingut d'una notificació d'importació. El lliurament
// (correu, web) el fa un col·laborador extern que llegeix import_notifications.
type ImportEvent struct {
	Kind             string         `json:"kind"`
	JobUUID          string         `json:"job_uuid"`
	UserID           int            `json:"user_id"`
	TreeID           int            `json:"tree_id"`
	OriginalFilename string         `json:"original_filename,omitempty"`
	Summary          *ImportSummary `json:"summary,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
}

// Notifier encua notificacions d'importació. Retorna false si ja existia.
type Notifier interface {
	Notify(ctx context.Context, ev ImportEvent) (bool, error)
}

type dbNotifier struct {
	db db.DB
}

func (n *dbNotifier) Notify(ctx context.Context, ev ImportEvent) (bool, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return false, err
	}
	rec := &db.ImportNotification{
		UserID:      ev.UserID,
		TreeID:      sqlNullInt(ev.TreeID),
		Kind:        ev.Kind,
		Title:       notificationTitle(ev),
		Body:        sqlNullString(notificationBody(ev)),
		PayloadJSON: sql.NullString{String: string(payload), Valid: true},
		DedupeKey:   dedupeKey(ev),
	}
	return n.db.CreateImportNotification(ctx, rec)
}

func dedupeKey(ev ImportEvent) string {
	suffix := "completed"
	if ev.Kind == db.NotificationImportFailed {
		suffix = "failed"
	}
	return ev.JobUUID + ":" + suffix
}

func notificationTitle(ev ImportEvent) string {
	if ev.Kind == db.NotificationImportFailed {
		return "Importació GEDCOM fallida"
	}
	return "Importació GEDCOM completada"
}

func notificationBody(ev ImportEvent) string {
	if ev.Kind == db.NotificationImportFailed {
		return ev.ErrorMessage
	}
	if ev.Summary == nil {
		return ""
	}
	return fmt.Sprintf("%d persones, %d famílies, %d fonts importades",
		ev.Summary.Individuals, ev.Summary.Families, ev.Summary.Sources)
}
