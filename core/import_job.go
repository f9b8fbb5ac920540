package core

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/marcmoiagese/ArbreGedcom/core/gedcom"
	"github.com/marcmoiagese/ArbreGedcom/db"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	errorMessageMaxLen = 2048
	failureBookkeeping = 30 * time.Second
)

var payloadValidator = validator.New()

// GedcomImportPayload és l'entrada del treball d'importació.
type GedcomImportPayload struct {
	FilePath         string `json:"file_path" validate:"required"`
	TreeID           int    `json:"tree_id" validate:"gt=0"`
	UserID           int    `json:"user_id" validate:"gt=0"`
	OriginalFileName string `json:"original_filename" validate:"required"`
	JobUUID          string `json:"job_uuid" validate:"required,uuid"`
}

// GedcomImportJob llegeix, parseja i importa un fitxer pujat, i deixa constància
// a ImportProgress i a les notificacions.
type GedcomImportJob struct {
	Payload GedcomImportPayload
	// Observer, si no és nil, rep el progrés de cada intent.
	Observer ImportObserver

	app *App
}

func (a *App) NewGedcomImportJob(payload GedcomImportPayload) *GedcomImportJob {
	return &GedcomImportJob{Payload: payload, app: a}
}

func (j *GedcomImportJob) log() *logrus.Entry {
	return logEntry(logrus.Fields{
		"job_uuid": j.Payload.JobUUID,
		"tree_id":  j.Payload.TreeID,
		"user_id":  j.Payload.UserID,
	})
}

// Handle fa un intent complet. Els errors tornen al runner, que decideix si es reintenta.
func (j *GedcomImportJob) Handle(ctx context.Context) (err error) {
	p := j.Payload
	if verr := payloadValidator.Struct(p); verr != nil {
		return Permanent(errors.Wrap(verr, "payload d'importació no vàlid"))
	}
	ctx, span := startSpan(ctx, "gedcom.import", p.TreeID, p.UserID)
	defer func() { endSpan(span, err) }()

	a := j.app
	if err := j.markProcessing(ctx); err != nil {
		return err
	}

	data, err := os.ReadFile(p.FilePath)
	if err != nil {
		return errors.Wrap(err, "no puc llegir el fitxer GEDCOM")
	}

	_, parseSpan := startSpan(ctx, "gedcom.parse", p.TreeID, p.UserID)
	parsed, err := gedcom.ParseBytes(data)
	endSpan(parseSpan, err)
	if err != nil {
		// Tornar a llegir els mateixos bytes donaria el mateix resultat.
		return Permanent(errors.Wrap(err, "no puc interpretar el fitxer GEDCOM"))
	}
	getMetrics().unparsedLines.Add(float64(parsed.UnparsedLines))
	if parsed.UnparsedLines > 0 {
		j.log().Warnf("%d línies GEDCOM no interpretades", parsed.UnparsedLines)
	}

	total := parsed.TotalRecords()
	if err := a.DB.SetImportTotals(ctx, p.UserID, p.TreeID, total); err != nil {
		return err
	}

	var observers []ImportObserver
	if j.Observer != nil {
		observers = append(observers, j.Observer)
	}
	summary, err := a.ImportToDatabase(ctx, parsed, p.TreeID, observers...)
	if err != nil {
		return err
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return errors.Wrap(err, "no puc serialitzar el resum")
	}
	if err := a.DB.MarkImportCompleted(ctx, p.UserID, p.TreeID, total, string(summaryJSON), a.clock()); err != nil {
		return err
	}
	j.log().Infof("importació completada: %d persones, %d famílies", summary.Individuals, summary.Families)

	if err := removeFileIdempotent(p.FilePath); err != nil {
		j.log().Warnf("no puc esborrar el fitxer temporal: %v", err)
	}
	if _, err := a.Notifier.Notify(ctx, ImportEvent{
		Kind:             db.NotificationImportCompleted,
		JobUUID:          p.JobUUID,
		UserID:           p.UserID,
		TreeID:           p.TreeID,
		OriginalFilename: p.OriginalFileName,
		Summary:          summary,
	}); err != nil {
		j.log().Errorf("no puc encuar la notificació de completat: %v", err)
	}
	return nil
}

// markProcessing crea la fila de progrés si no existeix (importació síncrona) i la passa a PROCESSING.
func (j *GedcomImportJob) markProcessing(ctx context.Context) error {
	a, p := j.app, j.Payload
	progress, err := a.DB.GetImportProgress(ctx, p.UserID, p.TreeID)
	if err != nil {
		return err
	}
	if progress == nil {
		if err := a.DB.ResetImportProgress(ctx, p.UserID, p.TreeID); err != nil {
			return err
		}
	}
	if err := a.DB.MarkImportProcessing(ctx, p.UserID, p.TreeID, a.clock()); err != nil {
		if errors.Is(err, db.ErrInvalidTransition) {
			return Permanent(err)
		}
		return err
	}
	return nil
}

// Failed és l'únic camí de fallada definitiva, tant si s'esgoten els intents com si
// l'error no és reintentable. Es pot cridar més d'una vegada: la notificació es deduplica.
func (j *GedcomImportJob) Failed(ctx context.Context, cause error) {
	a, p := j.app, j.Payload
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureBookkeeping)
	defer cancel()

	if cause == nil {
		cause = errors.New("importació fallida")
	}
	log := j.log()
	log.Errorf("importació fallida: %+v", cause)
	message := truncateError(cause, errorMessageMaxLen)

	notify := true
	if err := a.DB.MarkImportFailed(ctx, p.UserID, p.TreeID, message, a.clock()); err != nil {
		if errors.Is(err, db.ErrInvalidTransition) {
			progress, gerr := a.DB.GetImportProgress(ctx, p.UserID, p.TreeID)
			if gerr == nil && progress != nil && progress.Status == db.ImportStatusCompleted {
				log.Warnf("la importació ja constava com a completada; no es notifica la fallada")
				notify = false
			}
		} else {
			log.Errorf("no puc marcar la importació com a fallada: %v", err)
		}
	}

	if err := removeFileIdempotent(p.FilePath); err != nil {
		log.Warnf("no puc esborrar el fitxer temporal: %v", err)
	}
	if !notify {
		return
	}
	if _, err := a.Notifier.Notify(ctx, ImportEvent{
		Kind:             db.NotificationImportFailed,
		JobUUID:          p.JobUUID,
		UserID:           p.UserID,
		TreeID:           p.TreeID,
		OriginalFilename: p.OriginalFileName,
		ErrorMessage:     message,
	}); err != nil {
		log.Errorf("no puc encuar la notificació de fallada: %v", err)
	}
}

// Run executa el treball en procés amb reintents.
func (j *GedcomImportJob) Run(ctx context.Context) error {
	s := j.app.Settings
	return RunJob(ctx, j, JobOptions{
		MaxAttempts: s.ImportMaxAttempts,
		Timeout:     s.ImportTimeout,
		Logger:      j.log(),
	})
}

func removeFileIdempotent(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
