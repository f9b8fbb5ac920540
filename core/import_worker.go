package core

import (
	"context"
	"sync"
	"time"

	"github.com/marcmoiagese/ArbreGedcom/db"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const workerMaxBackoff = 60 * time.Second

// importWorkerState limita els treballs simultanis per usuari dins del procés.
type importWorkerState struct {
	mu      sync.Mutex
	running map[int]int
	active  map[int]struct{}
}

func newImportWorkerState() *importWorkerState {
	return &importWorkerState{
		running: map[int]int{},
		active:  map[int]struct{}{},
	}
}

func (w *importWorkerState) tryStart(userID, jobID, limit int) bool {
	if userID <= 0 || jobID <= 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.active[jobID]; ok {
		return false
	}
	if limit > 0 && w.running[userID] >= limit {
		return false
	}
	w.active[jobID] = struct{}{}
	w.running[userID]++
	return true
}

func (w *importWorkerState) finish(userID, jobID int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running[userID] > 0 {
		w.running[userID]--
	}
	if w.running[userID] <= 0 {
		delete(w.running, userID)
	}
	delete(w.active, jobID)
}

// ImportWorker consumeix la cua import_jobs. Cada reclamació és un intent; els errors
// reintentables tornen a la cua amb backoff i la fallada definitiva passa per Failed.
type ImportWorker struct {
	app *App
	sem *semaphore.Weighted
	log *logrus.Entry
}

func (a *App) NewImportWorker() *ImportWorker {
	concurrency := a.Settings.ImportWorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ImportWorker{
		app: a,
		sem: semaphore.NewWeighted(int64(concurrency)),
		log: logEntry(logrus.Fields{"component": "import-worker"}),
	}
}

// Run fa polling fins que es cancel·la el context i espera els treballs en curs.
func (w *ImportWorker) Run(ctx context.Context) error {
	poll := w.app.Settings.ImportWorkerPoll
	if poll <= 0 {
		poll = 5 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var g errgroup.Group
	w.log.Infof("worker d'importació en marxa (poll %s)", poll)
	for {
		if _, err := w.dispatch(ctx, &g); err != nil {
			w.log.Errorf("error reclamant treballs: %v", err)
		}
		select {
		case <-ctx.Done():
			err := g.Wait()
			w.log.Infof("worker d'importació aturat")
			return err
		case <-ticker.C:
		}
	}
}

// RunOnce reclama un lot, l'executa i espera que acabi. Retorna quants treballs ha iniciat.
func (w *ImportWorker) RunOnce(ctx context.Context) (int, error) {
	var g errgroup.Group
	started, err := w.dispatch(ctx, &g)
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return started, err
}

func (w *ImportWorker) dispatch(ctx context.Context, g *errgroup.Group) (int, error) {
	a := w.app
	batch := a.Settings.ImportWorkerBatch
	if batch <= 0 {
		batch = 1
	}
	started := 0
	for i := 0; i < batch; i++ {
		if ctx.Err() != nil {
			return started, nil
		}
		if !w.sem.TryAcquire(1) {
			return started, nil
		}
		job, err := a.DB.ClaimImportJob(ctx, a.clock(), a.Settings.ImportLockTTL)
		if err != nil || job == nil {
			w.sem.Release(1)
			return started, err
		}
		if !a.workers.tryStart(job.UserID, job.ID, a.Settings.ImportWorkerPerUser) {
			w.sem.Release(1)
			if err := a.DB.ReleaseImportJob(ctx, job.ID, a.clock().Add(a.Settings.ImportWorkerPoll)); err != nil {
				w.log.WithField("job_id", job.ID).Warnf("no puc alliberar el treball: %v", err)
			}
			continue
		}
		started++
		g.Go(func() error {
			defer w.sem.Release(1)
			defer a.workers.finish(job.UserID, job.ID)
			w.process(ctx, job)
			return nil
		})
	}
	return started, nil
}

func (w *ImportWorker) process(ctx context.Context, job *db.ImportJob) {
	a := w.app
	log := w.log.WithFields(logrus.Fields{"job_id": job.ID, "job_uuid": job.JobUUID, "attempt": job.Attempts})
	ij := a.NewGedcomImportJob(GedcomImportPayload{
		FilePath:         job.FilePath,
		TreeID:           job.TreeID,
		UserID:           job.UserID,
		OriginalFileName: job.OriginalFilename,
		JobUUID:          job.JobUUID,
	})
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = a.Settings.ImportMaxAttempts
	}
	closeCtx := context.WithoutCancel(ctx)

	// Un treball reclamat per bloqueig caducat pot haver esgotat ja els intents.
	if job.Attempts > maxAttempts {
		cause := errors.Errorf("intents esgotats (%d de %d)", job.Attempts-1, maxAttempts)
		if job.LastError.Valid {
			cause = errors.Wrap(errors.New(job.LastError.String), cause.Error())
		}
		w.fail(closeCtx, log, job, ij, cause)
		return
	}

	log.Debugf("executant importació")
	err := runAttempt(ctx, ij, a.Settings.ImportTimeout)
	if err == nil {
		if ferr := a.DB.FinishImportJob(closeCtx, job.ID, db.JobStatusDone, ""); ferr != nil {
			log.Errorf("no puc tancar el treball: %v", ferr)
		}
		return
	}
	if ctx.Err() != nil {
		log.Warnf("aturada durant la importació; el treball torna a la cua")
		if rerr := a.DB.ReleaseImportJob(closeCtx, job.ID, a.clock()); rerr != nil {
			log.Errorf("no puc alliberar el treball: %v", rerr)
		}
		return
	}
	if IsPermanent(err) || job.Attempts >= maxAttempts {
		w.fail(closeCtx, log, job, ij, err)
		return
	}
	next := a.clock().Add(backoff(job.Attempts, workerMaxBackoff))
	log.Warnf("intent fallat, es reintentarà a partir de %s: %s", next.Format(time.RFC3339), truncateError(err, errorMessageMaxLen))
	if rerr := a.DB.RequeueImportJob(closeCtx, job.ID, next, truncateError(err, errorMessageMaxLen)); rerr != nil {
		log.Errorf("no puc reencuar el treball: %v", rerr)
	}
}

func (w *ImportWorker) fail(ctx context.Context, log *logrus.Entry, job *db.ImportJob, ij *GedcomImportJob, cause error) {
	if err := w.app.DB.FinishImportJob(ctx, job.ID, db.JobStatusFailed, truncateError(cause, errorMessageMaxLen)); err != nil {
		log.Errorf("no puc tancar el treball: %v", err)
	}
	ij.Failed(ctx, cause)
}
