package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marcmoiagese/ArbreGedcom/db"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadedFiles(t *testing.T, app *App) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(app.Settings.GedcomRoot, "*", "*"))
	require.NoError(t, err)
	return matches
}

func TestEnqueueGedcomImportQueuesJob(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, nil)
	treeID := createTree(t, app, 5)

	job, err := app.EnqueueGedcomImport(ctx, strings.NewReader(familyGedcom), "../Família Vidal.ged", treeID, 5)
	require.NoError(t, err)

	_, err = uuid.Parse(job.JobUUID)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(app.Settings.GedcomRoot, "5"), filepath.Dir(job.FilePath))
	assert.NotContains(t, filepath.Base(job.FilePath), "..")
	assert.Equal(t, "Família Vidal.ged", job.OriginalFilename)

	data, err := os.ReadFile(job.FilePath)
	require.NoError(t, err)
	assert.Equal(t, familyGedcom, string(data))

	stored, err := app.DB.GetImportJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, db.JobStatusQueued, stored.Status)
	assert.Equal(t, 0, stored.Attempts)
	assert.Equal(t, 3, stored.MaxAttempts)

	progress, err := app.ImportProgress(ctx, 5, treeID)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, db.ImportStatusPending, progress.Status)
	assert.Equal(t, 0, progress.ProcessedRecords)
}

func TestEnqueueGedcomImportRejections(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, map[string]string{"GEDCOM_MAX_UPLOAD_MB": "1"})
	treeID := createTree(t, app, 5)

	tests := []struct {
		name    string
		content []byte
		file    string
		treeID  int
		userID  int
		want    error
	}{
		{"extensió", []byte(johnSmith), "arbre.txt", treeID, 5, ErrInvalidExtension},
		{"arbre d'un altre usuari", []byte(johnSmith), "arbre.ged", treeID, 6, ErrTreeNotFound},
		{"arbre inexistent", []byte(johnSmith), "arbre.ged", 999, 5, ErrTreeNotFound},
		{"massa gran", bytes.Repeat([]byte("1 NOTE x\n"), 130000), "arbre.gedcom", treeID, 5, ErrFileTooLarge},
		{"binari", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x00"), "arbre.ged", treeID, 5, ErrNotText},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := app.EnqueueGedcomImport(ctx, bytes.NewReader(tc.content), tc.file, tc.treeID, tc.userID)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "error inesperat: %v", err)
		})
	}
	assert.Empty(t, uploadedFiles(t, app), "cap rebuig ha de deixar fitxers")

	progress, err := app.ImportProgress(ctx, 5, treeID)
	require.NoError(t, err)
	assert.Nil(t, progress)
}

func TestEnqueueGedcomImportRejectsWhileProcessing(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, nil)
	treeID := createTree(t, app, 5)
	require.NoError(t, app.DB.ResetImportProgress(ctx, 5, treeID))
	require.NoError(t, app.DB.MarkImportProcessing(ctx, 5, treeID, time.Now()))

	_, err := app.EnqueueGedcomImport(ctx, strings.NewReader(johnSmith), "arbre.ged", treeID, 5)
	assert.ErrorIs(t, err, ErrImportInProgress)
	assert.Empty(t, uploadedFiles(t, app))
}

func TestEnqueueGedcomImportRejectsWhileQueued(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, nil)
	treeID := createTree(t, app, 5)

	first, err := app.EnqueueGedcomImport(ctx, strings.NewReader(familyGedcom), "primer.ged", treeID, 5)
	require.NoError(t, err)

	_, err = app.EnqueueGedcomImport(ctx, strings.NewReader("0 @I9@ INDI\n1 NAME Pere /Roca/\n"), "segon.ged", treeID, 5)
	assert.ErrorIs(t, err, ErrImportInProgress)
	_, err = app.ImportGedcomNow(ctx, strings.NewReader(johnSmith), "ara.ged", treeID, 5, nil)
	assert.ErrorIs(t, err, ErrImportInProgress)
	assert.Equal(t, []string{first.FilePath}, uploadedFiles(t, app), "només queda el fitxer del primer treball")

	started, err := app.NewImportWorker().RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, started)
	done, err := app.DB.GetImportJob(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, db.JobStatusDone, done.Status)

	second, err := app.EnqueueGedcomImport(ctx, strings.NewReader("0 @I9@ INDI\n1 NAME Pere /Roca/\n"), "segon.ged", treeID, 5)
	require.NoError(t, err, "un cop acabat el primer, es pot tornar a pujar")
	_, err = app.NewImportWorker().RunOnce(ctx)
	require.NoError(t, err)
	job, err := app.DB.GetImportJob(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, db.JobStatusDone, job.Status)
	progress, err := app.ImportProgress(ctx, 5, treeID)
	require.NoError(t, err)
	assert.Equal(t, db.ImportStatusCompleted, progress.Status)
	rows, err := app.DB.ListIndividuals(ctx, treeID)
	require.NoError(t, err)
	var xrefs []string
	for _, r := range rows {
		xrefs = append(xrefs, r.GedcomXref.String)
	}
	assert.Contains(t, xrefs, "@I9@", "el segon fitxer s'ha importat")
}

func TestEnqueueGedcomImportAfterCompletedImport(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, nil)
	treeID := createTree(t, app, 5)

	_, err := app.EnqueueGedcomImport(ctx, strings.NewReader(johnSmith), "arbre.ged", treeID, 5)
	require.NoError(t, err)
	_, err = app.NewImportWorker().RunOnce(ctx)
	require.NoError(t, err)

	_, err = app.EnqueueGedcomImport(ctx, strings.NewReader(familyGedcom), "arbre.ged", treeID, 5)
	require.NoError(t, err)
	progress, err := app.ImportProgress(ctx, 5, treeID)
	require.NoError(t, err)
	assert.Equal(t, db.ImportStatusPending, progress.Status, "una nova pujada reinicia el progrés")
	assert.False(t, progress.SummaryJSON.Valid)
}

func TestImportGedcomNowKeepsCallerFile(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, nil)
	treeID := createTree(t, app, 5)
	source := writeGedcom(t, t.TempDir(), familyGedcom)

	f, err := os.Open(source)
	require.NoError(t, err)
	defer f.Close()

	var last, total int
	job, err := app.ImportGedcomNow(ctx, f, source, treeID, 5, func(done, n int) { last, total = done, n })
	require.NoError(t, err)
	assert.Equal(t, 4, last)
	assert.Equal(t, 4, total)

	_, err = os.Stat(source)
	assert.NoError(t, err, "el fitxer original no es toca")
	_, err = os.Stat(job.Payload.FilePath)
	assert.True(t, os.IsNotExist(err), "la còpia de treball s'esborra")

	progress, err := app.ImportProgress(ctx, 5, treeID)
	require.NoError(t, err)
	assert.Equal(t, db.ImportStatusCompleted, progress.Status)
}
