package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcmoiagese/ArbreGedcom/core/gedcom"
	"github.com/marcmoiagese/ArbreGedcom/db"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const sniffBytes = 3072

var (
	ErrInvalidExtension = errors.New("el fitxer ha de tenir extensió .ged o .gedcom")
	ErrFileTooLarge     = errors.New("el fitxer supera la mida màxima permesa")
	ErrNotText          = errors.New("el fitxer no és un GEDCOM de text")
	ErrTreeNotFound     = errors.New("arbre inexistent o d'un altre usuari")
	ErrImportInProgress = errors.New("ja hi ha una importació en curs per aquest arbre")
)

// EnqueueGedcomImport desa el fitxer pujat a GEDCOM_ROOT/<usuari>/, deixa el progrés a PENDING
// i encua el treball. El fitxer passa a ser propietat del treball.
func (a *App) EnqueueGedcomImport(ctx context.Context, r io.Reader, name string, treeID, userID int) (*db.ImportJob, error) {
	targetPath, err := a.stageUpload(ctx, r, name, treeID, userID)
	if err != nil {
		return nil, err
	}
	job := &db.ImportJob{
		JobUUID:          uuid.NewString(),
		UserID:           userID,
		TreeID:           treeID,
		FilePath:         targetPath,
		OriginalFilename: filepath.Base(name),
		MaxAttempts:      a.Settings.ImportMaxAttempts,
		AvailableAt:      a.clock(),
	}
	if _, err := a.DB.CreateImportJob(ctx, job); err != nil {
		_ = os.Remove(targetPath)
		return nil, err
	}
	logEntry(logrus.Fields{"job_uuid": job.JobUUID, "tree_id": treeID, "user_id": userID}).
		Infof("importació encuada: %s", job.OriginalFilename)
	return job, nil
}

// ImportGedcomNow fa la mateixa preparació que EnqueueGedcomImport però executa la
// importació en aquest procés, amb reintents, sense passar per la cua.
func (a *App) ImportGedcomNow(ctx context.Context, r io.Reader, name string, treeID, userID int, observer ImportObserver) (*GedcomImportJob, error) {
	targetPath, err := a.stageUpload(ctx, r, name, treeID, userID)
	if err != nil {
		return nil, err
	}
	job := a.NewGedcomImportJob(GedcomImportPayload{
		FilePath:         targetPath,
		TreeID:           treeID,
		UserID:           userID,
		OriginalFileName: filepath.Base(name),
		JobUUID:          uuid.NewString(),
	})
	job.Observer = observer
	return job, job.Run(ctx)
}

// stageUpload valida la petició, desa el fitxer i reinicia el progrés a PENDING.
func (a *App) stageUpload(ctx context.Context, r io.Reader, name string, treeID, userID int) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".ged" && ext != ".gedcom" {
		return "", ErrInvalidExtension
	}
	tree, err := a.DB.GetTree(ctx, treeID)
	if err != nil {
		return "", err
	}
	if tree == nil || tree.OwnerUserID != userID {
		return "", ErrTreeNotFound
	}
	progress, err := a.DB.GetImportProgress(ctx, userID, treeID)
	if err != nil {
		return "", err
	}
	if progress != nil && progress.Status == db.ImportStatusProcessing {
		return "", ErrImportInProgress
	}
	active, err := a.DB.HasActiveImportJob(ctx, userID, treeID)
	if err != nil {
		return "", err
	}
	if active {
		return "", ErrImportInProgress
	}

	targetPath, err := a.storeUpload(r, name, userID)
	if err != nil {
		return "", err
	}
	if err := a.DB.ResetImportProgress(ctx, userID, treeID); err != nil {
		_ = os.Remove(targetPath)
		return "", err
	}
	return targetPath, nil
}

func (a *App) storeUpload(r io.Reader, name string, userID int) (string, error) {
	maxBytes := int64(a.Settings.GedcomMaxUploadMB) * 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	safeName := sanitizeFilename(name)
	if safeName == "" {
		safeName = "gedcom.ged"
	}
	userDir := filepath.Join(a.Settings.GedcomRoot, fmt.Sprintf("%d", userID))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", errors.Wrap(err, "no puc crear el directori de pujades")
	}
	targetPath := filepath.Join(userDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), safeName))
	out, err := os.Create(targetPath)
	if err != nil {
		return "", errors.Wrap(err, "no puc crear el fitxer")
	}

	size, err := io.Copy(out, io.LimitReader(r, maxBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(targetPath)
		return "", errors.Wrap(err, "no puc desar el fitxer")
	}
	if size > maxBytes {
		_ = os.Remove(targetPath)
		return "", ErrFileTooLarge
	}
	if size > 0 {
		head, err := readHead(targetPath, sniffBytes)
		if err != nil {
			_ = os.Remove(targetPath)
			return "", err
		}
		if !gedcom.IsText(head) {
			_ = os.Remove(targetPath)
			return "", ErrNotText
		}
	}
	return targetPath, nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:read], nil
}
