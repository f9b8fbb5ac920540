package db

import (
	"context"
	"embed"
	"time"

	"github.com/pkg/errors"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// ErrInvalidTransition es retorna quan un canvi d'estat d'ImportProgress no és permès.
var ErrInvalidTransition = errors.New("transició d'estat d'importació no permesa")

// DB és la interfície comuna dels motors suportats (sqlite, postgres, mysql).
type DB interface {
	Connect() error
	Close()
	Style() string

	// WithTx executa fn dins d'una transacció: commit si retorna nil, rollback si no.
	WithTx(ctx context.Context, fn func(tx GedcomTx) error) error
	CreateSchema(ctx context.Context) error

	// Arbres
	CreateTree(ctx context.Context, t *Tree) (int, error)
	GetTree(ctx context.Context, id int) (*Tree, error)
	DeleteTree(ctx context.Context, id int) error
	CountTreeRows(ctx context.Context, treeID int) (TreeCounts, error)

	// Lectura d'entitats d'un arbre
	ListIndividuals(ctx context.Context, treeID int) ([]Individual, error)
	ListFamilies(ctx context.Context, treeID int) ([]Family, error)
	ListFamilyChildren(ctx context.Context, treeID int) ([]FamilyChild, error)
	ListSources(ctx context.Context, treeID int) ([]Source, error)
	ListRepositories(ctx context.Context, treeID int) ([]Repository, error)
	ListNotes(ctx context.Context, treeID int) ([]Note, error)
	ListMedia(ctx context.Context, treeID int) ([]Media, error)
	ListEvents(ctx context.Context, treeID int) ([]Event, error)

	// Progrés d'importació
	ResetImportProgress(ctx context.Context, userID, treeID int) error
	GetImportProgress(ctx context.Context, userID, treeID int) (*ImportProgress, error)
	ListImportProgress(ctx context.Context, f ImportProgressFilter) ([]ImportProgress, error)
	MarkImportProcessing(ctx context.Context, userID, treeID int, at time.Time) error
	SetImportTotals(ctx context.Context, userID, treeID, total int) error
	MarkImportCompleted(ctx context.Context, userID, treeID, processed int, summaryJSON string, at time.Time) error
	MarkImportFailed(ctx context.Context, userID, treeID int, message string, at time.Time) error

	// Cua de treballs
	CreateImportJob(ctx context.Context, j *ImportJob) (int, error)
	GetImportJob(ctx context.Context, id int) (*ImportJob, error)
	ClaimImportJob(ctx context.Context, now time.Time, lockTTL time.Duration) (*ImportJob, error)
	RequeueImportJob(ctx context.Context, id int, availableAt time.Time, lastError string) error
	ReleaseImportJob(ctx context.Context, id int, availableAt time.Time) error
	FinishImportJob(ctx context.Context, id int, status, lastError string) error
	HasActiveImportJob(ctx context.Context, userID, treeID int) (bool, error)

	// Notificacions
	CreateImportNotification(ctx context.Context, n *ImportNotification) (bool, error)
	ListImportNotifications(ctx context.Context, userID int) ([]ImportNotification, error)
}

// GedcomTx són les escriptures d'una importació, totes dins la mateixa transacció.
type GedcomTx interface {
	UpsertIndividual(ctx context.Context, ind *Individual) (int, error)
	UpsertFamily(ctx context.Context, fam *Family) (int, error)
	ReplaceFamilyChildren(ctx context.Context, familyID int, children []FamilyChild) error
	UpsertSource(ctx context.Context, src *Source) (int, error)
	UpsertRepository(ctx context.Context, repo *Repository) (int, error)
	UpsertNote(ctx context.Context, n *Note) (int, error)
	UpsertMedia(ctx context.Context, m *Media) (int, error)
	ReplaceEvents(ctx context.Context, owner EventOwner, events []Event) error
}

// NewDB crea i connecta el motor indicat a DB_ENGINE. Amb RECREADB=true aplica l'esquema.
func NewDB(config map[string]string) (DB, error) {
	var dbInstance DB
	engine := config["DB_ENGINE"]

	switch engine {
	case "sqlite", "":
		path := config["DB_PATH"]
		if path == "" {
			path = "./database.db"
		}
		dbInstance = &SQLite{Path: path}
	case "postgres":
		dbInstance = &PostgreSQL{
			Host:    config["DB_HOST"],
			Port:    config["DB_PORT"],
			User:    config["DB_USR"],
			Pass:    config["DB_PASS"],
			DBName:  config["DB_NAME"],
			SSLMode: config["DB_SSLMODE"],
		}
	case "mysql":
		dbInstance = &MySQL{
			Host:   config["DB_HOST"],
			Port:   config["DB_PORT"],
			User:   config["DB_USR"],
			Pass:   config["DB_PASS"],
			DBName: config["DB_NAME"],
		}
	default:
		return nil, errors.Errorf("motor de BD desconegut: %s", engine)
	}

	if err := dbInstance.Connect(); err != nil {
		return nil, err
	}

	if config["RECREADB"] == "true" {
		if err := dbInstance.CreateSchema(context.Background()); err != nil {
			dbInstance.Close()
			return nil, errors.Wrapf(err, "error recreant BD amb %s", engine)
		}
	}

	return dbInstance, nil
}

func schemaFor(style string) (string, error) {
	data, err := schemaFiles.ReadFile("schema/" + style + ".sql")
	if err != nil {
		return "", errors.Wrapf(err, "no hi ha esquema per %s", style)
	}
	return string(data), nil
}
