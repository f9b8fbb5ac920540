package core

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marcmoiagese/ArbreGedcom/db"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const johnSmith = "0 @I1@ INDI\n1 NAME John /Smith/\n1 SEX M\n"

const familyGedcom = `0 HEAD
1 SOUR Test
1 CHAR UTF-8
0 @I1@ INDI
1 NAME John /Smith/
2 _AKA Johnny
1 SEX M
1 BIRT
2 DATE 12 MAR 1850
2 PLAC Barcelona
2 _WEATHER sunny
1 DEAT
2 DATE BEF 1920
1 _UID ABC123
1 _CUSTOM top
2 _SUB one
3 _DEEP two
1 FAMS @F1@
1 NOTE line one
2 CONT line two
0 @I2@ INDI
1 NAME Mary /Jones/
1 SEX F
1 FAMS @F1@
0 @I3@ INDI
1 NAME Peter /Smith/
1 SEX M
1 FAMC @F1@
1 SOUR @S1@
0 @F1@ FAM
1 HUSB @I1@
1 WIFE @I2@
1 CHIL @I3@
1 MARR
2 DATE BET 1870 AND 1875
2 PLAC Girona
1 _MARRTYPE civil
0 @S1@ SOUR
1 TITL Parish book
1 REPO @R1@
2 CALN 42
0 @R1@ REPO
1 NAME Archive
1 _OPENING weekdays
0 @N1@ NOTE Shared note
0 @O1@ OBJE
1 FILE photo.jpg
1 FORM jpg
0 TRLR
`

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestApp(t *testing.T, extra map[string]string) *App {
	t.Helper()
	cfg := map[string]string{
		"DB_ENGINE":   "sqlite",
		"DB_PATH":     filepath.Join(t.TempDir(), "arbre.sqlite3"),
		"RECREADB":    "true",
		"LOG_LEVEL":   "silent",
		"GEDCOM_ROOT": filepath.Join(t.TempDir(), "uploads"),
	}
	for k, v := range extra {
		cfg[k] = v
	}
	database, err := db.NewDB(cfg)
	require.NoError(t, err)
	app, err := NewApp(cfg, database)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func createTree(t *testing.T, app *App, ownerID int) int {
	t.Helper()
	id, err := app.DB.CreateTree(context.Background(), &db.Tree{OwnerUserID: ownerID, Name: "Arbre de prova"})
	require.NoError(t, err)
	return id
}

func writeGedcom(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "prova.ged")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

var errDiskFull = errors.New("disc ple")

// failingDB fa fallar la persistència d'un tipus d'entitat dins de la transacció.
type failingDB struct {
	db.DB
	failOn string
}

func (f *failingDB) WithTx(ctx context.Context, fn func(tx db.GedcomTx) error) error {
	return f.DB.WithTx(ctx, func(tx db.GedcomTx) error {
		return fn(&failingTx{GedcomTx: tx, failOn: f.failOn})
	})
}

type failingTx struct {
	db.GedcomTx
	failOn string
}

func (t *failingTx) UpsertIndividual(ctx context.Context, ind *db.Individual) (int, error) {
	if t.failOn == "individual" {
		return 0, errDiskFull
	}
	return t.GedcomTx.UpsertIndividual(ctx, ind)
}

func (t *failingTx) UpsertFamily(ctx context.Context, fam *db.Family) (int, error) {
	if t.failOn == "family" {
		return 0, errDiskFull
	}
	return t.GedcomTx.UpsertFamily(ctx, fam)
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	_, err := NewApp(map[string]string{"IMPORT_MAX_ATTEMPTS": "zero"}, nil)
	require.Error(t, err)
}
