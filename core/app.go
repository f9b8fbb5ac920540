package core

import (
	"context"
	"time"

	"github.com/marcmoiagese/ArbreGedcom/cnf"
	"github.com/marcmoiagese/ArbreGedcom/db"
)

// App encapsula dependències compartides per evitar reobrir recursos per petició.
type App struct {
	Config   map[string]string
	Settings cnf.AppConfig
	DB       db.DB
	Notifier Notifier

	now     func() time.Time
	workers *importWorkerState
}

func NewApp(cfg map[string]string, database db.DB) (*App, error) {
	settings, err := cnf.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	SetLogLevel(settings.LogLevel)
	return &App{
		Config:   cfg,
		Settings: settings,
		DB:       database,
		Notifier: &dbNotifier{db: database},
		now:      time.Now,
		workers:  newImportWorkerState(),
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func (a *App) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

// ImportProgress retorna l'estat d'importació del parell (user, tree), o nil si no n'hi ha.
func (a *App) ImportProgress(ctx context.Context, userID, treeID int) (*db.ImportProgress, error) {
	return a.DB.GetImportProgress(ctx, userID, treeID)
}
