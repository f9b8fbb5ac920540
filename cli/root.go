package cli

import (
	"fmt"
	"os"

	"github.com/marcmoiagese/ArbreGedcom/cnf"
	"github.com/marcmoiagese/ArbreGedcom/core"
	"github.com/marcmoiagese/ArbreGedcom/db"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfigPath = "cnf/config.cfg"

// configKeys són les claus que es poden sobreescriure amb flags o amb ARBRE_<CLAU>.
var configKeys = []string{
	"DB_ENGINE", "DB_PATH", "DB_HOST", "DB_USR", "DB_PASS", "DB_PORT", "DB_NAME", "DB_SSLMODE",
	"RECREADB", "LOG_LEVEL", "ENVIRONMENT", "GEDCOM_ROOT", "GEDCOM_MAX_UPLOAD_MB",
	"IMPORT_MAX_ATTEMPTS", "IMPORT_TIMEOUT_SECONDS", "IMPORT_WORKER_POLL_SECONDS",
	"IMPORT_WORKER_BATCH", "IMPORT_WORKER_CONCURRENCY", "IMPORT_WORKER_PER_USER",
	"IMPORT_LOCK_TTL_SECONDS", "METRICS_ADDR",
}

type rootOptions struct {
	configPath string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{v: viper.New()})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "arbregedcom",
		Short:         "Importació i exportació d'arbres GEDCOM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfigPath, "fitxer de configuració (.cfg clau=valor o .yaml)")
	flags.String("log-level", "", "nivell de log (debug, info, warn, error, silent)")
	flags.String("db-engine", "", "motor de BD (sqlite, postgres, mysql)")
	flags.String("db-path", "", "camí de la BD sqlite")
	flags.String("gedcom-root", "", "directori on es desen les pujades")
	_ = opts.v.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
	_ = opts.v.BindPFlag("DB_ENGINE", flags.Lookup("db-engine"))
	_ = opts.v.BindPFlag("DB_PATH", flags.Lookup("db-path"))
	_ = opts.v.BindPFlag("GEDCOM_ROOT", flags.Lookup("gedcom-root"))
	opts.v.SetEnvPrefix("ARBRE")
	opts.v.AutomaticEnv()

	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newCleanDateCmd())
	cmd.AddCommand(newSchemaCmd(opts))
	cmd.AddCommand(newTreeCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newEnqueueCmd(opts))
	cmd.AddCommand(newProgressCmd(opts))
	cmd.AddCommand(newWorkerCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// config llegeix .env, el fitxer de configuració si existeix i hi aplica els flags i ARBRE_*.
func (o *rootOptions) config() (map[string]string, error) {
	if err := cnf.LoadEnvFiles(".env"); err != nil {
		return nil, err
	}
	cfg := map[string]string{}
	if _, err := os.Stat(o.configPath); err == nil {
		loaded, err := cnf.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if o.configPath != defaultConfigPath {
		return nil, errors.Wrapf(err, "no trobo el fitxer de configuració %s", o.configPath)
	}
	for _, key := range configKeys {
		if o.v.IsSet(key) {
			cfg[key] = o.v.GetString(key)
		}
	}
	return cfg, nil
}

func (o *rootOptions) openApp() (*core.App, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	database, err := db.NewDB(cfg)
	if err != nil {
		return nil, err
	}
	app, err := core.NewApp(cfg, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	return app, nil
}
