package cnf

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config – Variable pública amb les opcions de configuració
var Config map[string]string

// AppConfig – Configuració tipada per facilitar l'ús
type AppConfig struct {
	DBEngine  string
	DBPath    string
	RecreaDB  bool
	LogLevel  string
	Env       string
	DBHost    string
	DBUser    string
	DBPass    string
	DBPort    string
	DBName    string
	DBSSLMode string

	GedcomRoot        string
	GedcomMaxUploadMB int

	ImportMaxAttempts       int
	ImportTimeout           time.Duration
	ImportWorkerPoll        time.Duration
	ImportWorkerBatch       int
	ImportWorkerConcurrency int
	ImportWorkerPerUser     int
	ImportLockTTL           time.Duration

	MetricsAddr string
}

// Valors per defecte de la cua d'importació.
const (
	DefaultGedcomMaxUploadMB       = 10
	DefaultImportMaxAttempts       = 3
	DefaultImportTimeoutSeconds    = 300
	DefaultImportWorkerPollSeconds = 5
	DefaultImportWorkerBatch       = 10
	DefaultImportWorkerConcurrency = 4
	DefaultImportWorkerPerUser     = 1
	DefaultImportLockTTLSeconds    = 900
)

// LoadConfig carrega el fitxer en format clau=valor, ignorant línies buides o comentaris.
func LoadConfig(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "no s'ha pogut obrir el fitxer de configuració")
	}
	defer file.Close()

	config := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if value != "" {
				commentIdx := -1
				for _, marker := range []string{" #", "\t#", " ;", "\t;"} {
					if idx := strings.Index(value, marker); idx >= 0 && (commentIdx == -1 || idx < commentIdx) {
						commentIdx = idx
					}
				}
				if commentIdx >= 0 {
					value = strings.TrimSpace(value[:commentIdx])
				}
			}
			config[key] = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error llegint config")
	}

	Config = config
	return config, nil
}

// Load tria el lector segons l'extensió: .yaml/.yml per YAML, qualsevol altra com clau=valor.
func Load(path string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadConfig(path)
	}
}

// ParseConfig converteix map[string]string en AppConfig amb valors per defecte.
// Les claus absents del mapa es busquen a l'entorn del procés.
func ParseConfig(cfg map[string]string) (AppConfig, error) {
	get := func(key string) string {
		if v, ok := cfg[key]; ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(os.Getenv(key))
	}

	ac := AppConfig{
		DBEngine:    get("DB_ENGINE"),
		DBPath:      get("DB_PATH"),
		LogLevel:    get("LOG_LEVEL"),
		Env:         get("ENVIRONMENT"),
		DBHost:      get("DB_HOST"),
		DBUser:      get("DB_USR"),
		DBPass:      get("DB_PASS"),
		DBPort:      get("DB_PORT"),
		DBName:      get("DB_NAME"),
		DBSSLMode:   get("DB_SSLMODE"),
		GedcomRoot:  get("GEDCOM_ROOT"),
		MetricsAddr: get("METRICS_ADDR"),
	}

	if ac.DBEngine == "" {
		ac.DBEngine = "sqlite"
	}
	if ac.DBPath == "" {
		ac.DBPath = "./database.db"
	}
	if ac.LogLevel == "" {
		ac.LogLevel = "info"
	}
	if ac.Env == "" {
		ac.Env = "development"
	}
	if ac.GedcomRoot == "" {
		ac.GedcomRoot = filepath.Join(os.TempDir(), "arbregedcom")
	}

	if v := get("RECREADB"); v != "" {
		ac.RecreaDB, _ = strconv.ParseBool(strings.ToLower(v))
	}

	ints := []struct {
		key  string
		dest *int
		def  int
	}{
		{"GEDCOM_MAX_UPLOAD_MB", &ac.GedcomMaxUploadMB, DefaultGedcomMaxUploadMB},
		{"IMPORT_MAX_ATTEMPTS", &ac.ImportMaxAttempts, DefaultImportMaxAttempts},
		{"IMPORT_WORKER_BATCH", &ac.ImportWorkerBatch, DefaultImportWorkerBatch},
		{"IMPORT_WORKER_CONCURRENCY", &ac.ImportWorkerConcurrency, DefaultImportWorkerConcurrency},
		{"IMPORT_WORKER_PER_USER", &ac.ImportWorkerPerUser, DefaultImportWorkerPerUser},
	}
	for _, it := range ints {
		n, err := positiveInt(it.key, get(it.key), it.def)
		if err != nil {
			return ac, err
		}
		*it.dest = n
	}

	durations := []struct {
		key  string
		dest *time.Duration
		def  int
	}{
		{"IMPORT_TIMEOUT_SECONDS", &ac.ImportTimeout, DefaultImportTimeoutSeconds},
		{"IMPORT_WORKER_POLL_SECONDS", &ac.ImportWorkerPoll, DefaultImportWorkerPollSeconds},
		{"IMPORT_LOCK_TTL_SECONDS", &ac.ImportLockTTL, DefaultImportLockTTLSeconds},
	}
	for _, it := range durations {
		n, err := positiveInt(it.key, get(it.key), it.def)
		if err != nil {
			return ac, err
		}
		*it.dest = time.Duration(n) * time.Second
	}

	return ac, nil
}

// DBMap retorna les claus que espera db.NewDB.
func (ac AppConfig) DBMap() map[string]string {
	return map[string]string{
		"DB_ENGINE":  ac.DBEngine,
		"DB_PATH":    ac.DBPath,
		"DB_HOST":    ac.DBHost,
		"DB_PORT":    ac.DBPort,
		"DB_USR":     ac.DBUser,
		"DB_PASS":    ac.DBPass,
		"DB_NAME":    ac.DBName,
		"DB_SSLMODE": ac.DBSSLMode,
		"RECREADB":   strconv.FormatBool(ac.RecreaDB),
		"LOG_LEVEL":  ac.LogLevel,
	}
}

func positiveInt(key, raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.Errorf("valor no vàlid per %s: %q", key, raw)
	}
	return n, nil
}
