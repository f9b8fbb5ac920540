package cnf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("no puc escriure %s: %v", name, err)
	}
	return path
}

func TestLoadConfigStripsComments(t *testing.T) {
	path := writeFile(t, "app.cfg", "# comentari\nDB_ENGINE = sqlite # motor\n; altre\nGEDCOM_ROOT=/tmp/ged\nBUIT=\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig ha fallat: %v", err)
	}
	if cfg["DB_ENGINE"] != "sqlite" {
		t.Fatalf("DB_ENGINE esperat sqlite, tinc %q", cfg["DB_ENGINE"])
	}
	if cfg["GEDCOM_ROOT"] != "/tmp/ged" {
		t.Fatalf("GEDCOM_ROOT inesperat: %q", cfg["GEDCOM_ROOT"])
	}
	if v, ok := cfg["BUIT"]; !ok || v != "" {
		t.Fatalf("BUIT hauria d'existir buit, tinc %q (%v)", v, ok)
	}
	if Config["DB_ENGINE"] != "sqlite" {
		t.Fatalf("Config global no actualitzat")
	}
}

func TestLoadYAMLFlattensKeys(t *testing.T) {
	path := writeFile(t, "app.yaml", `
db:
  engine: postgres
  host: localhost
  port: 5432
import:
  max_attempts: 5
  timeout_seconds: 60
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load ha fallat: %v", err)
	}
	want := map[string]string{
		"DB_ENGINE":              "postgres",
		"DB_HOST":                "localhost",
		"DB_PORT":                "5432",
		"IMPORT_MAX_ATTEMPTS":    "5",
		"IMPORT_TIMEOUT_SECONDS": "60",
		"LOG_LEVEL":              "debug",
	}
	for k, v := range want {
		if cfg[k] != v {
			t.Fatalf("%s esperat %q, tinc %q", k, v, cfg[k])
		}
	}
}

func TestParseConfigDefaults(t *testing.T) {
	ac, err := ParseConfig(map[string]string{"DB_ENGINE": "sqlite", "LOG_LEVEL": "", "GEDCOM_ROOT": "/tmp/g"})
	if err != nil {
		t.Fatalf("ParseConfig ha fallat: %v", err)
	}
	if ac.ImportMaxAttempts != 3 {
		t.Fatalf("intents per defecte esperats 3, tinc %d", ac.ImportMaxAttempts)
	}
	if ac.ImportTimeout != 5*time.Minute {
		t.Fatalf("timeout per defecte esperat 5m, tinc %v", ac.ImportTimeout)
	}
	if ac.GedcomMaxUploadMB != 10 {
		t.Fatalf("mida màxima per defecte esperada 10, tinc %d", ac.GedcomMaxUploadMB)
	}
	if ac.LogLevel != "info" {
		t.Fatalf("nivell de log per defecte esperat info, tinc %q", ac.LogLevel)
	}
	if ac.ImportLockTTL != 15*time.Minute {
		t.Fatalf("TTL de bloqueig inesperat: %v", ac.ImportLockTTL)
	}
}

func TestParseConfigFallsBackToEnv(t *testing.T) {
	t.Setenv("IMPORT_WORKER_CONCURRENCY", "8")
	ac, err := ParseConfig(map[string]string{})
	if err != nil {
		t.Fatalf("ParseConfig ha fallat: %v", err)
	}
	if ac.ImportWorkerConcurrency != 8 {
		t.Fatalf("concurrència esperada 8 des de l'entorn, tinc %d", ac.ImportWorkerConcurrency)
	}
}

func TestParseConfigRejectsInvalidNumbers(t *testing.T) {
	if _, err := ParseConfig(map[string]string{"IMPORT_MAX_ATTEMPTS": "zero"}); err == nil {
		t.Fatalf("esperava error per IMPORT_MAX_ATTEMPTS no numèric")
	}
	if _, err := ParseConfig(map[string]string{"IMPORT_TIMEOUT_SECONDS": "-1"}); err == nil {
		t.Fatalf("esperava error per timeout negatiu")
	}
}

func TestLoadEnvFilesDoesNotOverride(t *testing.T) {
	t.Setenv("ARBRE_TEST_KEEP", "original")
	path := writeFile(t, ".env", "ARBRE_TEST_KEEP=nou\nARBRE_TEST_NEW_KEY=valor\n")
	t.Cleanup(func() { os.Unsetenv("ARBRE_TEST_NEW_KEY") })

	if err := LoadEnvFiles(path, filepath.Join(t.TempDir(), "no-existeix.env")); err != nil {
		t.Fatalf("LoadEnvFiles ha fallat: %v", err)
	}
	if got := os.Getenv("ARBRE_TEST_KEEP"); got != "original" {
		t.Fatalf("no s'havia de sobreescriure, tinc %q", got)
	}
	if got := os.Getenv("ARBRE_TEST_NEW_KEY"); got != "valor" {
		t.Fatalf("ARBRE_TEST_NEW_KEY esperat valor, tinc %q", got)
	}
}
