package cnf

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadYAML llegeix un fitxer YAML i l'aplana a les mateixes claus que LoadConfig.
// Les seccions niades s'uneixen amb '_' en majúscules: db.engine → DB_ENGINE.
func LoadYAML(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error obrint fitxer de configuració")
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := yaml.NewDecoder(file).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "error decodificant YAML")
	}

	config := make(map[string]string)
	flatten("", raw, config)
	Config = config
	return config, nil
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := strings.ToUpper(strings.TrimSpace(k))
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch v := node[k].(type) {
		case map[string]interface{}:
			flatten(key, v, out)
		case nil:
			out[key] = ""
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}

// LoadEnvFiles carrega fitxers .env a l'entorn del procés sense trepitjar variables ja definides.
// Els fitxers que no existeixen s'ignoren.
func LoadEnvFiles(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return errors.Wrap(godotenv.Load(existing...), "error carregant .env")
}
