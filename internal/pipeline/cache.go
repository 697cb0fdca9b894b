package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verigraph/verigraph/internal/config"
	"github.com/verigraph/verigraph/internal/facts"
)

const tablesCacheVersion = 1

// tablesCache is the on-disk snapshot of the last run's fact tables.
// Rules evaluate against a delta from this snapshot instead of a cold start.
type tablesCache struct {
	Version    int          `json:"version"`
	ConfigHash string       `json:"config_hash"`
	Tables     facts.Tables `json:"tables"`
}

func loadTablesCache(dir, cfgHash string) (facts.Tables, bool, error) {
	path := filepath.Join(dir, "fact_tables.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return facts.Tables{}, false, nil
		}
		return facts.Tables{}, false, fmt.Errorf("read fact tables cache: %w", err)
	}
	var cache tablesCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return facts.Tables{}, false, fmt.Errorf("parse fact tables cache: %w", err)
	}
	if cache.Version != tablesCacheVersion || cache.ConfigHash != cfgHash {
		return facts.Tables{}, false, nil
	}
	return cache.Tables, true, nil
}

func saveTablesCache(dir, cfgHash string, tables facts.Tables) error {
	cache := tablesCache{
		Version:    tablesCacheVersion,
		ConfigHash: cfgHash,
		Tables:     tables,
	}
	if err := writeJSONAtomic(filepath.Join(dir, "fact_tables.json"), cache); err != nil {
		return fmt.Errorf("write fact tables cache: %w", err)
	}
	return nil
}

// configHash fingerprints the parts of the config that change rule results.
// A stale snapshot under a different rule setup must not feed a delta.
func configHash(cfg *config.Config) string {
	data, err := json.Marshal(struct {
		Severities map[string]string `json:"severities"`
		Dir        string            `json:"dir"`
	}{cfg.Rules.Severities, cfg.Rules.Dir})
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func resolveCacheDir(cfg *config.Config, rootPath string) string {
	dir := cfg.Analysis.CacheDir
	if dir == "" {
		return ""
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootPath, dir)
	}
	return dir
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}
