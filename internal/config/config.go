// Package config implements the layered configuration resolver: CLI flag
// ≺ environment variable ≺ per-repo .lb/config.jsonc ≺ global
// ~/.config/lb/config.jsonc ≺ hard-coded defaults, built on
// github.com/spf13/viper, which natively models exactly this priority chain.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RepoScope is one of label, project, both.
type RepoScope string

const (
	ScopeLabel   RepoScope = "label"
	ScopeProject RepoScope = "project"
	ScopeBoth    RepoScope = "both"
)

// Config is the fully resolved, merged configuration.
type Config struct {
	APIKey         string    `mapstructure:"api_key"`
	TeamKey        string    `mapstructure:"team_key"`
	RepoName       string    `mapstructure:"repo_name"`
	RepoScope      RepoScope `mapstructure:"repo_scope"`
	UseIssueTypes  bool      `mapstructure:"use_issue_types"`
	CacheTTLSeconds int      `mapstructure:"cache_ttl_seconds"`
	LocalOnly      bool      `mapstructure:"local_only"`

	RepoRoot string `mapstructure:"-"`
}

// Resolve builds a Config by merging, in increasing priority, defaults,
// the global file, the per-repo file, environment variables, and flags
// already registered on fs.
func Resolve(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("api_key", "")
	v.SetDefault("team_key", "")
	v.SetDefault("repo_name", "")
	v.SetDefault("repo_scope", string(ScopeLabel))
	v.SetDefault("use_issue_types", false)
	v.SetDefault("cache_ttl_seconds", 120)
	v.SetDefault("local_only", false)

	repoRoot := FindRepoRoot(mustGetwd())

	if globalDir, err := GlobalConfigDir(); err == nil {
		if err := mergeJSONC(v, filepath.Join(globalDir, "config.jsonc")); err != nil {
			return nil, err
		}
		if err := mergeJSONC(v, filepath.Join(globalDir, "config.json")); err != nil {
			return nil, err
		}
	}

	if err := mergeJSONC(v, filepath.Join(StateDir(repoRoot), "config.jsonc")); err != nil {
		return nil, err
	}
	if err := mergeJSONC(v, filepath.Join(StateDir(repoRoot), "config.json")); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("LB")
	_ = v.BindEnv("team_key", "LB_TEAM_KEY")
	_ = v.BindEnv("repo_name", "LB_REPO_NAME")
	_ = v.BindEnv("api_key", "LINEAR_API_KEY")
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
		if f := fs.Lookup("team"); f != nil {
			_ = v.BindPFlag("team_key", f)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.RepoRoot = repoRoot

	if cfg.RepoName == "" {
		cfg.RepoName = filepath.Base(repoRoot)
	}
	if !cfg.RepoScope.Valid() {
		cfg.RepoScope = ScopeLabel
	}
	if cfg.CacheTTLSeconds <= 0 {
		cfg.CacheTTLSeconds = 120
	}
	return &cfg, nil
}

func (s RepoScope) Valid() bool {
	switch s {
	case ScopeLabel, ScopeProject, ScopeBoth:
		return true
	}
	return false
}

// mergeJSONC merges a JSON-with-comments file into v if it exists;
// missing files are not an error.
func mergeJSONC(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path built from trusted config roots
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	v.SetConfigType("json")
	if err := v.MergeConfig(bytes.NewReader(stripJSONComments(data))); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
