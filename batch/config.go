package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/gpath"
	"github.com/gnoswap-labs/gpath/pattern"
	"github.com/gnoswap-labs/gpath/query"
)

// DefaultConfigFile is looked up in the working directory when no
// configuration is given.
const DefaultConfigFile = ".gpath.yaml"

// CacheConfig sizes the engine caches. Zero keeps the default size.
type CacheConfig struct {
	Parse   int `yaml:"parse,omitempty" toml:"parse,omitempty"`
	Pattern int `yaml:"pattern,omitempty" toml:"pattern,omitempty"`
	Results int `yaml:"results,omitempty" toml:"results,omitempty"`
}

// Config is the rule configuration of a gpath run.
type Config struct {
	Name      string              `yaml:"name" toml:"name"`
	Cache     CacheConfig         `yaml:"cache,omitempty" toml:"cache,omitempty"`
	Variables map[string]string   `yaml:"variables,omitempty" toml:"variables,omitempty"`
	Queries   []gpath.QueryRule   `yaml:"queries,omitempty" toml:"queries,omitempty"`
	Patterns  []gpath.PatternRule `yaml:"patterns,omitempty" toml:"patterns,omitempty"`
}

// DefaultConfig is the configuration written by gpath init.
func DefaultConfig() Config {
	return Config{
		Name: "gpath",
		Cache: CacheConfig{
			Parse:   gpath.DefaultParseCacheSize,
			Pattern: gpath.DefaultPatternCacheSize,
			Results: gpath.DefaultResultCacheSize,
		},
		Queries: []gpath.QueryRule{{
			Name:       "shouting",
			Expression: "//sentence[count(#word) > 2 and count(#word[isUpperCaseWord(.)]) = count(#word)]",
			Message:    "sentence written in capitals",
		}},
		Patterns: []gpath.PatternRule{{
			Name:    "person",
			Pattern: "'Mr.'? (<fn>|<in>)+ (<i>* <ln>)+ (','? <a>)?",
			Type:    "person",
			Message: "full name",
		}},
	}
}

// LoadConfig reads a YAML or, for a .toml extension, TOML configuration.
func LoadConfig(path string) (Config, error) {
	var config Config

	if filepath.Ext(path) == ".toml" {
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return config, fmt.Errorf("error parsing %s: %w", path, err)
		}
		return config, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&config); err != nil {
		return config, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return config, nil
}

// WriteConfig writes config as YAML.
func WriteConfig(path string, config Config) error {
	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}

// Validate parses every rule and reports all broken ones together.
func (c Config) Validate() error {
	parser := query.NewParser(query.Options{})
	compiler := pattern.NewCompiler(pattern.CompilerOptions{Parser: parser})

	var errs error
	seen := make(map[string]bool)
	checkName := func(name string) {
		switch {
		case name == "":
			errs = multierr.Append(errs, fmt.Errorf("rule without a name"))
		case seen[name]:
			errs = multierr.Append(errs, fmt.Errorf("duplicate rule %s", name))
		}
		seen[name] = true
	}

	for _, r := range c.Queries {
		checkName(r.Name)
		if _, err := parser.ParseExpression(r.Expression); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("query %s: %w", r.Name, err))
		}
	}
	for _, r := range c.Patterns {
		checkName(r.Name)
		if _, err := compiler.Compile(r.Pattern); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("pattern %s: %w", r.Name, err))
		}
	}
	return errs
}

// Options turns the configuration into engine options.
func (c Config) Options(logger *zap.Logger) []gpath.Option {
	return []gpath.Option{
		gpath.WithLogger(logger),
		gpath.WithCacheSizes(c.Cache.Parse, c.Cache.Pattern, c.Cache.Results),
		gpath.WithVariables(c.Variables),
		gpath.WithQueryRules(c.Queries...),
		gpath.WithPatternRules(c.Patterns...),
	}
}

// NewEngine builds an engine running the configured rules.
func (c Config) NewEngine(logger *zap.Logger, extra ...gpath.Option) *gpath.Engine {
	return gpath.New(append(c.Options(logger), extra...)...)
}

// Fingerprint identifies the findings the configuration produces when the
// ignored rules are skipped. Names and cache sizes do not take part.
func (c Config) Fingerprint(ignored ...string) (string, error) {
	skip := append([]string(nil), ignored...)
	sort.Strings(skip)
	d, err := yaml.Marshal(struct {
		Variables map[string]string   `yaml:"variables"`
		Queries   []gpath.QueryRule   `yaml:"queries"`
		Patterns  []gpath.PatternRule `yaml:"patterns"`
		Ignored   []string            `yaml:"ignored"`
	}{c.Variables, c.Queries, c.Patterns, skip})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(d)
	return hex.EncodeToString(sum[:]), nil
}
