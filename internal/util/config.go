package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is looked up from the working directory upwards.
const ConfigFileName = "lox.toml"

type Configuration struct {
	Version   string `toml:"-"`
	BuildDate string `toml:"-"`
	Commit    string `toml:"-"`

	LogLevel string        `toml:"log-level"`
	LogFile  string        `toml:"log-file"`
	DebugAST bool          `toml:"debug-ast"`
	History  HistoryConfig `toml:"history"`
	REPL     REPLConfig    `toml:"repl"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// HistoryConfig selects the database runs are recorded in. An empty Driver
// disables recording.
type HistoryConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type REPLConfig struct {
	Prompt      string `toml:"prompt"`
	HistoryFile string `toml:"history-file"`
}

func DefaultConfiguration() Configuration {
	cfg := Configuration{
		LogLevel: "error",
		REPL:     REPLConfig{Prompt: "> "},
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.REPL.HistoryFile = filepath.Join(home, ".lox_history")
	}
	return cfg
}

// LoadConfiguration reads path over the defaults.
func LoadConfiguration(path string) (Configuration, error) {
	cfg := DefaultConfiguration()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if cfg.REPL.Prompt == "" {
		cfg.REPL.Prompt = "> "
	}
	cfg.Path = path
	return cfg, nil
}

// FindAndLoadConfiguration walks up from startDir to the first lox.toml.
// Without one the defaults are returned.
func FindAndLoadConfiguration(startDir string) (Configuration, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return DefaultConfiguration(), err
	}

	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return LoadConfiguration(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return DefaultConfiguration(), nil
		}
		dir = parent
	}
}
