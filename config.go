package completer

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the .completer.yaml configuration file.
type Config struct {
	// Providers lists the providers to install, in registration order.
	// When empty a single default provider is installed.
	Providers []ProviderConfig `yaml:"providers,omitempty"`

	// Kernel configures the code execution backend.
	Kernel *KernelConfig `yaml:"kernel,omitempty"`

	// LSP configures a language server used as an additional source.
	LSP *LSPConfig `yaml:"lsp,omitempty"`

	// Workspace configures the workspace identifier index.
	Workspace *WorkspaceConfig `yaml:"workspace,omitempty"`

	// StaleGuard makes the display model drop replies that belong to an
	// earlier session instead of merging them into the current one.
	StaleGuard bool `yaml:"stale_guard,omitempty"`

	// MaxItems caps the number of items a display model shows. Zero means
	// no cap.
	MaxItems int `yaml:"max_items,omitempty"`
}

// ProviderConfig describes one provider.
type ProviderConfig struct {
	// ID is the registry key.
	ID string `yaml:"id"`

	// Sources names the sources the provider fans out to, in preference
	// order: "kernel", "context", "workspace", "lsp".
	Sources []string `yaml:"sources,omitempty"`

	// Merge joins kernel and context results before a single write
	// instead of writing each reply as it arrives.
	Merge bool `yaml:"merge,omitempty"`

	// When is an expression deciding applicability, e.g.
	// `surface == "notebook" && len(text) > 0`.
	When string `yaml:"when,omitempty"`
}

// KernelConfig holds backend connection settings.
type KernelConfig struct {
	// Command starts a backend speaking JSON-RPC on stdio.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`

	// Timeout bounds a single complete request. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LSPConfig holds language server settings.
type LSPConfig struct {
	Command    string        `yaml:"command"`
	Args       []string      `yaml:"args,omitempty"`
	LanguageID string        `yaml:"language_id,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// WorkspaceConfig holds workspace index settings.
type WorkspaceConfig struct {
	// Root is the directory to index. Defaults to the config directory.
	Root string `yaml:"root,omitempty"`

	// Extensions restricts indexing to these file extensions (without dot).
	Extensions []string `yaml:"extensions,omitempty"`

	// MaxFiles bounds the number of files indexed. Zero means no bound.
	MaxFiles int `yaml:"max_files,omitempty"`
}

// DefaultProviderID is the id of the provider installed when the config
// lists none.
const DefaultProviderID = "completer:default"

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".completer.yaml", ".completer.yml", "completer.yaml", "completer.yml"}

// ProviderConfigs returns the configured providers, or the default provider
// when none is configured.
func (c *Config) ProviderConfigs() []ProviderConfig {
	if c == nil || len(c.Providers) == 0 {
		return []ProviderConfig{{
			ID:      DefaultProviderID,
			Sources: []string{"kernel", "context"},
		}}
	}

	return c.Providers
}

// LoadConfig finds and loads the nearest .completer.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Workspace != nil && cfg.Workspace.Root == "" {
		cfg.Workspace.Root = filepath.Dir(path)
	}

	return &cfg, nil
}
