package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Paintersrp/anvil/internal/block"
	"github.com/Paintersrp/anvil/internal/constants"
)

// EditorConfig tunes the windowed editor surface.
type EditorConfig struct {
	ViewportHeight float64 `yaml:"viewport_height" json:"viewport_height"`
	ContainerWidth float64 `yaml:"container_width" json:"container_width"`
	WheelStepRows  int     `yaml:"wheel_step_rows" json:"wheel_step_rows"`
}

// Config is the persisted application configuration.
type Config struct {
	VaultDir string                        `yaml:"vaultdir" json:"vaultdir"`
	Editor   EditorConfig                  `yaml:"editor"   json:"editor"`
	Geometry map[block.Type]block.Geometry `yaml:"geometry" json:"geometry"`

	home string `yaml:"-"`
}

func newConfig() *Config {
	return &Config{
		Editor: EditorConfig{
			ViewportHeight: constants.DefaultViewportHeight,
			ContainerWidth: constants.DefaultContainerWidth,
			WheelStepRows:  3,
		},
		Geometry: map[block.Type]block.Geometry{},
	}
}

func (cfg *Config) ensureDefaults() {
	if cfg.Editor.ViewportHeight <= 0 {
		cfg.Editor.ViewportHeight = constants.DefaultViewportHeight
	}
	if cfg.Editor.ContainerWidth <= 0 {
		cfg.Editor.ContainerWidth = constants.DefaultContainerWidth
	}
	if cfg.Editor.WheelStepRows <= 0 {
		cfg.Editor.WheelStepRows = 3
	}
	if cfg.Geometry == nil {
		cfg.Geometry = map[block.Type]block.Geometry{}
	}
}

// Load reads the config file under the home directory, tolerating an
// empty file by falling back to defaults.
func Load(home string) (*Config, error) {
	path := GetConfigPath(home)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := newConfig()
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.home = home
	cfg.ensureDefaults()
	cfg.syncViper()
	return cfg, nil
}

func (cfg *Config) syncViper() {
	viper.Set("vaultdir", cfg.VaultDir)
	viper.Set("viewport_height", cfg.Editor.ViewportHeight)
	viper.Set("container_width", cfg.Editor.ContainerWidth)
}

// Save writes the config back to disk.
func (cfg *Config) Save() error {
	cfg.ensureDefaults()
	cfg.syncViper()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	path := cfg.GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (cfg *Config) GetConfigPath() string {
	return GetConfigPath(cfg.home)
}

// SetHome records the home directory Save resolves against.
func (cfg *Config) SetHome(home string) { cfg.home = home }

func GetConfigPath(homeDir string) string {
	return filepath.Join(
		homeDir,
		constants.ConfigDir,
		constants.ConfigFile+"."+constants.ConfigFileType,
	)
}

// EnsureConfigExists creates the config directory and an empty config
// file when missing, then validates that the vault directory is set.
func EnsureConfigExists(homeDir string) error {
	configPath := GetConfigPath(homeDir)
	configDir := filepath.Dir(configPath)

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		file, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		file.Close()
	} else if err != nil {
		return fmt.Errorf("failed to check config file existence: %w", err)
	}

	cfg, err := Load(homeDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if strings.TrimSpace(cfg.VaultDir) == "" {
		return &ConfigInitError{
			msg: "required config variable \"VaultDir\" is not set (run: anvil init)",
		}
	}
	return nil
}
