package state

import (
	"errors"
	"fmt"
	"os"

	"github.com/Paintersrp/anvil/internal/config"
	"github.com/Paintersrp/anvil/internal/layout"
	"github.com/Paintersrp/anvil/internal/vault"
)

// State wires the long-lived collaborators for one running session:
// configuration, the vault block store, its height sidecar, the layout
// estimator, and the filesystem watcher. Everything is explicitly
// constructed and owned here; nothing hides in package-level singletons.
type State struct {
	Config    *config.Config
	Vault     *vault.Vault
	Heights   *vault.HeightDB
	Estimator *layout.Estimator
	Watcher   *VaultWatcher
	Home      string
	VaultDir  string
}

func NewState() (*State, error) {
	home, err := GetHomeDir()
	if err != nil {
		return nil, err
	}

	if err := config.EnsureConfigExists(home); err != nil {
		return nil, err
	}
	cfg, err := config.Load(home)
	if err != nil {
		return nil, err
	}

	heights, err := vault.OpenHeightDB(cfg.VaultDir)
	if err != nil {
		// The sidecar is an optimization; run without persistence
		// rather than refusing to start.
		heights = nil
	}

	v := vault.New(cfg.VaultDir, heights)

	est := layout.NewEstimator(layout.GlyphMeasurer{})
	est.Configure(cfg.Geometry)

	watcher, err := NewVaultWatcher(cfg.VaultDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault watcher: %w", err)
	}

	return &State{
		Config:    cfg,
		Vault:     v,
		Heights:   heights,
		Estimator: est,
		Watcher:   watcher,
		Home:      home,
		VaultDir:  cfg.VaultDir,
	}, nil
}

func GetHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory. err: %s", err)
	}

	return home, nil
}

// Close releases session resources: the watcher and the height sidecar.
func (s *State) Close() error {
	if s == nil {
		return nil
	}

	var errs []error
	if s.Watcher != nil {
		if err := s.Watcher.Close(); err != nil {
			errs = append(errs, err)
		}
		s.Watcher = nil
	}
	if s.Heights != nil {
		if err := s.Heights.Close(); err != nil {
			errs = append(errs, err)
		}
		s.Heights = nil
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
