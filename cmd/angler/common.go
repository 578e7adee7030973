// ABOUTME: Shared flag wiring and manifest-opening helper used by every subcommand.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orbnauticus/angler/internal/config"
	"github.com/orbnauticus/angler/internal/manifest"
)

// commonFlags registers the -manifest, -modules, and -data-dir flags shared
// by every subcommand that touches the store.
type commonFlags struct {
	manifest string
	modules  string
	dataDir  string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.manifest, "manifest", "", "path to the manifest database (default: $ANGLER_MANIFEST or <data-dir>/manifest.db)")
	fs.StringVar(&c.modules, "modules", "", "handler search directory (default: $ANGLER_MODULES or ./modules)")
	fs.StringVar(&c.dataDir, "data-dir", "", "data directory for persistent state (default: $ANGLER_DATA_DIR or platform default)")
}

func (c *commonFlags) resolve() (config.Config, error) {
	return config.Resolve(config.Flags{
		DataDir:  c.dataDir,
		Manifest: c.manifest,
		Modules:  c.modules,
	})
}

// openManifest resolves configuration from flags/env and opens the store,
// handler registry, and run journal.
func openManifest(ctx context.Context, c *commonFlags) (*manifest.Manifest, error) {
	cfg, err := c.resolve()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ManifestPath), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	return manifest.Open(ctx, cfg.ManifestPath, []string{cfg.ModulesDir}, filepath.Dir(cfg.ManifestPath), cfg.MaxDepth, cfg.GetTimeout)
}
