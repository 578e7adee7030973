// ABOUTME: Resolves manifest path, handler search path, timeouts, and recursion bound from flags, env, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/orbnauticus/angler/internal/elaborate"
	"github.com/orbnauticus/angler/internal/handler"
)

const (
	// DefaultModulesDir is where handler executables are discovered when
	// ANGLER_MODULES and -modules are both unset.
	DefaultModulesDir = "./modules"

	// DefaultManifestFile is the manifest SQLite file name used when
	// ANGLER_MANIFEST and -manifest are both unset.
	DefaultManifestFile = "manifest.db"
)

// Config is the resolved, ready-to-use configuration for one CLI invocation.
type Config struct {
	DataDir      string
	ManifestPath string
	ModulesDir   string
	GetTimeout   time.Duration
	SetTimeout   time.Duration
	MaxDepth     int
}

// Flags carries the subset of command-line flags that can override
// environment and platform defaults. Zero values mean "not set".
type Flags struct {
	DataDir    string
	Manifest   string
	Modules    string
	GetTimeout time.Duration
	SetTimeout time.Duration
	MaxDepth   int
}

// Resolve layers flags over ANGLER_* environment variables over platform
// defaults, in that precedence order.
func Resolve(f Flags) (Config, error) {
	dataDir := firstNonEmpty(f.DataDir, os.Getenv("ANGLER_DATA_DIR"))
	if dataDir == "" {
		d, err := DefaultDataDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve data dir: %w", err)
		}
		dataDir = d
	}

	modulesDir := firstNonEmpty(f.Modules, os.Getenv("ANGLER_MODULES"), DefaultModulesDir)

	manifestPath := firstNonEmpty(f.Manifest, os.Getenv("ANGLER_MANIFEST"))
	if manifestPath == "" {
		manifestPath = filepath.Join(dataDir, DefaultManifestFile)
	}

	maxDepth := f.MaxDepth
	if maxDepth <= 0 {
		maxDepth = elaborate.DefaultMaxDepth
	}

	setTimeout := f.SetTimeout
	if setTimeout <= 0 {
		setTimeout = handler.DefaultSetTimeout
	}

	return Config{
		DataDir:      dataDir,
		ManifestPath: manifestPath,
		ModulesDir:   modulesDir,
		GetTimeout:   f.GetTimeout,
		SetTimeout:   setTimeout,
		MaxDepth:     maxDepth,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
