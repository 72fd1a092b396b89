package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AssetModeExecutable = "executable"
	AssetModeWorkdir    = "workdir"
)

// Assets resolves artifact and example file names against one base
// directory. The base directory is computed once at startup and passed
// around explicitly; the process working directory is never changed.
type Assets struct {
	BaseDir string
}

// ResolveAssets picks the base directory. An explicit override wins;
// otherwise executable mode uses the directory holding the running binary
// and workdir mode uses the current working directory.
func ResolveAssets(mode, override string) (Assets, error) {
	if override != "" {
		dir, err := filepath.Abs(override)
		if err != nil {
			return Assets{}, fmt.Errorf("resolving asset dir %s: %w", override, err)
		}
		return Assets{BaseDir: dir}, nil
	}

	switch mode {
	case AssetModeExecutable, "":
		exe, err := os.Executable()
		if err != nil {
			return Assets{}, fmt.Errorf("locating executable: %w", err)
		}
		exe, err = filepath.EvalSymlinks(exe)
		if err != nil {
			return Assets{}, fmt.Errorf("resolving executable: %w", err)
		}
		return Assets{BaseDir: filepath.Dir(exe)}, nil

	case AssetModeWorkdir:
		wd, err := os.Getwd()
		if err != nil {
			return Assets{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		return Assets{BaseDir: workdirBase(wd)}, nil

	default:
		return Assets{}, fmt.Errorf("unknown asset mode %q", mode)
	}
}

// workdirBase maps cmd/server back to the project root so `go run` from
// either place finds the same assets.
func workdirBase(wd string) string {
	if filepath.Base(wd) == "server" && filepath.Base(filepath.Dir(wd)) == "cmd" {
		return filepath.Join(wd, "..", "..")
	}
	return wd
}

// Path returns name relative to the base directory. Absolute names are
// returned unchanged.
func (a Assets) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(a.BaseDir, name)
}
