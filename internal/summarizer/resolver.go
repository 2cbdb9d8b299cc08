package summarizer

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNoRuntime means no usable summarizer runtime could be discovered.
var ErrNoRuntime = errors.New("no summarizer runtime found")

// Resolver locates the executable that runs the summarizer script.
type Resolver interface {
	Resolve() (string, error)
}

// Strategy is one discovery attempt, returning a validated executable
// path or reporting not found.
type Strategy interface {
	Name() string
	Locate() (string, bool)
}

// ChainResolver tries strategies in order and caches the first hit.
type ChainResolver struct {
	strategies []Strategy

	mu     sync.Mutex
	cached string
}

// NewResolver builds the default discovery chain for a summarizer
// script living in scriptDir: packaged venv, environment-manager
// scan, then a plain executable on PATH.
func NewResolver(scriptDir string) *ChainResolver {
	return &ChainResolver{
		strategies: []Strategy{
			venvStrategy{dir: scriptDir},
			pyenvStrategy{},
			pathStrategy{},
		},
	}
}

// NewChainResolver builds a resolver from explicit strategies.
func NewChainResolver(strategies ...Strategy) *ChainResolver {
	return &ChainResolver{strategies: strategies}
}

// Resolve returns the runtime executable, discovering it once.
func (r *ChainResolver) Resolve() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != "" {
		return r.cached, nil
	}
	for _, s := range r.strategies {
		if exe, ok := s.Locate(); ok {
			r.cached = exe
			return exe, nil
		}
	}
	return "", ErrNoRuntime
}

// venvStrategy looks for a virtualenv packaged next to the script.
type venvStrategy struct {
	dir string
}

func (venvStrategy) Name() string { return "packaged-venv" }

func (s venvStrategy) Locate() (string, bool) {
	for _, candidate := range []string{
		filepath.Join(s.dir, ".venv", "bin", "python"),
		filepath.Join(s.dir, "venv", "bin", "python"),
	} {
		if isExecutable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// pyenvStrategy scans pyenv-managed interpreter versions, newest first.
type pyenvStrategy struct{}

func (pyenvStrategy) Name() string { return "pyenv-scan" }

func (pyenvStrategy) Locate() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	versionsDir := filepath.Join(home, ".pyenv", "versions")
	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		return "", false
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names {
		candidate := filepath.Join(versionsDir, name, "bin", "python")
		if isExecutable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// pathStrategy falls back to whatever python3 is on PATH.
type pathStrategy struct{}

func (pathStrategy) Name() string { return "system-path" }

func (pathStrategy) Locate() (string, bool) {
	for _, name := range []string{"python3", "python"} {
		if exe, err := exec.LookPath(name); err == nil {
			return exe, true
		}
	}
	return "", false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}
