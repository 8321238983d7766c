package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// PathResolver resolves user supplied paths against the places the binary is
// commonly run from.
type PathResolver struct {
	executablePath string
	executableDir  string
	workingDir     string
	homeDir        string
}

// NewPathResolver creates a resolver that knows the executable location.
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	// Resolve any symlinks to get the actual binary location
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  filepath.Dir(execPath),
		workingDir:     cwd,
		homeDir:        homeDir,
	}
	log.Debugf("PathResolver initialized: exec=%s, cwd=%s", execPath, cwd)
	return pr, nil
}

// ResolveDatabase picks the database file for a user supplied path.
// An absolute path is used as is. A relative one is tried against the working
// directory, the executable directory and baseDir (usually the config dir),
// and the first existing file wins. When none exists the working directory
// candidate is returned so a new database is created there.
func (pr *PathResolver) ResolveDatabase(userPath, baseDir string) string {
	if userPath == "" || filepath.IsAbs(userPath) {
		return userPath
	}
	if strings.HasPrefix(userPath, "~"+string(filepath.Separator)) {
		return filepath.Join(pr.homeDir, userPath[2:])
	}

	candidates := pr.candidates(userPath, baseDir)
	for _, path := range candidates {
		if stat, err := os.Stat(path); err == nil && !stat.IsDir() {
			log.Debugf("Found database at: %s", path)
			return path
		}
		log.Debugf("Database candidate not found: %s", path)
	}
	return candidates[0]
}

func (pr *PathResolver) candidates(userPath, baseDir string) []string {
	var out []string
	if pr.workingDir != "" {
		out = append(out, filepath.Join(pr.workingDir, userPath))
	}
	out = append(out, filepath.Join(pr.executableDir, userPath))
	if baseDir != "" {
		out = append(out, filepath.Join(baseDir, userPath))
	}
	return out
}

// GetRuntimeInfo returns debug information about the current runtime environment
func (pr *PathResolver) GetRuntimeInfo() map[string]string {
	info := map[string]string{
		"executable_path": pr.executablePath,
		"executable_dir":  pr.executableDir,
		"current_dir":     pr.workingDir,
		"home_dir":        pr.homeDir,
		"os":              runtime.GOOS,
		"arch":            runtime.GOARCH,
	}
	for _, envVar := range []string{"HOME", "XDG_CONFIG_HOME", "APPDATA"} {
		if value := os.Getenv(envVar); value != "" {
			info["env_"+strings.ToLower(envVar)] = value
		}
	}
	return info
}
