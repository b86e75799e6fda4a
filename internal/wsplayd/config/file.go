package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the search directories
const FileName = "wsplayd.yaml"

// maxFileSize bounds how much of a configuration file is read
const maxFileSize = 1 << 20

// FileLoader loads a YAML configuration file on top of the defaults. Only
// files below one of its directories are accepted.
type FileLoader struct {
	// Dirs are searched in order by Locate
	Dirs []string
	// AllowWorkDir also accepts files below the working directory
	AllowWorkDir bool
}

// NewFileLoader returns a loader for /etc/wsplay and /usr/local/etc/wsplay.
// WSPLAY_CONFIG_DIRS replaces them with a path list and WSPLAY_DEV_MODE
// admits the working directory.
func NewFileLoader() *FileLoader {
	l := &FileLoader{Dirs: []string{"/etc/wsplay", "/usr/local/etc/wsplay"}}
	if dirs := os.Getenv("WSPLAY_CONFIG_DIRS"); dirs != "" {
		l.Dirs = filepath.SplitList(dirs)
	}
	if dev, ok := getEnvAsBool("WSPLAY_DEV_MODE"); ok {
		l.AllowWorkDir = dev
	}
	return l
}

// LoadFile loads path with the default loader
func LoadFile(path string) (*Config, error) {
	return NewFileLoader().Load(path)
}

// Locate returns the first FileName found in the search directories
func (l *FileLoader) Locate() (string, bool) {
	for _, dir := range l.Dirs {
		path := filepath.Join(dir, FileName)
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// Load reads path, applies it over the defaults, then the environment
func (l *FileLoader) Load(path string) (*Config, error) {
	resolved, err := l.resolve(path)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := readRegular(resolved)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", resolved, err)
	}
	cfg.overlayEnv()
	return cfg, cfg.validate()
}

// resolve follows symlinks and checks the extension and directory of the
// file they lead to
func (l *FileLoader) resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	switch {
	case os.IsNotExist(err):
		resolved = abs
	case err != nil:
		return "", fmt.Errorf("error resolving %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yaml", ".yml":
	default:
		return "", fmt.Errorf("config file must have .yaml or .yml extension")
	}

	dir := filepath.Dir(resolved)
	if !l.admits(dir) {
		return "", fmt.Errorf("%s is not an allowed directory", dir)
	}
	return resolved, nil
}

func (l *FileLoader) admits(dir string) bool {
	roots := l.Dirs
	if l.AllowWorkDir {
		if wd, err := os.Getwd(); err == nil {
			roots = append(roots[:len(roots):len(roots)], wd)
		}
	}
	for _, root := range roots {
		if real, err := filepath.EvalSymlinks(root); err == nil {
			root = real
		}
		if within(root, dir) {
			return true
		}
	}
	return false
}

// within reports whether dir is root or below it
func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func readRegular(path string) ([]byte, error) {
	// #nosec G304 -- path was checked by resolve
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("error accessing config file: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("config path must be a regular file")
	}
	return io.ReadAll(io.LimitReader(f, maxFileSize))
}
