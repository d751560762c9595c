// Package config loads chutie run configurations from JSON or YAML files and
// merges them with command-line values.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is one partial or resolved run configuration.
type Config struct {
	URLs      []string `json:"urls" yaml:"urls"`
	Viewports []string `json:"viewports" yaml:"viewports"`
	DestPath  string   `json:"dest_path,omitempty" yaml:"dest_path,omitempty"`
	Output    string   `json:"output,omitempty" yaml:"output,omitempty"`
}

// ParameterError is returned for config files that cannot be used.
type ParameterError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParameterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("config: %s: %s", e.Path, e.Reason)
}

func (e *ParameterError) Unwrap() error { return e.Err }

// Defaults returns the values used when neither files nor flags set them.
func Defaults() Config {
	return Config{
		DestPath: ".",
		Output:   "index.html",
	}
}

// Merge resolves an ordered list of partial configs. List fields are
// concatenated in order; for scalar fields the last non-empty value wins.
func Merge(parts ...Config) Config {
	var out Config
	for _, p := range parts {
		out.URLs = append(out.URLs, p.URLs...)
		out.Viewports = append(out.Viewports, p.Viewports...)
		if p.DestPath != "" {
			out.DestPath = p.DestPath
		}
		if p.Output != "" {
			out.Output = p.Output
		}
	}
	return out
}

// Load reads a .json, .yaml or .yml config file.
func Load(path string) (Config, error) {
	var decode func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		decode = json.Unmarshal
	case ".yaml", ".yml":
		decode = yaml.Unmarshal
	default:
		return Config{}, &ParameterError{Path: path, Reason: "the config file must end in one of .json, .yaml, or .yml"}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, &ParameterError{Path: path, Reason: "config file not found"}
	}
	if err != nil {
		return Config{}, &ParameterError{Path: path, Reason: "cannot read config file", Err: err}
	}

	var cfg Config
	if err := decode(data, &cfg); err != nil {
		return Config{}, &ParameterError{Path: path, Reason: "cannot decode config file", Err: err}
	}
	return cfg, nil
}

// LoadAll loads every path in order.
func LoadAll(paths []string) ([]Config, error) {
	cfgs := make([]Config, 0, len(paths))
	for _, p := range paths {
		cfg, err := Load(p)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}

// CopyInto copies each file into dir, keeping its base name, mode and
// modification time.
func CopyInto(dir string, paths []string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}
	for _, p := range paths {
		if err := copyFile(p, filepath.Join(dir, filepath.Base(p))); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	srcAbs, _ := filepath.Abs(src)
	dstAbs, _ := filepath.Abs(dst)
	if srcAbs == dstAbs {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("config: copy %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("config: copy %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("config: copy %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("config: copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("config: copy %s: %w", src, err)
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
