package cli

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	perrors "github.com/matzehuels/circlepack/pkg/errors"
	"github.com/matzehuels/circlepack/pkg/pipeline"
)

// fileConfig is the on-disk configuration accepted by --config.
//
//	width = 800
//	seed = 7
//	image = "photo.jpg"
//	formats = ["svg", "json"]
//
//	[[passes]]
//	radius = 28
//	attempts = 20
type fileConfig struct {
	pipeline.Options `yaml:",inline"`

	Output      string `toml:"output" yaml:"output"`
	CacheURL    string `toml:"cache_url" yaml:"cache_url"`
	MetricsFile string `toml:"metrics_file" yaml:"metrics_file"`
}

// loadConfig reads a TOML or YAML config file, chosen by extension.
// Relative image, output and metrics paths are resolved against the
// directory holding the file.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "config file not found: %s", path)
		}
		return cfg, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, perrors.New(perrors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return cfg, perrors.New(perrors.ErrCodeInvalidConfig, "unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}

	dir := filepath.Dir(path)
	cfg.Image = resolvePath(dir, cfg.Image)
	cfg.MetricsFile = resolvePath(dir, cfg.MetricsFile)
	if cfg.Output != "-" {
		cfg.Output = resolvePath(dir, cfg.Output)
	}
	return cfg, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
