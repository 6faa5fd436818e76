package blocklist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Load reads a filter config from path (JSON, or YAML for .yaml/.yml) and
// compiles it. A missing or unparseable file is an error.
func Load(path string) (*Matcher, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}
	m, err := Compile(*cfg)
	if err != nil {
		return nil, eris.Wrapf(err, "blocklist: %s", path)
	}
	return m, nil
}

// ReadConfig parses the filter config at path without compiling it.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "blocklist: read %s", path)
	}

	var cfg Config
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, eris.Wrapf(err, "blocklist: parse %s", path)
		}
		return &cfg, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, eris.Wrapf(err, "blocklist: parse %s", path)
	}
	return &cfg, nil
}

// SampleConfig returns the example filter config written by init-filter.
func SampleConfig() Config {
	return Config{
		BlockedMACs:     []string{"FF:FF:FF:FF:FF:FF", "aa:bb:cc:dd:ee:ff"},
		BlockedSSIDs:    []string{"myssid", "wardriver.uk"},
		BlockedPatterns: []string{"MyCompany.*", ".*test.*"},
	}
}

// WriteSample writes SampleConfig to path as JSON or YAML by extension.
func WriteSample(path string) error {
	cfg := SampleConfig()

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return eris.Wrap(err, "blocklist: encode sample")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "blocklist: create dir %s", dir)
		}
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "blocklist: write %s", path)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
