package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Daemon-level configuration: control port, default device
 *		and channel selections, log level and directory, and the persisted
 *		file paths shared with the Library Index collaborator.
 *
 *		Loaded from an optional YAML file and overridable by
 *		command line flags, following the same layering the
 *		teacher used for per-device YAML records.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultControlPort = 21749

const DefaultSamplesPerFrame = 8192

// Config is the top-level daemon configuration.
type Config struct {
	ControlPort     int            `yaml:"control_port"`
	DefaultDevice   string         `yaml:"default_device"`
	DefaultDOLines  []string       `yaml:"default_do_lines"`
	DOChip          string         `yaml:"do_chip"`
	DOLineOffsets   map[string]int `yaml:"do_line_offsets"`
	SamplesPerFrame int            `yaml:"samples_per_frame"`
	LogLevel        string         `yaml:"log_level"`
	LogDir          string         `yaml:"log_dir"`
	DNSSDName       string         `yaml:"dns_sd_name"`
	DNSSDEnabled    bool           `yaml:"dns_sd_enabled"`
	LibraryFilePath string         `yaml:"library_file_path"`
	HistoryFilePath string         `yaml:"history_file_path"`
	LibraryBinPath  string         `yaml:"library_bin_path"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		ControlPort:    DefaultControlPort,
		DefaultDOLines: []string{"port0/line0", "port0/line1"},
		DOChip:         "gpiochip0",
		DOLineOffsets: map[string]int{
			"port0/line0": 17,
			"port0/line1": 27,
		},
		SamplesPerFrame: DefaultSamplesPerFrame,
		LogLevel:        "info",
		DNSSDEnabled:    true,
		LibraryFilePath: "library.json",
		HistoryFilePath: "history.json",
		LibraryBinPath:  "library.bin",
	}
}

// LoadConfig reads a YAML config file, falling back silently to
// DefaultConfig when path is empty or the file does not exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.ControlPort == 0 {
		cfg.ControlPort = DefaultControlPort
	}
	if cfg.SamplesPerFrame == 0 {
		cfg.SamplesPerFrame = DefaultSamplesPerFrame
	}
	if len(cfg.DefaultDOLines) == 0 {
		cfg.DefaultDOLines = []string{"port0/line0", "port0/line1"}
	}

	return cfg, nil
}
