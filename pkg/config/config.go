// Package config loads tokenctl settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/gousb"
	"gopkg.in/yaml.v3"

	"github.com/tokenstick/tokenctl/pkg/control"
	"github.com/tokenstick/tokenctl/pkg/devices"
	"github.com/tokenstick/tokenctl/pkg/memxfer"
)

// RelPath is the config file location relative to the XDG config dirs.
const RelPath = "tokenctl/config.yaml"

type Config struct {
	Device devices.Description
	// Timeout applies to every control transfer.
	Timeout time.Duration
	// PollInterval is the delay between button reads for wait-for-button.
	PollInterval time.Duration

	// File is the memory I/O source/sink.
	File string
	Pad  memxfer.Pad
}

func Default() *Config {
	return &Config{
		Device:  devices.Default,
		Timeout: control.DefaultTimeout,
	}
}

// file mirrors the YAML layout. Pointers distinguish missing keys from zero
// values.
type file struct {
	Device struct {
		VID     *uint16 `yaml:"vid"`
		PID     *uint16 `yaml:"pid"`
		Vendor  *string `yaml:"vendor"`
		Product *string `yaml:"product"`
	} `yaml:"device"`
	Timeout      *time.Duration `yaml:"timeout"`
	PollInterval *time.Duration `yaml:"poll_interval"`
	File         *string        `yaml:"file"`
	Pad          *uint8         `yaml:"pad"`
}

// Parse applies YAML data on top of c.
func (c *Config) Parse(data []byte) error {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("could not parse config: %w", err)
	}
	if v := f.Device.VID; v != nil {
		c.Device.VID = gousb.ID(*v)
	}
	if v := f.Device.PID; v != nil {
		c.Device.PID = gousb.ID(*v)
	}
	if v := f.Device.Vendor; v != nil {
		c.Device.Vendor = *v
	}
	if v := f.Device.Product; v != nil {
		c.Device.Product = *v
	}
	if v := f.Timeout; v != nil {
		if *v <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", *v)
		}
		c.Timeout = *v
	}
	if v := f.PollInterval; v != nil {
		if *v < 0 {
			return fmt.Errorf("poll_interval must not be negative, got %s", *v)
		}
		c.PollInterval = *v
	}
	if v := f.File; v != nil {
		c.File = *v
	}
	if v := f.Pad; v != nil {
		c.Pad = memxfer.PadByte(*v)
	}
	return nil
}

// Load returns the defaults overlaid with the config file at path. An empty
// path searches the XDG config dirs; a missing file there is not an error.
func Load(path string) (*Config, error) {
	c := Default()
	explicit := path != ""
	if !explicit {
		p, err := xdg.SearchConfigFile(RelPath)
		if err != nil {
			return c, nil
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("could not read config: %w", err)
	}
	if err := c.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
