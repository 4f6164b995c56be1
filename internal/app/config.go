package app

import (
	"errors"

	"github.com/vk/gribdef/internal/fsutil"
	"github.com/vk/gribdef/internal/grib"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DefinitionPath string // colon separated definition directories
	BootFile       string
	InputPath      string // message file to decode

	Keys       []string // print only these keys
	Partial    bool
	DumpHidden bool
	CheckOnly  bool // parse every definition file instead of decoding

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.DefinitionPath == "" {
		return nil, errors.New("DefinitionPath is a required configuration field and cannot be empty")
	}
	if cfg.InputPath == "" && !cfg.CheckOnly {
		return nil, errors.New("InputPath is a required configuration field and cannot be empty")
	}
	if cfg.BootFile == "" {
		cfg.BootFile = grib.DefaultBootFile
	}
	return &cfg, nil
}

// SearchPath splits DefinitionPath into directories.
func (c *Config) SearchPath() []string {
	return fsutil.SplitSearchPath(c.DefinitionPath)
}
