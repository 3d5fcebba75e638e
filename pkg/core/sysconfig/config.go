/*
Copyright 2021 Loggie Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sysconfig

import (
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/loggie-io/artifactgate/pkg/core/cfg"
	"github.com/loggie-io/artifactgate/pkg/decompress"
	"github.com/loggie-io/artifactgate/pkg/eventbus"
	"github.com/loggie-io/artifactgate/pkg/eventbus/listener/compression"
	"github.com/loggie-io/artifactgate/pkg/eventbus/listener/info"
	"github.com/loggie-io/artifactgate/pkg/util/size"
)

type Config struct {
	Gateway Gateway `yaml:"gateway"`
}

type Gateway struct {
	Decompress      decompress.Config `yaml:"decompress"`
	Worker          Worker            `yaml:"worker"`
	Watch           Watch             `yaml:"watch"`
	Http            Http              `yaml:"http"`
	MonitorEventBus eventbus.Config   `yaml:"monitor"`
}

type Worker struct {
	Size int `yaml:"size" default:"4" validate:"gte=1"`
}

type Watch struct {
	Enabled         bool          `yaml:"enabled"`
	Directory       string        `yaml:"directory"`
	Pattern         string        `yaml:"pattern" default:"**"`
	OutputDirectory string        `yaml:"outputDirectory"`
	SettleDelay     time.Duration `yaml:"settleDelay" default:"2s"`
	MaxArtifactSize size.Size     `yaml:"maxArtifactSize"` // 0 means unlimited
}

type Http struct {
	Enabled bool   `yaml:"enabled" default:"false"`
	Host    string `yaml:"host" default:"0.0.0.0"`
	Port    int    `yaml:"port" default:"9196" validate:"gte=0,lte=65535"`
}

func (g *Gateway) SetDefaults() {
	if g.MonitorEventBus.ListenerConfigs == nil {
		g.MonitorEventBus.ListenerConfigs = map[string]cfg.CommonCfg{
			compression.Name: cfg.NewCommonCfg(),
			info.Name:        cfg.NewCommonCfg(),
		}
	}
}

func (c *Config) Validate() error {
	if err := c.Gateway.Decompress.Validate(); err != nil {
		return errors.WithMessage(err, "gateway.decompress")
	}
	if err := c.Gateway.Watch.Validate(); err != nil {
		return errors.WithMessage(err, "gateway.watch")
	}
	return nil
}

func (w *Watch) Validate() error {
	if !doublestar.ValidatePattern(w.Pattern) {
		return errors.Errorf("invalid pattern %q", w.Pattern)
	}
	if !w.Enabled {
		return nil
	}
	if w.Directory == "" || w.OutputDirectory == "" {
		return errors.New("directory and outputDirectory are required")
	}
	if w.SettleDelay <= 0 {
		return errors.New("settleDelay must be positive")
	}
	in, err := filepath.Abs(w.Directory)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(w.OutputDirectory)
	if err != nil {
		return err
	}
	if in == out {
		return errors.Errorf("outputDirectory must differ from directory %s", in)
	}
	return nil
}

// OverrideOutput replaces the output directory, e.g. from the command line,
// and checks the watch settings again.
func (w *Watch) OverrideOutput(dir string) error {
	if dir == "" {
		return nil
	}
	w.OutputDirectory = dir
	return w.Validate()
}

// Load reads the system config file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path == "" {
		if err := cfg.UnpackRawDefaultsAndValidate([]byte("{}"), c); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err := cfg.UnpackFromFileDefaultsAndValidate(path, c); err != nil {
		return nil, err
	}
	return c, nil
}
