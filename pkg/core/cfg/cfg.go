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

package cfg

import (
	"io/ioutil"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/loggie-io/artifactgate/pkg/core/log"
)

type CommonCfg map[string]interface{}

type Validator interface {
	Validate() error
}

func NewCommonCfg() CommonCfg {
	return make(map[string]interface{})
}

func (c CommonCfg) Put(key string, val interface{}) {
	c[key] = val
}

func (c CommonCfg) Get(key string) interface{} {
	return c[key]
}

func UnpackFromFileDefaultsAndValidate(path string, config interface{}) error {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		log.Warn("read config error. err: %v", err)
		return err
	}

	return UnpackRawDefaultsAndValidate(content, config)
}

func UnpackRawDefaultsAndValidate(content []byte, config interface{}) error {
	if config == nil {
		return nil
	}
	err := yaml.Unmarshal(content, config)
	if err != nil {
		return err
	}

	if err := setDefault(config); err != nil {
		return err
	}

	if err := validate(config); err != nil {
		return err
	}

	return nil
}

func UnpackRaw(content []byte, config interface{}) error {
	if config == nil {
		return nil
	}

	err := yaml.Unmarshal(content, config)
	if err != nil {
		return err
	}

	return nil
}

// UnpackDefaultsAndValidate re-encodes properties and unpacks them into config,
// so a CommonCfg section can be typed by the component that owns it.
func UnpackDefaultsAndValidate(properties CommonCfg, config interface{}) error {
	if properties == nil {
		properties = NewCommonCfg()
	}

	out, err := yaml.Marshal(properties)
	if err != nil {
		return err
	}

	return UnpackRawDefaultsAndValidate(out, config)
}

// SetDefaults fills `default` tags on config without reading anything.
func SetDefaults(config interface{}) error {
	return setDefault(config)
}

func setDefault(config interface{}) error {
	return defaults.Set(config)
}

func validate(config interface{}) error {
	if config == nil {
		return nil
	}

	validate := validator.New()
	err := validate.Struct(config)
	if err != nil {
		return err
	}

	if cfg, ok := config.(Validator); ok {
		return cfg.Validate()
	}
	return nil
}
