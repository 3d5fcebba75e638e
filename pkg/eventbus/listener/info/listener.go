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

package info

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loggie-io/artifactgate/pkg/eventbus"
	promeExporter "github.com/loggie-io/artifactgate/pkg/eventbus/export/prometheus"
)

const Name = "info"

func init() {
	eventbus.Registry(Name, makeListener)
}

func makeListener() eventbus.Listener {
	return &Listener{
		done:   make(chan struct{}),
		config: &Config{},
	}
}

type Config struct {
	Period time.Duration `yaml:"period" default:"10s" validate:"gt=0"`
}

// Listener exports a constant artifactgate_info_status gauge labelled with the build.
type Listener struct {
	config *Config
	done   chan struct{}
}

func (l *Listener) Name() string {
	return Name
}

func (l *Listener) Start() error {
	l.exportPrometheus()
	go l.export()
	return nil
}

func (l *Listener) Stop() {
	close(l.done)
}

func (l *Listener) Subscribe(event eventbus.Event) {
	// Do nothing
}

func (l *Listener) Config() interface{} {
	return l.config
}

func (l *Listener) export() {
	tick := time.NewTicker(l.config.Period)
	defer tick.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-tick.C:
			l.exportPrometheus()
		}
	}
}

func (l *Listener) exportPrometheus() {
	labels := prometheus.Labels{
		"version":   Version(),
		"goversion": runtime.Version(),
	}
	metric := promeExporter.ExportedMetrics{
		{
			Desc: prometheus.NewDesc(
				prometheus.BuildFQName(promeExporter.Namespace, Name, "status"),
				"artifactgate build info",
				nil, labels,
			),
			Eval:    float64(1),
			ValType: prometheus.GaugeValue,
		},
	}
	promeExporter.Export(Name, metric)
}

// Version is the main module version stamped by the go tool, "(devel)" for local builds.
func Version() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "unknown"
	}
	return bi.Main.Version
}
