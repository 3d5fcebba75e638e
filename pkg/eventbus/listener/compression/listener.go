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

package compression

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loggie-io/artifactgate/pkg/core/log"
	"github.com/loggie-io/artifactgate/pkg/eventbus"
	"github.com/loggie-io/artifactgate/pkg/eventbus/export/logger"
	promeExporter "github.com/loggie-io/artifactgate/pkg/eventbus/export/prometheus"
)

// Name is both the listener name and its key under monitor.listeners.
const Name = "compression"

func init() {
	eventbus.Registry(Name, makeListener, eventbus.WithTopics([]string{eventbus.CompressionTopic, eventbus.ArtifactSizeTopic, eventbus.ErrorTopic}))
}

func makeListener() eventbus.Listener {
	l := &Listener{
		data: &data{
			Types: make(map[string]int64),
		},
		done:      make(chan struct{}),
		config:    &Config{},
		eventChan: make(chan eventbus.Event),
	}
	return l
}

type Config struct {
	Period time.Duration `yaml:"period" default:"10s"`
}

type Listener struct {
	config    *Config
	data      *data
	eventChan chan eventbus.Event
	done      chan struct{}
	stopOnce  sync.Once
}

type data struct {
	Types map[string]int64 `json:"types"` // key=compression type

	ArtifactCount int64 `json:"artifacts"`
	TotalBytes    int64 `json:"totalBytes"`
	MaxBytes      int64 `json:"maxBytes"`

	Errors int64 `json:"errors"` // error level log lines
}

func (l *Listener) Name() string {
	return Name
}

func (l *Listener) Start() error {
	go l.run()
	return nil
}

func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}

func (l *Listener) Config() interface{} {
	return l.config
}

func (l *Listener) Subscribe(event eventbus.Event) {
	select {
	case l.eventChan <- event:
	case <-l.done:
	}
}

func (l *Listener) run() {
	tick := time.NewTicker(l.config.Period)
	defer tick.Stop()
	for {
		select {
		case <-l.done:
			return

		case e := <-l.eventChan:
			l.consumer(e)

		case <-tick.C:
			l.exportPrometheus()
			m, _ := json.Marshal(l.data)
			logger.Export(eventbus.CompressionTopic, m)
		}
	}
}

// counters are cumulative, nothing is cleaned between ticks
func (l *Listener) exportPrometheus() {
	metrics := promeExporter.ExportedMetrics{}
	for tp, count := range l.data.Types {
		m := promeExporter.ExportedMetrics{
			{
				Desc: prometheus.NewDesc(
					prometheus.BuildFQName(promeExporter.Namespace, eventbus.CompressionTopic, "total"),
					"classified artifact count by compression type",
					nil, prometheus.Labels{promeExporter.TypeKey: tp},
				),
				Eval:    float64(count),
				ValType: prometheus.CounterValue,
			},
		}
		metrics = append(metrics, m...)
	}

	metrics = append(metrics, promeExporter.ExportedMetrics{
		{
			Desc: prometheus.NewDesc(
				prometheus.BuildFQName(promeExporter.Namespace, "objects", "total"),
				"downloaded artifact count",
				nil, nil,
			),
			Eval:    float64(l.data.ArtifactCount),
			ValType: prometheus.CounterValue,
		},
		{
			Desc: prometheus.NewDesc(
				prometheus.BuildFQName(promeExporter.Namespace, "objects", "size_bytes_total"),
				"downloaded artifact bytes",
				nil, nil,
			),
			Eval:    float64(l.data.TotalBytes),
			ValType: prometheus.CounterValue,
		},
		{
			Desc: prometheus.NewDesc(
				prometheus.BuildFQName(promeExporter.Namespace, "objects", "size_bytes_max"),
				"largest downloaded artifact",
				nil, nil,
			),
			Eval:    float64(l.data.MaxBytes),
			ValType: prometheus.GaugeValue,
		},
		{
			Desc: prometheus.NewDesc(
				prometheus.BuildFQName(promeExporter.Namespace, eventbus.ErrorTopic, "total"),
				"error level log count",
				nil, nil,
			),
			Eval:    float64(l.data.Errors),
			ValType: prometheus.CounterValue,
		},
	}...)
	promeExporter.Export(eventbus.CompressionTopic, metrics)
}

func (l *Listener) consumer(e eventbus.Event) {
	switch d := e.Data.(type) {
	case eventbus.CompressionMetricData:
		l.data.Types[d.Type]++

	case eventbus.ArtifactSizeMetricData:
		l.data.ArtifactCount++
		l.data.TotalBytes += d.Size
		if d.Size > l.data.MaxBytes {
			l.data.MaxBytes = d.Size
		}

	case eventbus.ErrorMetricData:
		l.data.Errors++

	default:
		log.Warn("unexpected %s event data: %v", e.Topic, e.Data)
	}
}
