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

package logger

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/loggie-io/artifactgate/pkg/core/log"
)

var lg = newLogger()

type Event struct {
	Topic string `json:"topic"`
	Data  []byte `json:"data"`
}

type Config struct {
	Enabled bool          `yaml:"enabled" default:"true"`
	Period  time.Duration `yaml:"period" default:"10s"`
}

type logger struct {
	data map[string]interface{} // key=topic

	eventChan chan *Event
	running   *atomic.Bool
	stopOnce  sync.Once

	done chan struct{}
}

func newLogger() *logger {
	l := &logger{
		data:      make(map[string]interface{}),
		eventChan: make(chan *Event, 64),
		running:   atomic.NewBool(false),
		done:      make(chan struct{}),
	}
	return l
}

func Run(config Config) {
	if !config.Enabled {
		return
	}
	if config.Period <= 0 {
		config.Period = 10 * time.Second
	}
	if !lg.running.CAS(false, true) {
		return
	}
	go lg.run(config)
}

func Stop() {
	lg.stop()
}

func (l *logger) run(config Config) {
	tick := time.NewTicker(config.Period)
	defer tick.Stop()
	for {
		select {
		case <-l.done:
			return

		case e := <-l.eventChan:
			var d interface{}
			if err := json.Unmarshal(e.Data, &d); err != nil {
				log.Warn("json unmarshal e.Data error: %v", err)
				continue
			}
			l.data[e.Topic] = d

		case <-tick.C:
			if len(l.data) == 0 {
				continue
			}
			l.print()
			l.clean()
		}
	}
}

func (l *logger) print() {
	d, err := json.Marshal(l.data)
	if err != nil {
		log.Info("json marshal metric data err: %+v", err)
		return
	}
	log.Info("[metric]: %s", d)
}

func (l *logger) stop() {
	l.stopOnce.Do(func() {
		l.running.Store(false)
		close(l.done)
	})
}

func (l *logger) clean() {
	for k := range l.data {
		delete(l.data, k)
	}
}

// Export hands a json snapshot of topic metrics to the periodic metric log.
// Snapshots are dropped when the metric log is disabled or busy.
func Export(topic string, data []byte) {
	if !lg.running.Load() {
		return
	}
	e := &Event{
		Topic: topic,
		Data:  data,
	}
	select {
	case lg.eventChan <- e:
	default:
	}
}
