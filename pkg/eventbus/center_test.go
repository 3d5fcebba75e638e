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

package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type captureListener struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureListener) Name() string        { return "capture" }
func (c *captureListener) Config() interface{} { return nil }
func (c *captureListener) Start() error        { return nil }
func (c *captureListener) Stop()               {}

func (c *captureListener) Subscribe(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureListener) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestPublishOrDrop_Temporary(t *testing.T) {
	capture := &captureListener{}
	subscribe := RegistryTemporary("capture", func() Listener {
		return capture
	}, WithTopic(CompressionTopic))
	defer UnRegistrySubscribeTemporary(subscribe)

	PublishOrDrop(CompressionTopic, CompressionMetricData{Type: "gzip"})
	PublishOrDrop(ErrorTopic, ErrorMetricData{ErrorMsg: "not subscribed"})

	assert.Eventually(t, func() bool {
		return len(capture.received()) == 1
	}, time.Second, 10*time.Millisecond)

	e := capture.received()[0]
	assert.Equal(t, CompressionTopic, e.Topic)
	assert.Equal(t, CompressionMetricData{Type: "gzip"}, e.Data)
}

func TestPublishOrDrop_FullBuffer(t *testing.T) {
	ec := NewEventCenter(1, 1)
	ec.publishOrDrop(NewEvent(ErrorTopic, nil))

	done := make(chan struct{})
	go func() {
		ec.publishOrDrop(NewEvent(ErrorTopic, nil))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publishOrDrop blocked on a full buffer")
	}
	assert.Len(t, ec.eventChan, 1)
}
