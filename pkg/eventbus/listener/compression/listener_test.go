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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loggie-io/artifactgate/pkg/eventbus"
)

func TestListener_consumer(t *testing.T) {
	l := makeListener().(*Listener)

	l.consumer(eventbus.NewEvent(eventbus.ArtifactSizeTopic, eventbus.ArtifactSizeMetricData{Size: 10}))
	l.consumer(eventbus.NewEvent(eventbus.CompressionTopic, eventbus.CompressionMetricData{Type: "zstd"}))
	l.consumer(eventbus.NewEvent(eventbus.ArtifactSizeTopic, eventbus.ArtifactSizeMetricData{Size: 30}))
	l.consumer(eventbus.NewEvent(eventbus.CompressionTopic, eventbus.CompressionMetricData{Type: "zstd"}))
	l.consumer(eventbus.NewEvent(eventbus.ArtifactSizeTopic, eventbus.ArtifactSizeMetricData{Size: 3}))
	l.consumer(eventbus.NewEvent(eventbus.CompressionTopic, eventbus.CompressionMetricData{Type: "none"}))
	l.consumer(eventbus.NewEvent(eventbus.CompressionTopic, "unexpected"))
	l.consumer(eventbus.NewEvent(eventbus.ErrorTopic, eventbus.ErrorMetricData{ErrorMsg: "failed to decompress"}))

	assert.Equal(t, map[string]int64{"zstd": 2, "none": 1}, l.data.Types)
	assert.Equal(t, int64(3), l.data.ArtifactCount)
	assert.Equal(t, int64(43), l.data.TotalBytes)
	assert.Equal(t, int64(30), l.data.MaxBytes)
	assert.Equal(t, int64(1), l.data.Errors)
}

func TestListener_SubscribeAfterStop(t *testing.T) {
	l := makeListener().(*Listener)
	l.Stop()

	// must not block once stopped
	l.Subscribe(eventbus.NewEvent(eventbus.CompressionTopic, eventbus.CompressionMetricData{Type: "gzip"}))
	assert.Empty(t, l.data.Types)
}
