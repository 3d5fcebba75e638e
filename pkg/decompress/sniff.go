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

package decompress

import (
	"io"

	"github.com/pkg/errors"

	"github.com/loggie-io/artifactgate/pkg/eventbus"
	"github.com/loggie-io/artifactgate/pkg/util/tempfile"
)

// Sniff persists src, reads its magic bytes and classifies it.
// The read cursor of src is at the start when Sniff returns without error.
func Sniff(src *tempfile.File) (Kind, error) {
	if err := src.Sync(); err != nil {
		return None, err
	}

	size, err := src.Size()
	if err != nil {
		return None, err
	}
	eventbus.PublishOrDrop(eventbus.ArtifactSizeTopic, eventbus.ArtifactSizeMetricData{
		Size: size,
	})

	if err := src.Rewind(); err != nil {
		return None, err
	}

	kind := None
	if size >= MagicSize {
		magic := make([]byte, MagicSize)
		if _, err := io.ReadFull(src.File(), magic); err != nil {
			return None, errors.WithMessagef(err, "read magic bytes of %s", src.Path())
		}
		if err := src.Rewind(); err != nil {
			return None, err
		}
		kind = Classify(magic)
	}

	eventbus.PublishOrDrop(eventbus.CompressionTopic, eventbus.CompressionMetricData{
		Type: kind.String(),
	})
	return kind, nil
}
