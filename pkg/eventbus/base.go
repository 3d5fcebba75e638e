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

var (
	CompressionTopic  = "compression"
	ArtifactSizeTopic = "artifactsize"
	ErrorTopic        = "error"
)

// CompressionMetricData is published once per classified artifact.
type CompressionMetricData struct {
	Type string // none, zstd, gzip, zlib, zip, cab
}

// ArtifactSizeMetricData is published for every artifact that could be stat'ed,
// whether or not it was classified afterwards.
type ArtifactSizeMetricData struct {
	Size int64
}

type ErrorMetricData struct {
	ErrorMsg string
}
