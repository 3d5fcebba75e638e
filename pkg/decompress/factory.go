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
	"os"
	"sync"
)

// Decoder writes the fully decoded content of src (size bytes long) to dst.
type Decoder func(dst io.Writer, src *os.File, size int64) error

type DecoderFactory struct {
	decoders map[Kind]Decoder
	lock     sync.RWMutex
}

var (
	factoryOnce          sync.Once
	globalDecoderFactory *DecoderFactory
)

func GetOrCreateDecoderFactory() *DecoderFactory {
	factoryOnce.Do(func() {
		globalDecoderFactory = &DecoderFactory{
			decoders: make(map[Kind]Decoder),
		}
	})
	return globalDecoderFactory
}

// Register keeps the first decoder registered for kind and returns it.
func (factory *DecoderFactory) Register(kind Kind, decoder Decoder) Decoder {
	factory.lock.Lock()
	defer factory.lock.Unlock()
	value, ok := factory.decoders[kind]
	if ok {
		return value
	}
	factory.decoders[kind] = decoder
	return decoder
}

func (factory *DecoderFactory) Get(kind Kind) Decoder {
	factory.lock.RLock()
	defer factory.lock.RUnlock()
	return factory.decoders[kind]
}
