// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
)

// InstanceDecoder decodes a YAML instance file into a problem value.
type InstanceDecoder func(v any) error

// LoadInstance reads the YAML instance file at `path` and returns a decoder for it. Unknown
// fields are rejected when the decoder runs.
func LoadInstance(path string) (InstanceDecoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instance: %w", err)
	}
	return func(v any) error {
		if err := decodeStrict(data, v); err != nil {
			return fmt.Errorf("failed to parse instance %s: %w", path, err)
		}
		return nil
	}, nil
}
