// Copyright 2025 Poiesic Systems
//
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


package storage

import (
	"github.com/poiesic/snipvec/core"
)

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, core.DocumentMUS.Size(*doc))
	core.DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := core.DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarshalInstance serializes an Instance to bytes.
func MarshalInstance(instance *core.Instance) []byte {
	buf := make([]byte, core.InstanceMUS.Size(*instance))
	core.InstanceMUS.Marshal(*instance, buf)
	return buf
}

// UnmarshalInstance deserializes an Instance from bytes.
func UnmarshalInstance(data []byte) (*core.Instance, error) {
	instance, _, err := core.InstanceMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

// MarshalHistoryEvent serializes a HistoryEvent to bytes.
func MarshalHistoryEvent(event *core.HistoryEvent) []byte {
	buf := make([]byte, core.HistoryEventMUS.Size(*event))
	core.HistoryEventMUS.Marshal(*event, buf)
	return buf
}

// UnmarshalHistoryEvent deserializes a HistoryEvent from bytes.
func UnmarshalHistoryEvent(data []byte) (*core.HistoryEvent, error) {
	event, _, err := core.HistoryEventMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
