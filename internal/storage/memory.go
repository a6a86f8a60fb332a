// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// memoryBackend keeps the entries in a map. RecordStore serializes access.
type memoryBackend struct {
	fields map[string]string
}

// NewMemory returns a process-local store.
func NewMemory(opts ...Option) *RecordStore {
	return newRecordStore(&memoryBackend{fields: make(map[string]string)}, opts...)
}

func (m *memoryBackend) name() string { return "memory" }

func (m *memoryBackend) load() (map[string]string, error) {
	out := make(map[string]string, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return out, nil
}

func (m *memoryBackend) put(fields map[string]string) error {
	for k, v := range fields {
		m.fields[k] = v
	}
	return nil
}

func (m *memoryBackend) del() error {
	m.fields = make(map[string]string)
	return nil
}

func (m *memoryBackend) close() error { return nil }
