// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/trialdesk/internal/util"
)

// fileBackend stores the entries as one JSON object. Every write replaces the
// whole document atomically, so a crash leaves either the old or the new
// record on disk.
type fileBackend struct {
	path string
}

// NewFile returns a store backed by the JSON document at path. The file is
// created on first write with mode 0600.
func NewFile(path string, opts ...Option) (*RecordStore, error) {
	if path == "" {
		return nil, errors.New("storage: empty file path")
	}
	return newRecordStore(&fileBackend{path: path}, opts...), nil
}

func (f *fileBackend) name() string { return "file" }

func (f *fileBackend) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	fields := make(map[string]string)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return fields, nil
}

func (f *fileBackend) put(fields map[string]string) error {
	current, err := f.load()
	if err != nil {
		// An unreadable document is replaced rather than merged.
		current = map[string]string{}
	}
	for k, v := range fields {
		current[k] = v
	}
	return f.write(current)
}

func (f *fileBackend) write(fields map[string]string) error {
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	return util.AtomicWriteFileWithDir(f.path, data, 0600, 0700)
}

func (f *fileBackend) del() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", f.path, err)
	}
	return nil
}

func (f *fileBackend) close() error { return nil }
