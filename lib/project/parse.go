// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Parse strips JSONC comments and trailing commas from data, then
// decodes the result into a Descriptor.
func Parse(data []byte) (*Descriptor, error) {
	var descriptor Descriptor
	if err := json.Unmarshal(jsonc.ToJSON(data), &descriptor); err != nil {
		return nil, fmt.Errorf("parsing project: %w", err)
	}
	if descriptor.Tree == nil {
		return nil, errors.New("parsing project: missing tree")
	}
	return &descriptor, nil
}

// ReadFile reads and parses the project descriptor at path.
func ReadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	descriptor, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return descriptor, nil
}
