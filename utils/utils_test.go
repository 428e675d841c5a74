// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerASCIIFolding(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Angkor Wat", "angkor wat"},
		{"  Phnom Bakheng  ", "phnom bakheng"},
		{"Préah Khan", "preah khan"},
		{"BANTÉAY SREI", "banteay srei"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LowerASCIIFolding(tt.in))
		})
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatInt(tt.in))
		})
	}
}
