// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/vireak/prasat/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
