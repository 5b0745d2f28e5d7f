// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "rszkit",
		Short: "Parse and rebuild RE-Engine scene/prefab/userdata files",
	}

	root.PersistentFlags().String("config", "", "path to a rszconfig YAML settings file")
	root.PersistentFlags().String("registry", "", "path to the Type Registry JSON (overrides config)")

	root.AddCommand(newDumpCmd())
	root.AddCommand(newRebuildCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
