// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	rsz "github.com/fenrir-tools/rszkit"
	"github.com/fenrir-tools/rszkit/internal/rszconfig"
	"github.com/fenrir-tools/rszkit/internal/rszlog"
	"github.com/spf13/cobra"
)

func loadSettings(cmd *cobra.Command) (rszconfig.Settings, error) {
	configPath, _ := cmd.Flags().GetString("config")
	settings := rszconfig.DefaultSettings()
	if configPath != "" {
		var err error
		settings, err = rszconfig.Load(configPath)
		if err != nil {
			return settings, err
		}
	}
	if registry, _ := cmd.Flags().GetString("registry"); registry != "" {
		settings.RegistryPath = registry
	}
	return settings, nil
}

func openRegistry(settings rszconfig.Settings, logger *rszlog.Helper) (*rsz.TypeRegistry, error) {
	if settings.RegistryPath == "" {
		return nil, fmt.Errorf("rszkit: no registry path configured (pass --registry or set registry_path)")
	}
	var cache *rsz.RegistryCache
	if settings.RegistryCachePath != "" {
		var err error
		cache, err = rsz.OpenRegistryCache(settings.RegistryCachePath)
		if err != nil {
			return nil, err
		}
	}
	return rsz.LoadRegistry(settings.RegistryPath, cache, logger)
}

func newDumpCmd() *cobra.Command {
	var variantHint string
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Parse a container and print its decoded instance graph as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if variantHint != "" {
				settings.VariantHint = variantHint
			}
			logger := rszlog.NewHelper(rszlog.NewFilter(rszlog.NewStdLogger(os.Stderr), rszlog.FilterLevel(rszlog.LevelWarn)))

			registry, err := openRegistry(settings, logger)
			if err != nil {
				return err
			}

			c, mf, err := rsz.ParseFile(args[0], rsz.VariantHint(settings.VariantHint), registry)
			if err != nil {
				return err
			}
			defer mf.Close()

			out, err := json.MarshalIndent(struct {
				Variant  string   `json:"variant"`
				Warnings []string `json:"warnings,omitempty"`
				Graph    any      `json:"graph"`
			}{
				Variant:  c.Variant.String(),
				Warnings: c.Warnings,
				Graph:    c.Graph,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&variantHint, "variant", "", "override variant detection: scn, pfb, usr, pfb16, scn18, scn19")
	return cmd
}
