// Copyright 2026 The rszkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

package main

import (
	"bytes"
	"fmt"
	"os"

	rsz "github.com/fenrir-tools/rszkit"
	"github.com/fenrir-tools/rszkit/internal/rszlog"
	"github.com/spf13/cobra"
)

func newRebuildCmd() *cobra.Command {
	var variantHint string
	var outPath string
	cmd := &cobra.Command{
		Use:   "rebuild <file>",
		Short: "Round-trip a file and report whether it reproduced the input byte-for-byte",
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

			mf, err := rsz.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer mf.Close()
			data := mf.Bytes()

			codec, err := rsz.PickCodec(data, rsz.VariantHint(settings.VariantHint))
			if err != nil {
				return err
			}
			c, err := codec.Parse(data, registry)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			rebuilt, err := codec.Rebuild(c, rsz.RebuildOptions{SpecialAlignEnabled: settings.SpecialAlignEnabled})
			if err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, rebuilt, 0o644); err != nil {
					return err
				}
			}

			if bytes.Equal(data, rebuilt) {
				fmt.Printf("OK: %s round-trips byte-for-byte (%d bytes)\n", args[0], len(rebuilt))
				return nil
			}

			fmt.Printf("MISMATCH: %s (input %d bytes, rebuilt %d bytes)\n", args[0], len(data), len(rebuilt))
			if len(data) == len(rebuilt) {
				for i := range data {
					if data[i] != rebuilt[i] {
						fmt.Printf("first differing byte at offset %d: want %02x got %02x\n", i, data[i], rebuilt[i])
						break
					}
				}
			}
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().StringVar(&variantHint, "variant", "", "override variant detection: scn, pfb, usr, pfb16, scn18, scn19")
	cmd.Flags().StringVar(&outPath, "out", "", "write the rebuilt bytes to this path")
	return cmd
}
