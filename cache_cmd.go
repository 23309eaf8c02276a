package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var errCacheDisabled = errors.New("the synthesis cache is disabled (cache.max_size is 0)")

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show synthesis cache usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dc, err := openCache()
		if err != nil {
			return err
		}
		if dc == nil {
			return errCacheDisabled
		}
		defer dc.Close() //nolint:errcheck

		s := dc.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n  %s of %s used, %s entries\n  %s\n",
			titleStyle("Synthesis cache"),
			humanize.Bytes(uint64(s.Size)),     //nolint:gosec
			humanize.Bytes(uint64(s.Capacity)), //nolint:gosec
			humanize.Comma(s.Items),
			noteStyle(cacheDir()),
		)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached audio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dc, err := openCache()
		if err != nil {
			return err
		}
		if dc == nil {
			return errCacheDisabled
		}
		defer dc.Close() //nolint:errcheck

		freed := dc.Stats().Size
		if err := dc.Clear(); err != nil {
			return fmt.Errorf("unable to clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Freed %s\n", humanize.Bytes(uint64(freed))) //nolint:gosec
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}
