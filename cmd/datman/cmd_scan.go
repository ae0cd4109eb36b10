package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/db"
	"github.com/ryanm101/datman/internal/formats"
	"github.com/ryanm101/datman/internal/library"
	"github.com/ryanm101/datman/internal/logging"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		blanks   bool
		archives bool
		noCache  bool
		prune    bool
		cache    string
	)
	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Build a DAT from the files in a directory",
		Long: `scan hashes every file below <dir> and writes a DAT describing them.

Files directly in <dir> become one machine each; files in subdirectories
belong to the machine named by the first directory level. Zip archives
become a machine holding their entries unless --archives=false.`,
		Args: cobra.ExactArgs(1),
	}
	fs := cmd.Flags()
	fs.BoolVar(&blanks, "blanks", false, "record empty directories and archives as blank machines")
	fs.BoolVar(&archives, "archives", true, "hash the entries of zip archives")
	fs.StringVar(&cache, "cache", "", "hash cache database (default: cache_path from config)")
	fs.BoolVar(&noCache, "no-cache", false, "do not use the hash cache")
	fs.BoolVar(&prune, "prune", false, "drop cache entries for files that no longer exist")
	hf := addHeaderFlags(fs)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		root := args[0]

		fmts, err := a.outputFormats()
		if err != nil {
			return err
		}
		h := hf.header(fmts)
		h.Fill(datfile.Header{Name: filepath.Base(filepath.Clean(root))})
		h.Fill(datfile.Header{Description: h.Name})

		cfg := library.DefaultScanConfig()
		cfg.Workers = a.cfg.GetWorkers()
		cfg.Blanks = blanks
		cfg.Archives = archives

		if cache == "" {
			cache = a.cfg.GetCachePath()
		}
		if cache != "" && !noCache {
			database, err := db.Open(ctx, cache)
			if err != nil {
				return fmt.Errorf("failed to open hash cache: %w", err)
			}
			defer func() { _ = database.Close() }()
			if prune {
				n, err := database.Prune(ctx)
				if err != nil {
					return fmt.Errorf("failed to prune hash cache: %w", err)
				}
				logging.Info("pruned hash cache", "removed", n)
			}
			cfg.Cache = database
		}

		bar := a.out.bar("Hashing")
		cfg.OnFile = tick(bar)

		d := datfile.New(h)
		result, err := library.NewScanner(cfg).Scan(ctx, root, d)
		finish(bar)
		if err != nil {
			return err
		}

		written, err := formats.Write(ctx, d, a.cfg.GetOutputDir(), formats.WriteOptions{Overwrite: a.overwrite})
		if a.out.JSON {
			a.out.PrintResult(struct {
				*library.ScanResult
				Written []string `json:"written"`
			}{result, written})
		} else {
			a.out.PrintInfo("scanned %d files: %d hashed, %d cached, %d failed, %d blank\n",
				result.FilesScanned, result.FilesHashed, result.FilesCached, result.FilesFailed, result.Blanks)
			for _, p := range written {
				a.out.PrintInfo("wrote %s\n", p)
			}
		}
		if err != nil {
			a.out.PrintError("failed: %v\n", err)
			return errWritesFailed
		}
		return nil
	}
	return cmd
}
