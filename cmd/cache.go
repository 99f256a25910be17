/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"honyaku/internal/cache"
)

var cacheDBPath string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the translation memory cache",
	Long:  `List, inspect, and clear the SQLite translation memory cache.`,
}

// openCacheDB resolves the database path from the flag or config.
func openCacheDB() (*cache.Cache, error) {
	path := cacheDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		path, err = cfg.CacheDBPath()
		if err != nil {
			return nil, err
		}
	}

	db, err := cache.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all translation memory entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheDB()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No entries in translation memory.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODEL\tUSED\tLAST USED\tSOURCE")
		for _, e := range entries {
			snippet := []rune(e.SourceText)
			if len(snippet) > 40 {
				snippet = append(snippet[:37], []rune("...")...)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				e.ID, e.Model, e.UsageCount,
				e.LastUsed.Format("2006-01-02 15:04"), string(snippet))
		}
		return w.Flush()
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total entries: %d\n", stats.TotalEntries)
		fmt.Printf("Total usage:   %d\n", stats.TotalUsage)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all entries from translation memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.Clear(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Printf("Cleared %d entries from translation memory.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.PersistentFlags().StringVar(&cacheDBPath, "db", "", "Database path (default: config directory)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
