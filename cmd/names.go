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
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"honyaku/internal/namestore"
	"honyaku/internal/scraper"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Inspect name mapping files",
	Long: `Shows the character name mappings collected for a novel, identified
by its URL, e.g. "honyaku names show https://ncode.syosetu.com/n1234ab/".`,
}

// openNamesForURL resolves the novel URL to its name mapping store.
// No network access; the work is identified from the URL alone.
func openNamesForURL(novelURL string) (*namestore.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	namesDir, err := cfg.NamesDir()
	if err != nil {
		return nil, err
	}

	registry := scraper.NewRegistry(scraper.Config{})
	module, workID, err := registry.Identify(novelURL)
	if err != nil {
		return nil, err
	}
	return namestore.Open(namesDir, module, workID)
}

var namesShowCmd = &cobra.Command{
	Use:   "show <novel-url>",
	Short: "Show the name mappings for a novel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := openNamesForURL(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("File: %s\n", names.Path())
		fmt.Printf("Chapters covered: %d\n\n", len(names.Coverage()))

		winners := names.Winners()
		if len(winners) == 0 {
			fmt.Println("No names recorded yet.")
			return nil
		}

		originals := make([]string, 0, len(winners))
		for original := range winners {
			originals = append(originals, original)
		}
		sort.Strings(originals)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ORIGINAL\tENGLISH\tPART\tVOTES")
		for _, original := range originals {
			info := names.Info(original)
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
				original, info.English, info.Part, info.Count)
		}
		return w.Flush()
	},
}

var namesPurgeCmd = &cobra.Command{
	Use:   "purge <novel-url>",
	Short: "Drop invalid entries from a novel's name mapping",
	Long: `Revalidates every recorded name and vote, removing pronouns, generic
words, and malformed entries that slipped past extraction or were
introduced by hand edits. The cleaned file is written back.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Opening revalidates and rewrites the file.
		names, err := openNamesForURL(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Purged. %d names remain in %s\n", names.Len(), names.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(namesCmd)

	namesCmd.AddCommand(namesShowCmd)
	namesCmd.AddCommand(namesPurgeCmd)
}
