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
	"time"

	"github.com/spf13/cobra"

	"honyaku/internal/cache"
	"honyaku/internal/config"
	"honyaku/internal/console"
	"honyaku/internal/llm"
	"honyaku/internal/namestore"
	"honyaku/internal/scout"
	"honyaku/internal/scraper"
	"honyaku/internal/translator"
	"honyaku/internal/workflow"
)

var (
	startChapter int
	endChapter   int
	noReview     bool
	noCache      bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <novel-url>",
	Short: "Download, scout names, and translate a novel",
	Long: `Runs the full pipeline for one novel: downloads chapters, scouts
character names, pauses for mapping review, and translates everything
to English. Every phase resumes; rerun the same URL to continue an
interrupted run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		novelURL := args[0]
		con := console.New()
		ctx := cmd.Context()

		con.Section("Honyaku - Web Novel Translator")

		con.Step("Loading configuration...")
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if !cfg.API.Configured() {
			con.Warning("API key not configured. Please edit: %s", configFileLocation())
			con.Info("Set your OpenAI-compatible API key in the config file and run again.")
			return nil
		}
		if err := cfg.Validate(true); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		con.Success("Configuration loaded")

		con.Step("Finding scraper for URL...")
		cookieDir, _ := config.Dir()
		registry := scraper.NewRegistry(scraper.Config{
			Delay:     time.Duration(cfg.Scraping.DelayBetweenRequestsSec * float64(time.Second)),
			Debug:     cfg.Scraping.Debug,
			CookieDir: cookieDir,
		})
		scr, err := registry.ForURL(novelURL)
		if err != nil {
			return err
		}
		con.Success("Using %s scraper", scr.Name())

		con.Step("Fetching novel information...")
		novel, err := scr.NovelInfo(ctx, novelURL)
		if err != nil {
			return fmt.Errorf("fetch novel info: %w", err)
		}
		con.Success("Found: %s", novel.Title)
		con.Info("Novel ID: %s", novel.NovelID)

		con.Step("Fetching chapter list...")
		list, err := scr.ChapterList(ctx, novel.BaseURL)
		if err != nil {
			return fmt.Errorf("fetch chapter list: %w", err)
		}
		if list.OneShot {
			con.Success("This is a one-shot story")
		} else {
			con.Success("Found %d chapters", len(list.Chapters))
		}

		namesDir, err := cfg.NamesDir()
		if err != nil {
			return err
		}
		names, err := namestore.Open(namesDir, scr.ID(), novel.NovelID)
		if err != nil {
			return fmt.Errorf("open name mapping store: %w", err)
		}
		con.Info("Name mapping: %d names loaded, %d chapters covered",
			names.Len(), len(names.Coverage()))

		var memory translator.Memory
		if !noCache {
			dbPath, err := cfg.CacheDBPath()
			if err != nil {
				return err
			}
			db, err := cache.New(dbPath)
			if err != nil {
				return fmt.Errorf("open translation memory: %w", err)
			}
			defer db.Close()
			memory = db
		}

		trans := translator.New(
			llm.NewClient(llm.Config{
				BaseURL: cfg.API.BaseURL,
				APIKey:  cfg.API.Key,
				Model:   cfg.API.Model,
			}),
			memory,
			translator.Config{
				ChunkSize:     cfg.Translation.ChunkSizeChars,
				Retries:       cfg.Translation.Retries,
				Delay:         time.Duration(cfg.Translation.DelayBetweenRequestsSec * float64(time.Second)),
				HistoryLength: cfg.Translation.HistoryLength,
			},
			cfg.Prompts.TitleTranslation,
			cfg.Prompts.ContentTranslation,
			con,
		)

		nameScout := scout.New(
			llm.NewClient(llm.Config{
				BaseURL: cfg.ScoutAPI.BaseURL,
				APIKey:  cfg.ScoutAPI.Key,
				Model:   cfg.ScoutAPI.Model,
			}),
			scout.Config{
				ChunkSize:   cfg.NameScout.ChunkSizeChars,
				JSONRetries: cfg.NameScout.JSONRetries,
				Delay:       time.Duration(cfg.NameScout.DelayBetweenRequestsSec * float64(time.Second)),
			},
			cfg.Prompts.NameScout,
			con,
		)

		runner := workflow.New(workflow.Params{
			Console:    con,
			Scraper:    scr,
			Novel:      novel,
			Translator: trans,
			Scout:      nameScout,
			Names:      names,
			OutputDir:  cfg.Paths.OutputDirectory,
			EditorCmd:  cfg.Paths.EditorCommand,
		})

		if err := runner.Run(ctx, list, workflow.Options{
			StartChapter: startChapter,
			EndChapter:   endChapter,
			SkipReview:   noReview,
		}); err != nil {
			return err
		}

		con.Section("Done!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().IntVar(&startChapter, "start", 0, "Start from chapter N (1-based)")
	translateCmd.Flags().IntVar(&endChapter, "end", 0, "Stop at chapter N (1-based, inclusive)")
	translateCmd.Flags().BoolVar(&noReview, "no-review", false, "Skip the manual name mapping review pause")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the translation memory cache")
}
