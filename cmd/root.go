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
	"os"

	"github.com/spf13/cobra"

	"honyaku/internal/config"
)

var version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "honyaku",
	Short: "Japanese web novel downloader and translator",
	Long: `Downloads Japanese web novels from Syosetu, Kakuyomu, and Pixiv,
scouts character names for a consistent mapping, and translates
chapters to English through an OpenAI-compatible API.

Use "honyaku translate --help" for download and translation options.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: platform config directory)")
}

// loadConfig honors the --config override.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// configFileLocation is the path shown to users in messages.
func configFileLocation() string {
	if configPath != "" {
		return configPath
	}
	path, err := config.DefaultPath()
	if err != nil {
		return "the config file"
	}
	return path
}
