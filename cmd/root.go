package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "imagepick",
	Short: "Embeddable image picker core with a demo host",
	Long: `Imagepick is an embeddable image selection library: a SQLite-backed
media index with offset paging, folder aggregation, a capped selection
session model and a byte-weighted thumbnail cache with a software
AVIF/HEIF decode fallback. The CLI indexes a directory tree and serves
a JSON demo host over the library.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "imagepick.db", "Path to the media index database")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
