package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "face-recognizer",
	Short: "Identify people in camera images against a gallery of known faces",
	Long: `Face Recognizer is an HTTP service that receives an image, obtains a face
embedding from an external extractor and compares it against known faces
loaded from a database table or a gallery file.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (YAML, JSON or TOML); environment variables take precedence")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the config file when --config is set, otherwise the environment only.
func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.Load(), nil
	}
	return config.LoadFile(configFile)
}

// setup loads the config and builds the logger every command shares.
func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
