package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/dudu/eyescreen/internal/config"
	"github.com/dudu/eyescreen/internal/logging"
	"github.com/dudu/eyescreen/internal/screening"
)

const version = "0.1.0"

var (
	cfg      *config.Config
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:     "eyescreen",
	Short:   "Guided eye capture and anemia screening",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logging.Setup(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildScreeningService assembles the downstream flow from config. The
// returned cleanup closes the store connection.
func buildScreeningService(ctx context.Context) (*screening.Service, func(), error) {
	sc := cfg.Screening
	if sc.ClassifierURL == "" || sc.ClassifierModel == "" {
		return nil, nil, errors.New("screening.classifier_url and screening.classifier_model are required")
	}
	classifier := screening.NewHTTPClassifier(sc.ClassifierURL, sc.ClassifierModel, sc.ClassifierKey)

	var vitals screening.VitalsClient
	if sc.VitalsURL != "" {
		vitals = screening.NewFeedVitalsClient(sc.VitalsURL, sc.VitalsKey)
	}

	var advisor screening.Advisor
	if sc.AdvisorURL != "" && sc.AdvisorKey != "" {
		advisor = screening.NewChatAdvisor(sc.AdvisorURL, sc.AdvisorModel, sc.AdvisorKey)
	}

	cleanup := func() {}
	var store screening.Recorder
	if sc.DatabaseURL != "" {
		pg, err := screening.NewStore(ctx, sc.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store = pg
		cleanup = func() { pg.Close(context.Background()) }
	}

	var archive screening.Archive
	if sc.BlobAccount != "" {
		var err error
		archive, err = screening.NewBlobArchive(sc.BlobAccount, sc.BlobKey, sc.BlobContainer)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	svc, err := screening.NewService(classifier, vitals, advisor, store, archive)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
