package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-study/internal/config"
	"github.com/phrazzld/scry-study/internal/platform/logger"
)

// cli carries flag values and lazily built dependencies between the root
// command and its subcommands.
type cli struct {
	configFile string
	output     string

	cfg    *config.Config
	logger *slog.Logger
	app    *application
	out    *printer
}

// newRootCmd builds the command tree around c. The caller must call
// c.close once the command has run.
func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "scry",
		Short:         "Spaced-repetition flashcards with a daily streak",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file (default: ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().StringVarP(&c.output, "output", "o", formatText, "output format: text, json or yaml")

	root.AddCommand(
		newMigrateCmd(c),
		newSetCmd(c),
		newCardCmd(c),
		newDueCmd(c),
		newQueueCmd(c),
		newSessionCmd(c),
		newGradeCmd(c),
		newPreviewCmd(c),
		newPostponeCmd(c),
		newCompleteCmd(c),
		newStreakCmd(c),
		newForecastCmd(c),
		newTopicsCmd(c),
	)
	return root
}

// setup loads configuration and installs the logger.
func (c *cli) setup(cmd *cobra.Command) error {
	out, err := newPrinter(cmd.OutOrStdout(), c.output)
	if err != nil {
		return err
	}
	c.out = out

	c.cfg, err = config.Load(c.configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	c.logger, err = logger.Setup(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	cmd.SetContext(logger.WithLogger(cmd.Context(), c.logger))
	return nil
}

// application builds the dependency graph on first use.
func (c *cli) application(ctx context.Context) (*application, error) {
	if c.app != nil {
		return c.app, nil
	}
	if c.cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	app, err := newApplication(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}

// close releases whatever the executed command opened.
func (c *cli) close() {
	if c.app != nil {
		c.app.cleanup()
		c.app = nil
	}
}
