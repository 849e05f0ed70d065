// Package commands implements the painter CLI.
package commands

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/commit-painter/internal/checkpoint"
	"github.com/Kamar-Folarin/commit-painter/internal/config"
	"github.com/Kamar-Folarin/commit-painter/internal/db"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
	"github.com/Kamar-Folarin/commit-painter/pkg/utils"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	checkpointDir string
	backend       string
	verbose       bool
}

// NewRootCommand builds the painter command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "painter",
		Short: "Paint a GitHub contribution graph with dated commits",
		Long: `painter turns an intensity map into commits on a repository's default branch.

Commands:
  paint     Create the commits of a map, continuing a matching checkpoint
  resume    Continue an interrupted run
  status    List stored checkpoints
  discard   Delete a checkpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.checkpointDir, "checkpoint-dir", "", "checkpoint directory (default $CHECKPOINT_DIR or ~/.commit-painter/checkpoints)")
	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "checkpoint backend: file, postgres or memory (default $CHECKPOINT_BACKEND or file)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newPaintCommand(flags, false))
	rootCmd.AddCommand(newPaintCommand(flags, true))
	rootCmd.AddCommand(newStatusCommand(flags))
	rootCmd.AddCommand(newDiscardCommand(flags))

	return rootCmd
}

// environment is what every subcommand needs at run time.
type environment struct {
	cfg         *config.Config
	logger      *logrus.Logger
	store       db.Store
	checkpoints *checkpoint.Manager
}

func (e *environment) Close() error {
	return e.store.Close()
}

func setup(cmd *cobra.Command, flags *globalFlags) (*environment, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.checkpointDir != "" {
		cfg.CheckpointDir = flags.checkpointDir
	}
	if flags.backend != "" {
		cfg.CheckpointBackend = flags.backend
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, flags.verbose)

	store, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	return &environment{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		checkpoints: checkpoint.NewManager(store, logger),
	}, nil
}

// newLogger logs to w in text form. Progress goes to stdout separately, so
// the default level only lets warnings through.
func newLogger(w io.Writer, level string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if parsed, err := logrus.ParseLevel(level); err == nil && parsed > logrus.InfoLevel {
		logger.SetLevel(parsed)
	}
	return logger
}

// jobFlags identify a job on the command line.
type jobFlags struct {
	owner string
	repo  string
	year  string
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.owner, "owner", "", "repository owner login")
	cmd.Flags().StringVar(&f.repo, "repo", "", "repository name, owner/name or URL")
	cmd.Flags().StringVar(&f.year, "year", "", "year the map belongs to")
}

// key resolves the flags into a job key. year may be supplied by a map file.
func (f *jobFlags) key(year string) (models.JobKey, error) {
	owner, repo := f.owner, f.repo
	if repo == "" {
		return models.JobKey{}, fmt.Errorf("--repo is required")
	}
	if parsedOwner, parsedRepo, err := utils.ParseRepository(repo); err == nil {
		if owner != "" && owner != parsedOwner {
			return models.JobKey{}, fmt.Errorf("--owner %q does not match repository %q", owner, repo)
		}
		owner, repo = parsedOwner, parsedRepo
	}
	if owner == "" {
		return models.JobKey{}, fmt.Errorf("--owner is required")
	}

	if f.year != "" {
		year = f.year
	}
	if _, err := utils.ParseYear(year); err != nil {
		return models.JobKey{}, fmt.Errorf("--year: %w", err)
	}

	return models.JobKey{OwnerLogin: owner, RepositoryName: repo, YearKey: year}, nil
}
