package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/commit-painter/internal/errors"
	"github.com/Kamar-Folarin/commit-painter/internal/github"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
	"github.com/Kamar-Folarin/commit-painter/internal/scheduler"
	"github.com/Kamar-Folarin/commit-painter/pkg/utils"
)

type paintFlags struct {
	job          jobFlags
	mapFile      string
	messagesFile string
	token        string
	rate         int
	batch        int
	seed         uint64
}

func newPaintCommand(global *globalFlags, resume bool) *cobra.Command {
	flags := &paintFlags{}

	cmd := &cobra.Command{
		Use:   "paint",
		Short: "Create the commits of an intensity map",
		Long: `Reads an intensity map (YAML or JSON) and creates one commit per unit of
intensity, oldest day first. A checkpoint left by an earlier run of the same
map is continued.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPaint(cmd, global, flags, resume)
		},
	}
	if resume {
		cmd.Use = "resume"
		cmd.Short = "Continue an interrupted run of an intensity map"
		cmd.Long = `Continues the run of an intensity map from its checkpoint. The map must be
the one the checkpoint was recorded for.`
	}

	flags.job.register(cmd)
	cmd.Flags().StringVarP(&flags.mapFile, "map", "m", "", "intensity map file")
	cmd.Flags().StringVar(&flags.messagesFile, "messages", "", "file with one commit message per line")
	cmd.Flags().StringVar(&flags.token, "token", "", "GitHub token (default $GITHUB_TOKEN)")
	cmd.Flags().IntVar(&flags.rate, "rate", 0, "commits per minute, 1..1000 (default $DEFAULT_RATE_LIMIT)")
	cmd.Flags().IntVar(&flags.batch, "batch", 0, "commits per batch, 1..100 (default $DEFAULT_BATCH_SIZE)")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "seed for messages and commit times (0 picks one)")
	cobra.CheckErr(cmd.MarkFlagRequired("map"))

	return cmd
}

func runPaint(cmd *cobra.Command, global *globalFlags, flags *paintFlags, resume bool) error {
	env, err := setup(cmd, global)
	if err != nil {
		return err
	}
	defer env.Close()

	req, err := buildRequest(flags)
	if err != nil {
		return err
	}
	if req.Token == "" {
		req.Token = env.cfg.GitHub.Token
	}
	if req.Token == "" {
		return fmt.Errorf("a GitHub token is required: pass --token or set GITHUB_TOKEN")
	}

	client := github.NewGitHubClient(req.Token, env.logger,
		github.WithBaseURL(env.cfg.GitHub.APIBaseURL),
		github.WithTimeout(env.cfg.GitHub.Timeout))
	opts := []scheduler.Option{
		scheduler.WithAuthor(models.CommitAuthor{
			Name:  env.cfg.GitHub.AuthorName,
			Email: env.cfg.GitHub.AuthorEmail,
		}),
	}
	if flags.seed != 0 {
		opts = append(opts, scheduler.WithSeed(flags.seed))
	}
	sched := scheduler.NewCommitScheduler(client, env.checkpoints, env.cfg.Scheduler, env.logger, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		printEvents(out, sched.Events(), done)
	}()

	var result *models.JobResult
	if resume {
		result, err = sched.Resume(ctx, req)
	} else {
		result, err = sched.Start(ctx, req)
	}
	close(done)
	wg.Wait()
	select {
	case ev := <-sched.Events():
		printEvent(out, ev)
	default:
	}

	printResult(out, req, result, err)
	return err
}

// buildRequest reads the map and messages files named by flags.
func buildRequest(flags *paintFlags) (*models.JobRequest, error) {
	f, err := os.Open(flags.mapFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open map: %w", err)
	}
	defer f.Close()

	m, err := utils.ReadIntensityMap(f)
	if err != nil {
		return nil, err
	}

	key, err := flags.job.key(m.Year)
	if err != nil {
		return nil, err
	}
	year, _ := utils.ParseYear(key.YearKey)
	cells, err := utils.BuildCells(m.Cells, year)
	if err != nil {
		return nil, err
	}

	var messages []string
	if flags.messagesFile != "" {
		data, err := os.ReadFile(flags.messagesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read messages: %w", err)
		}
		messages = utils.SplitMessages(string(data))
	}

	return &models.JobRequest{
		Owner:      key.OwnerLogin,
		Token:      flags.token,
		Repository: key.RepositoryName,
		Year:       key.YearKey,
		Cells:      cells,
		Messages:   messages,
		RateLimit:  flags.rate,
		BatchSize:  flags.batch,
	}, nil
}

// printEvents writes events until done is closed.
func printEvents(w io.Writer, events <-chan models.ProgressEvent, done <-chan struct{}) {
	for {
		select {
		case ev := <-events:
			printEvent(w, ev)
		case <-done:
			return
		}
	}
}

func printEvent(w io.Writer, ev models.ProgressEvent) {
	if ev.State == models.StateFailed || ev.State == models.StateCompleted {
		return
	}
	fmt.Fprintf(w, "[%3d%%] %s\n", ev.PercentComplete, ev.Message)
}

func printResult(w io.Writer, req *models.JobRequest, result *models.JobResult, err error) {
	if err == nil {
		color.New(color.FgGreen).Fprintf(w, "Created %s commits in %s\n",
			humanize.Comma(int64(result.TotalCommitted)), result.Duration.Round(time.Second))
		if result.RepositoryURL != "" {
			fmt.Fprintf(w, "  %s\n", result.RepositoryURL)
		}
		return
	}

	color.New(color.FgRed).Fprintf(w, "Failed: %v\n", err)
	if result == nil || result.Progress == nil {
		return
	}
	fmt.Fprintf(w, "  %d/%d commits are on the branch\n", result.Progress.Completed, result.Progress.Total)
	if errors.IsInvalidInput(err) || errors.IsSetup(err) || errors.IsNotFound(err) {
		return
	}
	color.New(color.FgYellow).Fprintf(w, "  Continue with: painter resume --repo %s/%s --year %s --map <file>\n",
		req.Owner, req.Repository, req.Year)
}
