package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jaytaylor/github-trending-archive-firehose/pkg/taskrunner"
)

var rootCmd = &cobra.Command{
	Use:   "ghtrend [task...] [key=value...]",
	Short: "Task runner for the trending archive project",
	Long: `This command parses the first tasks.star file it finds and executes the given tasks.
Pass key=value pairs to override script options for this run; use the configure
subcommand to persist them. Without arguments, the available tasks are listed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return err
		}

		taskArgs, options := splitArgs(args)

		logger := newLogger(cmd)
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		ctx = taskrunner.WithLogger(ctx, &logger)

		taskPath, err := findTaskScript()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to locate the task script")
		}

		projectRoot := filepath.Dir(taskPath)
		options = mergeCachedOptions(&logger, projectRoot, options)

		taskList, _, err := taskrunner.RunScript(ctx, taskPath, projectRoot, options, true)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to parse tasks")
		}

		if len(taskArgs) == 0 {
			printTaskList(taskList)
			return nil
		}

		err = taskrunner.RunTasks(ctx, taskArgs, taskList, taskrunner.RunOptions{
			DryRun:      dryRun,
			MaxParallel: jobs,
		})
		if err != nil {
			logger.Fatal().Err(err).Msgf("Failed tasks %s:", strings.Join(taskArgs, ", "))
		}

		return nil
	},
}

var configureCmd = &cobra.Command{
	Use:   "configure [key=value...]",
	Short: "Persist option values for later runs",
	Long: `Parses the task script, stores the passed key=value options next to it and
reuses them for every later invocation until configure runs again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		ctx := taskrunner.WithLogger(context.Background(), &logger)

		taskPath, err := findTaskScript()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to locate the task script")
		}

		projectRoot := filepath.Dir(taskPath)
		options := make(map[string]string)

		for _, part := range args {
			pos := strings.Index(part, "=")
			if pos < 0 {
				logger.Fatal().Msgf("%s is not a key=value pair", part)
			}
			options[part[:pos]] = part[pos+1:]
		}

		taskList, declared, err := taskrunner.RunScript(ctx, taskPath, projectRoot, options, true)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to parse tasks")
		}

		for name := range options {
			if _, ok := declared[name]; !ok {
				logger.Warn().Msgf("Option %s is not declared by %s", name, taskPath)
			}
		}

		cachePath := filepath.Join(projectRoot, taskrunner.CacheFilename)
		err = taskrunner.WriteCache(cachePath, options, taskList)
		if err != nil {
			logger.Fatal().Err(err).Msgf("Failed to write %s", cachePath)
		}

		logger.Info().Msgf("Stored %d option(s) in %s", len(options), cachePath)
		return nil
	},
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(NewConsoleWriter()).Level(level)
}

// splitArgs separates task names from key=value option overrides.
func splitArgs(args []string) ([]string, map[string]string) {
	taskArgs := make([]string, 0, len(args))
	options := make(map[string]string)

	for _, part := range args {
		pos := strings.Index(part, "=")
		if pos > -1 {
			options[part[:pos]] = part[pos+1:]
		} else {
			taskArgs = append(taskArgs, part)
		}
	}

	return taskArgs, options
}

// findTaskScript walks from the working directory towards the filesystem root
// and returns the first tasks.star it finds.
func findTaskScript() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "failed to retrieve the current working directory")
	}

	path := wd
	for {
		taskPath := filepath.Join(path, "tasks.star")
		_, err := os.Stat(taskPath)
		if err == nil {
			return taskPath, nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", taskPath)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.New("no tasks.star file found")
		}

		path = parent
	}
}

// mergeCachedOptions loads the options stored by the configure subcommand.
// Options passed on the command line win.
func mergeCachedOptions(logger *zerolog.Logger, projectRoot string, options map[string]string) map[string]string {
	cachePath := filepath.Join(projectRoot, taskrunner.CacheFilename)
	cached, _, err := taskrunner.ReadCache(cachePath)
	if err != nil {
		if !eris.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Msgf("Ignoring unreadable option cache %s", cachePath)
		}
		return options
	}

	merged := make(map[string]string, len(cached)+len(options))
	for name, value := range cached {
		merged[name] = value
	}
	for name, value := range options {
		merged[name] = value
	}

	return merged
}

func printTaskList(taskList taskrunner.TaskList) {
	fmt.Println("Available tasks:")
	maxNameLen := 0
	sortedNames := make([]string, 0)
	for _, task := range taskList {
		nameLen := len(task.Name)
		if nameLen > maxNameLen {
			maxNameLen = nameLen
		}

		sortedNames = append(sortedNames, task.Name)
	}

	sort.Strings(sortedNames)

	lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
	for _, name := range sortedNames {
		fmt.Printf(lineFmt, name+":", taskList[name].Desc)
	}
}

func init() {
	rootCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	rootCmd.Flags().IntP("jobs", "j", taskrunner.DefaultMaxParallel, "maximum number of tasks to run concurrently")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug output")
	rootCmd.AddCommand(configureCmd)
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
