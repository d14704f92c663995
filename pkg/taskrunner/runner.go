package taskrunner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

func taskEnviron(task *Task) expand.Environ {
	envVars := os.Environ()

	for name, value := range task.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, value))
	}

	return expand.ListEnviron(envVars...)
}

// execTracer logs every spawned command. The shell builtins don't pass through
// here, only external programs do.
func execTracer(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		log(ctx).Debug().Strs("argv", args).Msg("exec")
		return next(ctx, args)
	}
}

func newShellRunner(dir string, env expand.Environ, stdout, stderr io.Writer) (*interp.Runner, error) {
	return interp.New(
		interp.Dir(dir),
		interp.Env(env),
		interp.ExecHandlers(execTracer),
		interp.StdIO(nil, stdout, stderr),
		interp.Params("-e"),
	)
}

// runCmds executes the task's commands in order. Shell state (variables, cwd)
// persists across the commands of a single task. A task reference suspends the
// shell sequence until the referenced task has run.
func (s *scheduler) runCmds(ctx context.Context, task *Task) error {
	runner, err := newShellRunner(task.Base, taskEnviron(task), os.Stdout, os.Stderr)
	if err != nil {
		return eris.Wrap(err, "Failed to initialize the shell runner")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(
		syntax.Minify(true),
	)
	strBuffer := strings.Builder{}

	for _, item := range task.Cmds {
		stmts, err := item.ToShellStmts(parser)
		if err != nil {
			return eris.Wrap(err, "failed to parse shell script")
		}
		if stmts != nil {
			for _, stm := range stmts {
				strBuffer.Reset()
				printer.Print(&strBuffer, stm)
				log(ctx).Info().
					Str("task", task.Name).
					Bool("command", true).
					Msg(strBuffer.String())

				if !s.opts.DryRun {
					err = runner.Run(ctx, stm)
					if err != nil {
						return err
					}

					if runner.Exited() {
						return nil
					}
				}
			}
		} else {
			subTask, err := item.ToTask()
			if err != nil {
				return eris.Wrap(err, "failed to retrieve task ref")
			}

			if subTask != nil {
				err = s.runTask(ctx, subTask)
				if err != nil {
					return err
				}
			} else {
				return eris.Errorf("unexpected task command %+v", item)
			}
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
