package taskrunner

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxParallel caps the number of requested targets that execute at the
// same time. Tasks that meet through a shared dependency still serialize on it.
const DefaultMaxParallel = 10

type RunOptions struct {
	// DryRun logs each command without executing it. Dependency order and the
	// run-once guarantee still apply.
	DryRun bool
	// MaxParallel bounds the concurrently executing targets. Zero or negative
	// values fall back to DefaultMaxParallel.
	MaxParallel int
}

type taskResult struct {
	done chan struct{}
	err  error
}

type scheduler struct {
	tasks TaskList
	opts  RunOptions

	mu      sync.Mutex
	results map[string]*taskResult
}

// RunTask executes a single task and its dependencies.
func RunTask(ctx context.Context, name string, tasks TaskList, dryRun bool) error {
	return RunTasks(ctx, []string{name}, tasks, RunOptions{DryRun: dryRun, MaxParallel: 1})
}

// RunTasks executes the requested tasks and their dependencies. Every task runs
// at most once per call, even when several targets share it; whoever gets there
// first executes it while the others wait for the result. The task graph is
// validated up front so a dependency cycle fails before anything runs.
func RunTasks(ctx context.Context, targets []string, tasks TaskList, opts RunOptions) error {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}

	if err := validateGraph(targets, tasks); err != nil {
		return err
	}

	sched := &scheduler{
		tasks:   tasks,
		opts:    opts,
		results: make(map[string]*taskResult),
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(opts.MaxParallel)

	for _, name := range targets {
		task := tasks[name]
		grp.Go(func() error {
			return sched.runTask(grpCtx, task)
		})
	}

	return grp.Wait()
}

func (s *scheduler) runNamed(ctx context.Context, name string) error {
	task, found := s.tasks[name]
	if !found {
		return eris.Errorf("Task %s not found", name)
	}

	return s.runTask(ctx, task)
}

func (s *scheduler) runTask(ctx context.Context, task *Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	res, started := s.results[task.Name]
	if !started {
		res = &taskResult{done: make(chan struct{})}
		s.results[task.Name] = res
	}
	s.mu.Unlock()

	if started {
		log(ctx).Debug().Msgf("Task %s already started", task.Name)
		select {
		case <-res.done:
			return res.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	res.err = s.execTask(ctx, task)
	close(res.done)
	return res.err
}

func (s *scheduler) execTask(ctx context.Context, task *Task) error {
	for _, dep := range task.Deps {
		err := s.runNamed(ctx, dep)
		if err != nil {
			return eris.Wrapf(err, "Task %s failed due to its dependency %s", task.Name, dep)
		}
	}

	return s.runCmds(ctx, task)
}

// validateGraph walks every task reachable from the targets, both through deps
// and through task references embedded in command lists. Concurrent targets
// inside one cycle would otherwise deadlock waiting on each other's results.
func validateGraph(targets []string, tasks TaskList) error {
	const (
		stateVisiting = 1
		stateDone     = 2
	)

	state := make(map[*Task]int)

	var visit func(task *Task, trail []string) error
	visit = func(task *Task, trail []string) error {
		switch state[task] {
		case stateDone:
			return nil
		case stateVisiting:
			return eris.Errorf("dependency cycle: %s", strings.Join(append(trail, task.Name), " -> "))
		}

		state[task] = stateVisiting
		trail = append(trail, task.Name)

		for _, dep := range task.Deps {
			depTask, found := tasks[dep]
			if !found {
				return eris.Errorf("Task %s not found (dependency of %s)", dep, task.Name)
			}

			if err := visit(depTask, trail); err != nil {
				return err
			}
		}

		for _, item := range task.Cmds {
			subTask, err := item.ToTask()
			if err != nil {
				return err
			}

			if subTask != nil {
				if err := visit(subTask, trail); err != nil {
					return err
				}
			}
		}

		state[task] = stateDone
		return nil
	}

	for _, name := range targets {
		task, found := tasks[name]
		if !found {
			return eris.Errorf("Task %s not found", name)
		}

		if err := visit(task, nil); err != nil {
			return err
		}
	}

	return nil
}
