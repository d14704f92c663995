// Package taskrunner implements a minimal build system based on Starlark for the task
// specification and mvdan.cc/sh for the shell runtime.
// Task scripts declare the project's tasks once; the runner resolves dependencies,
// runs every task at most once per invocation and aborts a chain on the first
// failing command.
package taskrunner
