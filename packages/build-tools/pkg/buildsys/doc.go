// Package buildsys implements a minimal build system based on Starlark for the task specification
// and mvdan.cc/sh for the shell runtime.
// The goal is to create a fairly simple and portable system that is nonetheless flexible
// enough to support multi-language projects.
package buildsys
