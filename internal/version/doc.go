// Package version carries the build metadata of alarm-dispatch, injected with
// ldflags, and the cobra subcommand printing it.
package version
