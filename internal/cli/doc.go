// Package cli defines the Cobra command tree for the printerd agent.
// Each file registers one top-level command (run, boot, chores,
// schedule, version) with the root command. Command implementations
// delegate to internal packages for the actual work and only handle
// flag parsing and mode selection.
package cli
