package runner

import (
	"batch-runner/internal/batch/catalog"
)

// CommandBuilder turns a job definition into the argument vector handed to
// the runner. Implementations are swapped per deployment environment.
type CommandBuilder interface {
	Build(job catalog.Job) []string
}

// NewCommandBuilder selects a builder by name. An unknown or empty name
// falls back to the default builder.
func NewCommandBuilder(name, scriptExtension string) CommandBuilder {
	switch name {
	case "script":
		return &ScriptCommandBuilder{Extension: scriptExtension}
	default:
		return &DefaultCommandBuilder{}
	}
}

// DefaultCommandBuilder uses the job's command and arguments verbatim.
type DefaultCommandBuilder struct{}

// Build returns the command followed by the configured arguments.
func (b *DefaultCommandBuilder) Build(job catalog.Job) []string {
	args := make([]string, 0, len(job.Arguments)+1)
	args = append(args, job.Command)
	args = append(args, job.Arguments...)
	return args
}

// ScriptCommandBuilder appends a platform script extension to the command,
// for deployments where the catalog names scripts without one.
type ScriptCommandBuilder struct {
	Extension string
}

// Build returns the command with the extension appended, followed by the
// configured arguments.
func (b *ScriptCommandBuilder) Build(job catalog.Job) []string {
	args := make([]string, 0, len(job.Arguments)+1)
	args = append(args, job.Command+b.Extension)
	args = append(args, job.Arguments...)
	return args
}
