package runner

import "time"

// Command template placeholders
const (
	PlaceholderTool      = "{tool}"
	PlaceholderVCT       = "{vct}"
	PlaceholderInputFile = "{input_file}"
	PlaceholderBuildDir  = "{build_dir}"
)

const (
	// DefaultShell runs command templates, which may contain redirections and pipes.
	DefaultShell     = "sh"
	ShellCommandFlag = "-c"

	// KillWaitDelay bounds how long Run waits for output pipes after the
	// process group has been killed.
	KillWaitDelay = 2 * time.Second

	// DefaultTool is the verifier binary used when neither plan nor flags name one.
	DefaultTool = "vct"
)
