package runner

import (
	"fmt"
	"strings"
)

// CommandTemplate is a shell command with placeholders for the verifier, the
// build directory and the input file.
type CommandTemplate string

// TemplateVars are the values substituted into a CommandTemplate.
type TemplateVars struct {
	Tool      string
	BuildDir  string
	InputFile string
}

// Validate checks that the template references the input file.
func (t CommandTemplate) Validate() error {
	if strings.TrimSpace(string(t)) == "" {
		return fmt.Errorf("command template is empty")
	}
	if !strings.Contains(string(t), PlaceholderInputFile) {
		return fmt.Errorf("command template %q does not contain %s", t, PlaceholderInputFile)
	}
	return nil
}

// Expand substitutes the placeholders. Unknown braces are left untouched.
func (t CommandTemplate) Expand(vars TemplateVars) string {
	r := strings.NewReplacer(
		PlaceholderTool, vars.Tool,
		PlaceholderVCT, vars.Tool,
		PlaceholderBuildDir, vars.BuildDir,
		PlaceholderInputFile, vars.InputFile,
	)
	return r.Replace(string(t))
}
