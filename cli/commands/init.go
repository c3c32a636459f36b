package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/petal-labs/instructor/providers"
)

type initFlags struct {
	force   bool
	example string
}

func (a *App) newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Write a commented config file for the selected transport.

The file goes to --config, $INSTRUCTOR_CONFIG or ~/.instructor/config.yaml.
An existing file is kept unless --force is given.

Examples:
  instruct init
  instruct init --transport together --example ./person.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit()
		},
	}
	cmd.Flags().BoolVar(&a.initOpts.force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&a.initOpts.example, "example", "", "also write an example JSON Schema to this path")
	return cmd
}

func (a *App) runInit() error {
	name := strings.ToLower(a.transport)
	reg, ok := providers.Lookup(name)
	if !ok {
		return exitWithCode(ExitValidation, fmt.Errorf(
			"unknown transport %q (available: %s)", a.transport, strings.Join(providers.List(), ", ")))
	}

	path := a.configPath()
	if _, err := os.Stat(path); err == nil && !a.initOpts.force {
		return exitWithCode(ExitValidation, fmt.Errorf("%s already exists (use --force to overwrite)", path))
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	data := templateData{
		Transport: name,
		Model:     defaultModel(name),
		APIKeyEnv: reg.APIKeyEnv,
		BaseURL:   reg.DefaultBaseURL,
	}
	if err := generateFile(path, configTemplate, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(a.stdout, "Wrote %s\n", path)

	if a.initOpts.example != "" {
		if err := generateFile(a.initOpts.example, exampleSchema, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", a.initOpts.example, err)
		}
		fmt.Fprintf(a.stdout, "Wrote %s\n", a.initOpts.example)
	}

	fmt.Fprintln(a.stdout, "\nNext steps:")
	if data.APIKeyEnv != "" {
		fmt.Fprintf(a.stdout, "  export %s=<your-key>   (or: instruct keys set %s)\n", data.APIKeyEnv, name)
	}
	fmt.Fprintln(a.stdout, `  instruct extract --schema person.schema.json --prompt "Jason is 25 years old"`)
	return nil
}

type templateData struct {
	Transport string
	Model     string
	APIKeyEnv string
	BaseURL   string
}

func generateFile(path, tmplContent string, data templateData, perm os.FileMode) error {
	tmpl, err := template.New(filepath.Base(path)).Parse(tmplContent)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func defaultModel(transport string) string {
	switch transport {
	case "together", "anyscale":
		return "mistralai/Mixtral-8x7B-Instruct-v0.1"
	case "anthropic":
		return "claude-3-5-sonnet-latest"
	default:
		return "gpt-4o-mini"
	}
}

var configTemplate = `# instruct configuration
default_transport: {{.Transport}}
default_model: {{.Model}}

# FUNCTIONS, TOOLS, JSON, MD_JSON or JSON_SCHEMA
mode: TOOLS

# Extra attempts after a failed one. Validation errors are sent back to
# the model on each retry.
max_retries: 2

# debug, info, warn or error
log_level: warn

transports:
  {{.Transport}}:
    api_key_env: {{.APIKeyEnv}}
    # base_url: {{.BaseURL}}
    # timeout: 60s
    # rate_limit: 2      # requests per second
    # retries: 2         # resend rate-limited and 5xx requests
    # breaker_threshold: 5  # fail fast after this many upstream failures
    # breaker_cooldown: 30s
`

var exampleSchema = `{
  "title": "Person",
  "description": "A person mentioned in the text",
  "type": "object",
  "properties": {
    "name": {"type": "string", "description": "full name"},
    "age": {"type": "integer", "minimum": 0}
  },
  "required": ["name", "age"]
}
`
