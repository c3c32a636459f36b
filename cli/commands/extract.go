package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/observability"
	"github.com/petal-labs/instructor/schema"
)

type extractFlags struct {
	schemaFile  string
	name        string
	prompt      string
	system      string
	mode        string
	maxRetries  int
	stream      bool
	metricsFile string
	baseURL     string
	temperature float32
	maxTokens   int
}

func (a *App) newExtractCommand() *cobra.Command {
	f := &a.extract
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a JSON object matching a schema",
		Long: `Send a prompt and return a JSON object that validates against a JSON Schema.

Invalid output is sent back to the model with the validation errors, up to
--max-retries extra times. The prompt is read from stdin when --prompt is
omitted.

Examples:
  instruct extract --schema user.json --prompt "Jason is 25 years old"
  echo "Jason is 25" | instruct extract --schema user.json --mode json_schema
  instruct extract --schema user.json --prompt "..." --stream`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&f.schemaFile, "schema", "", "JSON Schema file (required)")
	cmd.Flags().StringVar(&f.name, "name", "", "response model name (default: schema title or Response)")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "user message (default: read stdin)")
	cmd.Flags().StringVar(&f.system, "system", "", "system message")
	cmd.Flags().StringVar(&f.mode, "mode", "", "extraction mode: "+modeNames())
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", -1, "extra attempts after a failure (default from config)")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "render partial objects as they arrive")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "override the transport endpoint")
	cmd.Flags().Float32Var(&f.temperature, "temperature", 0, "sampling temperature (0 = provider default)")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "max completion tokens (0 = provider default)")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func modeNames() string {
	names := make([]string, len(core.Modes))
	for i, m := range core.Modes {
		names[i] = strings.ToLower(string(m))
	}
	return strings.Join(names, ", ")
}

func (a *App) runExtract(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := a.extract

	if a.model == "" {
		return exitWithCode(ExitValidation, fmt.Errorf("model required: use --model or set default_model in config"))
	}

	rm, err := a.loadResponseModel()
	if err != nil {
		return err
	}

	prompt, err := a.readPrompt()
	if err != nil {
		return err
	}

	mode, err := a.resolveMode()
	if err != nil {
		return err
	}

	maxRetries := f.maxRetries
	if maxRetries < 0 {
		maxRetries = a.cfg.MaxRetries
	}

	tr, err := a.buildTransport(f.baseURL)
	if err != nil {
		return err
	}

	opts := []core.ClientOption{
		core.WithMode(mode),
		core.WithLogger(a.logger),
		core.WithDebug(parseLevel(a.logLevel) <= slog.LevelDebug),
	}
	var metrics *observability.Metrics
	if f.metricsFile != "" {
		metrics = observability.NewMetrics(nil)
		opts = append(opts, core.WithTelemetry(metrics))
		defer func() {
			if werr := metrics.WriteTextfile(expandHome(f.metricsFile)); werr != nil {
				a.logger.Warn("write metrics file", "path", f.metricsFile, "error", werr)
			}
		}()
	}

	client, err := core.NewClient(tr, opts...)
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}

	req := core.CreateRequest[map[string]any]{
		ChatRequest:   core.ChatRequest{Model: core.ModelID(a.model), Messages: a.messages(prompt)},
		ResponseModel: rm,
		MaxRetries:    maxRetries,
	}
	if f.temperature > 0 {
		req.Temperature = &f.temperature
	}
	if f.maxTokens > 0 {
		req.MaxTokens = &f.maxTokens
	}

	if f.stream {
		return a.runExtractStream(ctx, client, req)
	}

	res, err := core.Create(ctx, client, req)
	if err != nil {
		return a.handleError(err)
	}
	return a.writeResult(res.Value, res.Meta)
}

func (a *App) runExtractStream(ctx context.Context, client *core.Client, req core.CreateRequest[map[string]any]) error {
	ps, err := core.CreateStream(ctx, client, req)
	if err != nil {
		return a.handleError(err)
	}

	r := newPartialRenderer(a.stdout, a.isTerminal(a.stdout) && !a.jsonOutput)
	var last core.Partial[map[string]any]
	for p := range ps.Ch {
		last = p
		if err := r.render(p.Value); err != nil {
			return err
		}
	}
	r.finish()
	if err := <-ps.Err; err != nil {
		return a.handleError(err)
	}
	return a.writeResult(last.Value, last.Meta)
}

func (a *App) writeResult(value map[string]any, meta core.Meta) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if a.jsonOutput {
		return enc.Encode(struct {
			Value map[string]any `json:"value"`
			Meta  core.Meta      `json:"meta"`
		}{value, meta})
	}
	if err := enc.Encode(value); err != nil {
		return err
	}
	if meta.Usage != nil {
		a.logger.Info("usage",
			"prompt_tokens", meta.Usage.PromptTokens,
			"completion_tokens", meta.Usage.CompletionTokens,
			"total_tokens", meta.Usage.TotalTokens,
			"estimated", meta.UsageEstimated,
			"attempts", meta.Attempts)
	}
	return nil
}

func (a *App) loadResponseModel() (*schema.ResponseModel[map[string]any], error) {
	f := a.extract
	doc, err := os.ReadFile(expandHome(f.schemaFile))
	if err != nil {
		return nil, exitWithCode(ExitValidation, fmt.Errorf("read schema: %w", err))
	}

	name := f.name
	if name == "" {
		var head struct {
			Title string `json:"title"`
		}
		_ = json.Unmarshal(doc, &head)
		name = sanitizeName(head.Title)
	}
	if name == "" {
		name = "Response"
	}

	rm, err := schema.FromJSON(name, doc)
	if err != nil {
		return nil, exitWithCode(ExitValidation, err)
	}
	return rm, nil
}

// sanitizeName keeps characters allowed in function names.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (a *App) readPrompt() (string, error) {
	if p := strings.TrimSpace(a.extract.prompt); p != "" {
		return p, nil
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", exitWithCode(ExitValidation, fmt.Errorf("read prompt: %w", err))
	}
	p := strings.TrimSpace(string(data))
	if p == "" {
		return "", exitWithCode(ExitValidation, fmt.Errorf("prompt required: use --prompt or pipe text on stdin"))
	}
	return p, nil
}

func (a *App) resolveMode() (core.Mode, error) {
	name := a.extract.mode
	if name == "" {
		name = a.cfg.Mode
	}
	if name == "" {
		return core.DefaultMode, nil
	}
	m, err := core.ParseMode(name)
	if err != nil {
		return "", exitWithCode(ExitValidation, err)
	}
	return m, nil
}

func (a *App) messages(prompt string) []core.Message {
	var msgs []core.Message
	if a.extract.system != "" {
		msgs = append(msgs, core.Message{Role: core.RoleSystem, Content: a.extract.system})
	}
	return append(msgs, core.Message{Role: core.RoleUser, Content: prompt})
}
