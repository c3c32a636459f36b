package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/instructor/core"
)

func (a *App) newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <endpoint-url>",
		Short: "Show which provider an endpoint belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := core.DetectProvider(args[0])
			if a.jsonOutput {
				return json.NewEncoder(a.stdout).Encode(map[string]string{
					"endpoint": args[0],
					"provider": p.String(),
				})
			}
			fmt.Fprintln(a.stdout, p)
			return nil
		},
	}
}

type modeSupport struct {
	Provider core.Provider `json:"provider"`
	Mode     core.Mode     `json:"mode"`
	Models   []string      `json:"models"`
}

func (a *App) newModesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modes [provider]",
		Short: "List the modes and models each provider supports",
		Long: `List the compatibility matrix. With a provider argument (OAI, ANTHROPIC,
TOGETHER, ANYSCALE, OTHER) only that provider is shown. "*" means any model.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provs := core.Providers
			if len(args) == 1 {
				p, err := parseProvider(args[0])
				if err != nil {
					return exitWithCode(ExitValidation, err)
				}
				provs = []core.Provider{p}
			}

			mx := core.DefaultMatrix()
			var rows []modeSupport
			for _, p := range provs {
				for _, m := range mx.Modes[p] {
					rows = append(rows, modeSupport{Provider: p, Mode: m, Models: mx.Models[p][m]})
				}
			}

			if a.jsonOutput {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			for _, r := range rows {
				fmt.Fprintf(a.stdout, "%-10s %-12s %s\n", r.Provider, r.Mode, strings.Join(r.Models, ", "))
			}
			return nil
		},
	}
}

func parseProvider(s string) (core.Provider, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	if want == "OPENAI" {
		want = string(core.ProviderOpenAI)
	}
	for _, p := range core.Providers {
		if string(p) == want {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (valid: %v)", s, core.Providers)
}
