package cmd

import (
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/huddle-core/internal/tui"
	"github.com/spf13/cobra"
)

func newConsultCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "consult [symptoms]",
		Short: "Run a consultation in the terminal",
		Long:  "consult opens an interactive consultation. Symptoms given as arguments start it right away; otherwise you are asked for them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			// The program owns the terminal.
			app.installLogger(io.Discard)

			orchestrator, err := app.orchestrator()
			if err != nil {
				return err
			}

			var opts []tui.Option
			if symptoms := strings.TrimSpace(strings.Join(args, " ")); symptoms != "" {
				opts = append(opts, tui.WithSymptoms(symptoms))
			}

			model := tui.New(cmd.Context(), orchestrator, opts...)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
