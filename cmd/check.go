package cmd

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/koscakluka/huddle-core/core/emergency"
	"github.com/koscakluka/huddle-core/core/ratelimit"
	"github.com/spf13/cobra"
)

var errMissingSymptoms = errors.New("symptoms are required")

type checkOutput struct {
	emergency.Result
	Message string `json:"message,omitempty"`
}

func newCheckCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "check <symptoms>",
		Short: "Screen symptoms for emergency red flags and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symptoms := strings.TrimSpace(strings.Join(args, " "))
			if symptoms == "" {
				return errMissingSymptoms
			}

			app, err := load()
			if err != nil {
				return err
			}
			app.installLogger(cmd.ErrOrStderr())

			gate, err := app.emergencyGate(ratelimit.NewGate(ratelimit.WithMinInterval(app.cfg.Timing.RateInterval)))
			if err != nil {
				return err
			}

			out := checkOutput{Result: gate.Check(cmd.Context(), symptoms)}
			if out.IsEmergency {
				out.Message = emergency.Message
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(out)
		},
	}
}
