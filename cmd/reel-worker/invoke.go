package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/race-reels/internal/models"
)

// errRequestFailed signals a pipeline error already written to stdout.
var errRequestFailed = errors.New("request failed")

func newInvokeCmd() *cobra.Command {
	var payload, file string

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Run one pipeline request",
		Long: `Reads a JSON request from --payload, --file or stdin, runs it and prints the JSON result.

Example:
  echo '{"requestType":"PROCESS_IMAGES","eventId":1001,"fileId":"abc"}' | reel-worker invoke`,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readRequest(cmd.InOrStdin(), payload, file)
			if err != nil {
				return err
			}

			p, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			result, err := p.invoker.DispatchJSON(cmd.Context(), body)
			if err != nil {
				if encErr := enc.Encode(models.ErrorResponse{
					ErrorKind: models.KindOf(err),
					Error:     err.Error(),
				}); encErr != nil {
					return encErr
				}
				return errRequestFailed
			}
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&payload, "payload", "p", "", "JSON request body")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to a JSON request file (- for stdin)")
	return cmd
}

func readRequest(stdin io.Reader, payload, file string) ([]byte, error) {
	switch {
	case payload != "":
		return []byte(payload), nil
	case file != "" && file != "-":
		body, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read request file: %w", err)
		}
		return body, nil
	default:
		body, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read request: %w", err)
		}
		return body, nil
	}
}

// exitOnRequestFailure keeps the JSON body as the only output for failed requests.
func exitOnRequestFailure(err error) {
	if errors.Is(err, errRequestFailed) {
		os.Exit(1)
	}
}
