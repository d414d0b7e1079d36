package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/domain"
)

type apiError struct {
	Error string `json:"error"`
}

func newAckCmd() *cobra.Command {
	var (
		consoleURL string
		keyHex     string
	)
	cmd := &cobra.Command{
		Use:   "ack <actor>",
		Short: "Acknowledge the current directive",
		Long: `Fetch the current directive from the console, sign it with the actor's
private key and record the acknowledgment.

Examples:
  GATE_PRIVATE_KEY=... gatectl ack --token $TOKEN agent-7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := privateKey(keyHex)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			ack, err := acknowledgeCurrent(ctx, strings.TrimRight(consoleURL, "/"), args[0], key)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ack)
		},
	}
	cmd.Flags().StringVar(&consoleURL, "console", "http://localhost:8000", "console API base URL")
	cmd.Flags().StringVar(&keyHex, "key", "", "private key hex (default env GATE_PRIVATE_KEY)")
	return cmd
}

func acknowledgeCurrent(ctx context.Context, base, actor, key string) (domain.Acknowledgment, error) {
	var current struct {
		domain.Directive
		apiError
	}
	status, err := doJSON(ctx, http.MethodGet, base+"/v1/directives/current", nil, &current)
	if err != nil {
		return domain.Acknowledgment{}, err
	}
	if status != http.StatusOK {
		return domain.Acknowledgment{}, fmt.Errorf("get current directive: %d %s", status, current.apiError.Error)
	}

	sig, err := credentials.Sign(key, domain.AckPayload(actor, current.Directive))
	if err != nil {
		return domain.Acknowledgment{}, err
	}

	var res struct {
		domain.Acknowledgment
		apiError
	}
	status, err = doJSON(ctx, http.MethodPost, base+"/v1/acknowledgments", domain.AckRequest{
		ActorID:     actor,
		DirectiveID: current.ID,
		Signature:   sig,
	}, &res)
	if err != nil {
		return domain.Acknowledgment{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return domain.Acknowledgment{}, fmt.Errorf("record acknowledgment: %d %s", status, res.apiError.Error)
	}
	return res.Acknowledgment, nil
}
