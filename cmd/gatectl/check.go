package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/xela07ax/directive-gate/internal/domain"
	"github.com/xela07ax/directive-gate/internal/engine"
)

func newCheckCmd(code *int) *cobra.Command {
	var (
		gateURL  string
		grpcAddr string
	)
	cmd := &cobra.Command{
		Use:   "check <actor> <operation>",
		Short: "Ask the gate whether an operation is allowed",
		Long: `Ask the gate whether an operation is allowed.

Exit code 0 means ALLOW, 1 means BLOCK, 2 means the check itself failed.

Examples:
  gatectl check agent-7 deploy
  gatectl check --grpc localhost:50052 agent-7 deploy`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var (
				decision domain.ComplianceDecision
				err      error
			)
			if grpcAddr != "" {
				decision, err = checkGRPC(ctx, grpcAddr, args[0], args[1])
			} else {
				decision, err = checkHTTP(ctx, gateURL, args[0], args[1])
			}
			if err != nil {
				*code = exitError
				return err
			}

			if err := printJSON(cmd.OutOrStdout(), decision); err != nil {
				return err
			}
			if !decision.Allowed {
				*code = exitBlock
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&gateURL, "gate", "http://localhost:8080", "gate HTTP base URL")
	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "gate gRPC address (overrides --gate)")
	return cmd
}

type checkResult struct {
	Decision domain.ComplianceDecision `json:"decision"`
	Error    string                    `json:"error"`
}

func checkHTTP(ctx context.Context, base, actor, op string) (domain.ComplianceDecision, error) {
	var res checkResult
	status, err := doJSON(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/v1/check",
		engine.CheckRequest{ActorID: actor, Operation: op}, &res)
	if err != nil {
		return domain.ComplianceDecision{}, err
	}
	switch status {
	case http.StatusOK, http.StatusForbidden:
		return res.Decision, nil
	case http.StatusServiceUnavailable:
		// Нет ни одной директивы: шлюз отказывает, но это не сбой проверки
		return res.Decision, nil
	default:
		return domain.ComplianceDecision{}, fmt.Errorf("gate responded %d: %s", status, res.Error)
	}
}

func checkGRPC(ctx context.Context, addr, actor, op string) (domain.ComplianceDecision, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return domain.ComplianceDecision{}, fmt.Errorf("dial gate: %w", err)
	}
	defer conn.Close()

	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", token)
	}
	decision, err := engine.NewGateClient(conn).CheckOperation(ctx, actor, op)
	if err != nil {
		return domain.ComplianceDecision{}, fmt.Errorf("grpc check: %w", err)
	}
	return decision, nil
}
