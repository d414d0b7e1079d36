package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/domain"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 key pair for acknowledgments",
		Long: `Generate an ed25519 key pair. The public key is registered in the console
(PUT /v1/actors/{actor}/credential), the private key stays with the actor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, err := credentials.GenerateKeyPair()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), kp)
		},
	}
}

func newSignCmd() *cobra.Command {
	var (
		keyHex      string
		directiveID int64
		digest      string
	)
	cmd := &cobra.Command{
		Use:   "sign <actor>",
		Short: "Sign an acknowledgment payload offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := privateKey(keyHex)
			if err != nil {
				return err
			}
			d := domain.Directive{ID: directiveID, Digest: digest}
			sig, err := credentials.Sign(key, domain.AckPayload(args[0], d))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sig)
			return err
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "private key hex (default env GATE_PRIVATE_KEY)")
	cmd.Flags().Int64Var(&directiveID, "directive-id", 0, "directive version id")
	cmd.Flags().StringVar(&digest, "digest", "", "directive text digest")
	_ = cmd.MarkFlagRequired("directive-id")
	_ = cmd.MarkFlagRequired("digest")
	return cmd
}

func privateKey(flag string) (string, error) {
	if flag == "" {
		flag = os.Getenv("GATE_PRIVATE_KEY")
	}
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return "", fmt.Errorf("private key is required (--key or GATE_PRIVATE_KEY)")
	}
	return flag, nil
}
