// Command gatectl утилита оператора и агента: проверка операций, ключи, подтверждения.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Коды выхода check: скрипты ветвятся по ним без разбора вывода.
const (
	exitAllow = 0
	exitBlock = 1
	exitError = 2
)

var (
	token   string
	timeout time.Duration
	version = "dev"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	code := exitAllow
	root := newRootCmd(&code)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		return exitError
	}
	return code
}

func newRootCmd(code *int) *cobra.Command {
	root := &cobra.Command{
		Use:           "gatectl",
		Short:         "CLI for the directive gate and its console",
		Version:       version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("GATE_TOKEN"), "bearer token (env GATE_TOKEN)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")

	root.AddCommand(newCheckCmd(code))
	root.AddCommand(newKeygenCmd())
	root.AddCommand(newSignCmd())
	root.AddCommand(newAckCmd())
	return root
}

// doJSON отправляет JSON и декодирует ответ в out при любом статусе.
func doJSON(ctx context.Context, method, url string, in, out interface{}) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
		}
	}
	return resp.StatusCode, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
