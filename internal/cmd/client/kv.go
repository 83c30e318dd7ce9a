package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// NewKVCommand returns the `kv` command group.
func NewKVCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "kv", Short: "Key-value commands"}
	cmd.AddCommand(newKVSetCommand(baseURL))
	cmd.AddCommand(newKVGetCommand(baseURL))
	cmd.AddCommand(newKVDeleteCommand(baseURL))
	cmd.AddCommand(newKVListCommand(baseURL))
	return cmd
}

func newKVSetCommand(baseURL BaseURLFunc) *cobra.Command {
	setCmd := &cobra.Command{
		Use:   "set KEY",
		Short: "Store a value under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := payloadFromFlags(cmd)
			if err != nil {
				return err
			}
			out, err := do(cmd.Context(), http.MethodPost, endpoint(baseURL(), "kv", args[0]), body)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(out)))
			return nil
		},
	}
	setCmd.Flags().String("data", "", "value (reads stdin when omitted or '-')")
	return setCmd
}

func newKVGetCommand(baseURL BaseURLFunc) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			v, err := do(cmd.Context(), http.MethodGet, endpoint(baseURL(), "kv", args[0]), nil)
			if errors.Is(err, errNotFound) {
				return fmt.Errorf("key %q not found", args[0])
			}
			if err != nil {
				return err
			}
			if raw {
				_, err = cmd.OutOrStdout().Write(v)
				return err
			}
			return printJSON(cmd, decodedPayload(v))
		},
	}
	getCmd.Flags().Bool("raw", false, "write the value bytes unmodified")
	return getCmd
}

func newKVDeleteCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := do(cmd.Context(), http.MethodDelete, endpoint(baseURL(), "kv", args[0]), nil)
			if errors.Is(err, errNotFound) {
				return fmt.Errorf("key %q not found", args[0])
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(out)))
			return nil
		},
	}
}

func newKVListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List keys in sorted order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			prefix, _ := cmd.Flags().GetString("prefix")
			u := endpoint(baseURL(), "kv")
			if prefix != "" {
				u += "?prefix=" + url.QueryEscape(prefix)
			}
			out, err := do(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			var data struct {
				Keys []string `json:"keys"`
			}
			if err := jsonUnmarshal(out, &data); err != nil {
				return err
			}
			for _, k := range data.Keys {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	listCmd.Flags().String("prefix", "", "only list keys starting with prefix")
	return listCmd
}
