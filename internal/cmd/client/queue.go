package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewQueueCommand returns the `queue` command group.
func NewQueueCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "queue", Short: "Topic queue commands"}
	cmd.AddCommand(newQueuePublishCommand(baseURL))
	cmd.AddCommand(newQueueConsumeCommand(baseURL))
	cmd.AddCommand(newQueueLengthCommand(baseURL))
	cmd.AddCommand(newQueueTopicsCommand(baseURL))
	return cmd
}

func newQueuePublishCommand(baseURL BaseURLFunc) *cobra.Command {
	pubCmd := &cobra.Command{
		Use:   "publish TOPIC",
		Short: "Append a message to a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := payloadFromFlags(cmd)
			if err != nil {
				return err
			}
			out, err := do(cmd.Context(), http.MethodPost, endpoint(baseURL(), "queue", "publish", args[0]), body)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(out)))
			return nil
		},
	}
	pubCmd.Flags().String("data", "", "message body (reads stdin when omitted or '-')")
	return pubCmd
}

func newQueueConsumeCommand(baseURL BaseURLFunc) *cobra.Command {
	consumeCmd := &cobra.Command{
		Use:   "consume TOPIC",
		Short: "Remove and print the oldest message of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			msg, err := do(cmd.Context(), http.MethodPost, endpoint(baseURL(), "queue", "consume", args[0]), nil)
			if errors.Is(err, errNotFound) {
				return fmt.Errorf("topic %q has no messages", args[0])
			}
			if err != nil {
				return err
			}
			if raw {
				_, err = cmd.OutOrStdout().Write(msg)
				return err
			}
			return printJSON(cmd, decodedPayload(msg))
		},
	}
	consumeCmd.Flags().Bool("raw", false, "write the message bytes unmodified")
	return consumeCmd
}

func newQueueLengthCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "length TOPIC",
		Short: "Print the number of pending messages in a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := do(cmd.Context(), http.MethodGet, endpoint(baseURL(), "queue", "length", args[0]), nil)
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(strings.TrimSpace(string(out)))
			if err != nil {
				return fmt.Errorf("unexpected length response %q", out)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newQueueTopicsCommand(baseURL BaseURLFunc) *cobra.Command {
	topicsCmd := &cobra.Command{
		Use:   "topics",
		Short: "List topics and their lengths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			u := endpoint(baseURL(), "queue", "topics")
			if filter != "" {
				u += "?filter=" + url.QueryEscape(filter)
			}
			out, err := do(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			var ov map[string]int
			if err := jsonUnmarshal(out, &ov); err != nil {
				return err
			}
			names := make([]string, 0, len(ov))
			for t := range ov {
				names = append(names, t)
			}
			sort.Strings(names)
			w := cmd.OutOrStdout()
			for _, t := range names {
				_, _ = fmt.Fprintf(w, "%s\t%d\n", t, ov[t])
			}
			return nil
		},
	}
	topicsCmd.Flags().String("filter", "", "CEL expression over topic and length, e.g. 'length > 10'")
	return topicsCmd
}
