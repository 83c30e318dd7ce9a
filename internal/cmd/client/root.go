package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the Pigeon client.
// It registers the queue, kv and health command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "pigeon",
		Short: "Pigeon client commands",
	}
	root.AddCommand(NewQueueCommand(baseURL))
	root.AddCommand(NewKVCommand(baseURL))
	root.AddCommand(NewHealthCommand(baseURL))
	return root
}
