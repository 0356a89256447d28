package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/robertkozin/tiktok-direct-link/resolve"
)

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <url>",
		Short: "Run one invocation for url and print the JSON response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()
			body, err := json.Marshal(resolve.Request{URL: args[0]})
			if err != nil {
				return err
			}
			resp := a.handler.Handle(cmd.Context(), body)
			fmt.Fprintln(cmd.OutOrStdout(), string(resp.Body))
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("resolve failed with status %d", resp.StatusCode)
			}
			return nil
		},
	}
}
