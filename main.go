package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	var (
		apiURL     string
		configPath string
		debug      bool
	)

	root := &cobra.Command{
		Use:           "library",
		Short:         "Command-line client for the library management API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), configPath, apiURL, debug)
		},
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides LIBRARY_API_URL)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "log every request")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newValidateCmd(a),
		newRefreshCmd(a),
		newPingCmd(a),
		newBooksCmd(a),
		newMembersCmd(a),
		newLoansCmd(a),
		newStatsCmd(a),
		newShellCmd(a),
	)
	return root, a
}

func main() {
	root, a := newRootCmd()
	err := root.ExecuteContext(context.Background())
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
