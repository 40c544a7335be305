package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [query...]",
	Short: "Turn a link, playlist or search text into queueable tracks",
	Long:  "Resolve runs the same chain as the play command. No query fetches one ambient track.",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newResolver()
		if err != nil {
			return err
		}

		res, err := r.Resolve(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Label)
		for i, t := range res.Tracks {
			fmt.Fprintf(out, "%3d. [%s] %s\n", i+1, t.Kind, t.Label())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
