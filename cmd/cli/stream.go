package main

import (
	"encoding/json"

	"github.com/keshon/jukebox/internal/music/track"

	"github.com/spf13/cobra"
)

var streamCmd = &cobra.Command{
	Use:   "stream <link-or-id>",
	Short: "Print the best pure-audio stream for a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newResolver()
		if err != nil {
			return err
		}

		info, err := r.Stream(cmd.Context(), track.NewLookup(args[0], ""))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	},
}

func init() {
	rootCmd.AddCommand(streamCmd)
}
