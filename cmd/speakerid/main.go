// Command speakerid names the speakers of a diarized meeting transcript by
// matching each segment's voice against enrolled recordings.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "speakerid: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "speakerid",
		Short: "Attribute diarized transcripts to enrolled speakers",
		Long: `speakerid turns anonymous diarization labels into real names.

Each person is enrolled with one or more recordings named after them
(alice.wav, bob,jones(1of2).wav). Every transcript segment is embedded,
scored against the enrolled voiceprints, and either named or assigned an
"Unknown Speaker N" placeholder when the match is not confident.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: search ./cmd/speakerid, ./config, .)")

	root.AddCommand(
		newAttributeCmd(&configPath),
		newEnrollCmd(&configPath),
		newServeCmd(&configPath),
		newVersionCmd(),
	)
	return root
}
