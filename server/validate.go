package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/meikuraledutech/cmdflow"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a saved command graph",
	Long: `Loads a command graph from a JSON file (or - for stdin) the way the server would,
reports anything that had to be repaired, and lists every problem that blocks saving it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		return runValidate(cmd.OutOrStdout(), b)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

var errInvalid = errors.New("command graph is invalid")

func runValidate(w io.Writer, b []byte) error {
	p, err := cmdflow.DecodePayload(b)
	if err != nil {
		return err
	}
	g := cmdflow.Deserialize(p)
	if len(g.Nodes()) != len(p.Nodes) {
		fmt.Fprintf(w, "repaired: %d of %d nodes kept\n", len(g.Nodes()), len(p.Nodes))
	}
	if len(g.Edges()) != len(p.Edges) {
		fmt.Fprintf(w, "repaired: %d edges stored, %d after load\n", len(p.Edges), len(g.Edges()))
	}

	var verr *cmdflow.ValidationError
	if err := g.Validate(); errors.As(err, &verr) {
		for _, pr := range verr.Problems {
			fmt.Fprintf(w, "%s: %s %s\n", pr.NodeID, pr.Field, pr.Message)
		}
		return errInvalid
	}
	fmt.Fprintf(w, "/%s is valid\n", cmdflow.Serialize(g, p.ServerID).Name)
	return nil
}
