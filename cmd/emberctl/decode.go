package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/protocol/s101"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(decodeCmd)
}

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode an S101 capture or a raw Glow message and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return decodeCapture(cmd.OutOrStdout(), data)
	},
}

// decodeCapture treats data starting with the S101 BOF as a framed stream
// and anything else as one BER encoded Glow root.
func decodeCapture(w io.Writer, data []byte) error {
	if len(data) == 0 || data[0] != s101.BOF {
		msg, err := glow.Decode(data)
		if err != nil {
			return err
		}
		writeMessage(w, msg)
		return nil
	}

	r := s101.NewReader(bytes.NewReader(data), s101.DefaultLimits())
	for n := 0; ; {
		m, err := r.ReadMessage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("message %d: %w", n, err)
		}
		if m.Command != s101.CommandEmber {
			fmt.Fprintf(w, "# %s\n", m.Command)
			continue
		}
		n++
		msg, err := glow.Decode(m.Payload)
		if err != nil {
			return fmt.Errorf("message %d: %w", n, err)
		}
		fmt.Fprintf(w, "# message %d (%d bytes)\n", n, len(m.Payload))
		writeMessage(w, msg)
	}
}
