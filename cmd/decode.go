package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"loyscan/internal/config"
	"loyscan/internal/grammar"
	"loyscan/internal/session"
)

// decodeResult is the JSON printed for a successfully classified payload.
type decodeResult struct {
	Format        string `json:"format"`
	CustomerToken string `json:"customerToken"`
	OfferHash     string `json:"offerHash,omitempty"`
}

func decodeCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [payload]",
		Short: "Classifies a single payload and prints the decoded token as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := grammar.New(grammar.Options{DefaultBusinessID: cfg.Scanner.DefaultBusinessID})

			token, err := g.Decode(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, session.HumanMessage(err))

				return err
			}

			out, err := json.MarshalIndent(decodeResult{
				Format:        string(token.SourceFormat),
				CustomerToken: token.CustomerToken,
				OfferHash:     token.OfferHash,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("could not marshal token: %w", err)
			}
			fmt.Println(string(out)) //nolint: forbidigo

			return nil
		},
	}

	return cmd
}
