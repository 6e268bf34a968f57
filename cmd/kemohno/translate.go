package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/jacob-ian/kemohno/emoji"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Emojify text from the arguments or stdin",
		Long:  "Translates the arguments, or each line of stdin when there are none, and prints the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetUint64("seed")
			translator, err := loadTranslator(cmd.Context(), seed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				_, err := fmt.Fprintln(out, translator.Translate(strings.Join(args, " ")))
				return err
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				if _, err := fmt.Fprintln(out, translator.Translate(scanner.Text())); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().Uint64("seed", 0, "Seed for reproducible output (0 picks a random seed).")
	return cmd
}

func loadTranslator(ctx context.Context, seed uint64) (*emoji.Translator, error) {
	ctx, cancel := context.WithTimeout(ctx, viper.GetDuration("emoji.fetch_timeout"))
	defer cancel()

	pool, err := emoji.LoadPool(ctx, viper.GetString("emoji.source"), nil)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed))
	}
	return emoji.NewTranslator(emoji.NewDispenser(pool, rng), translatorConfigFromViper()), nil
}
