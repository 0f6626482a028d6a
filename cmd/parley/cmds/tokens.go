package cmds

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-go-golems/parley/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewTokensCommand() *cobra.Command {
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Count, encode and decode tokens",
	}

	countCmd := &cobra.Command{
		Use:   "count [FILE...]",
		Short: "Count the tokens of files or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			counter, err := counterFromFlags(cmd)
			if err != nil {
				return err
			}
			input, err := readInputs(cmd, args)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			model, _ := cmd.Flags().GetString("model")
			_, err = fmt.Fprintf(w, "Model: %s\nCodec: %s\nTotal tokens: %d\n", model, counter.Encoding(), counter.Count(input))
			return err
		},
	}

	encodeCmd := &cobra.Command{
		Use:   "encode [FILE...]",
		Short: "Print the token ids and pieces of files or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			counter, err := counterFromFlags(cmd)
			if err != nil {
				return err
			}
			input, err := readInputs(cmd, args)
			if err != nil {
				return err
			}
			ids, pieces, err := counter.Encode(input)
			if err != nil {
				return errors.Wrap(err, "could not encode input")
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer func() {
				_ = enc.Close()
			}()
			return enc.Encode(map[string]interface{}{
				"codec":  counter.Encoding(),
				"ids":    ids,
				"pieces": pieces,
			})
		},
	}

	decodeCmd := &cobra.Command{
		Use:   "decode [ID...]",
		Short: "Decode token ids given as arguments or on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			counter, err := counterFromFlags(cmd)
			if err != nil {
				return err
			}

			fields := args
			if len(fields) == 0 {
				input, err := readInputs(cmd, nil)
				if err != nil {
					return err
				}
				fields = strings.FieldsFunc(input, func(r rune) bool {
					return r == ',' || r == ' ' || r == '\n' || r == '\t'
				})
			}

			ids, err := parseIDs(fields)
			if err != nil {
				return err
			}
			text, err := counter.Decode(ids)
			if err != nil {
				return errors.Wrap(err, "could not decode ids")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	for _, c := range []*cobra.Command{countCmd, encodeCmd, decodeCmd} {
		c.Flags().String("model", "gpt-4", "Model whose encoding is used")
		c.Flags().String("codec", "", "Encoding to use instead of the model's (e.g. cl100k_base)")
		tokensCmd.AddCommand(c)
	}

	return tokensCmd
}

func counterFromFlags(cmd *cobra.Command) (*tokens.Counter, error) {
	codec, _ := cmd.Flags().GetString("codec")
	if codec != "" {
		c, err := tokens.NewCounterForEncoding(codec)
		if err != nil {
			return nil, errors.Wrapf(err, "unknown codec %q", codec)
		}
		return c, nil
	}
	model, _ := cmd.Flags().GetString("model")
	return tokens.NewCounter(model), nil
}

// readInputs concatenates the given files, or reads stdin if there are none or the
// only one is "-".
func readInputs(cmd *cobra.Command, files []string) (string, error) {
	if len(files) == 0 || (len(files) == 1 && files[0] == "-") {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(err, "could not read stdin")
		}
		return string(b), nil
	}

	var sb strings.Builder
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return "", err
		}
		sb.Write(b)
	}
	return sb.String(), nil
}

func parseIDs(fields []string) ([]uint, error) {
	ids := make([]uint, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(strings.TrimSpace(f), "[]")
		if f == "" {
			continue
		}
		id, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid token id %q", f)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
