package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wordcraft/internal/domain"
	"wordcraft/internal/ledger"
)

func runCmd(get func() *client) *cobra.Command {
	var (
		file  string
		save  bool
		title string
		into  string
	)
	cmd := &cobra.Command{
		Use:   "run <humanizer|plagiarism|ai-detector> [text...]",
		Short: "Run a tool on text from arguments, --file or stdin",
		Long: "Run charges the tool's price before running it. Credits are not refunded\n" +
			"when the tool fails. With --save the result is stored under a generated\n" +
			"title; with --title it is stored under that title, updating --into if given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get()
			if _, err := requireProfile(c); err != nil {
				return err
			}
			tool, err := domain.ParseToolKind(args[0])
			if err != nil {
				return err
			}
			input, err := readInput(cmd.InOrStdin(), file, args[1:])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if save && title == "" && into == "" {
				res, doc, err := c.app.Pipeline.RunAndAutoSave(ctx, tool, input)
				if err != nil {
					return explainRunError(err)
				}
				printResult(out, res.Output, res.Balance, res.Skipped)
				if doc != nil {
					fmt.Fprintf(out, "Saved as %q (%s).\n", doc.Title, doc.ID)
				}
				return nil
			}

			draft, err := c.app.Pipeline.RunThenManualSave(ctx, tool, input)
			if err != nil {
				return explainRunError(err)
			}
			printResult(out, draft.Output, draft.Balance, draft.Skipped)
			if draft.Skipped || (title == "" && into == "") {
				return nil
			}
			if into != "" {
				if err := c.app.Documents.SetCurrent(into); err != nil {
					return err
				}
			} else {
				c.app.Documents.ClearCurrent()
			}
			doc, err := draft.Save(ctx, title)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved as %q (%s).\n", doc.Title, doc.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read input from a file, - for stdin")
	cmd.Flags().BoolVar(&save, "save", false, "save the result under a generated title")
	cmd.Flags().StringVar(&title, "title", "", "save the result under this title")
	cmd.Flags().StringVar(&into, "into", "", "save the result into an existing document id")
	return cmd
}

// readInput takes the text from args, or from file, or from stdin when
// neither is given.
func readInput(stdin io.Reader, file string, args []string) (string, error) {
	if len(args) > 0 {
		if file != "" {
			return "", errors.New("pass text either as arguments or with --file")
		}
		return strings.Join(args, " "), nil
	}
	var (
		data []byte
		err  error
	)
	switch file {
	case "", "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func printResult(w io.Writer, output string, balance int, skipped bool) {
	if skipped {
		fmt.Fprintln(w, "Nothing to process; no credits were used.")
		return
	}
	fmt.Fprintln(w, output)
	fmt.Fprintf(w, "\nRemaining credits: %d\n", balance)
}

func explainRunError(err error) error {
	var short *domain.InsufficientCreditsError
	if errors.As(err, &short) {
		return fmt.Errorf("%s costs %d credits but only %d remain; see `wordcraft billing`", short.Tool, short.Cost, short.Balance)
	}
	if errors.Is(err, domain.ErrTransform) {
		return fmt.Errorf("%w (credits for this run were used)", err)
	}
	return err
}

// toolPrices renders the price list shown by billing.
func toolPrices() []string {
	out := make([]string, 0, len(domain.ToolKinds))
	for _, k := range domain.ToolKinds {
		cost, _ := ledger.Cost(k)
		out = append(out, fmt.Sprintf("%s: %d", k, cost))
	}
	return out
}
