package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"authorship/internal/model"
)

func newPredictCommand(ctx *commandContext) *cobra.Command {
	var modelName string
	var file string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "predict [text...]",
		Short: "Attribute texts with a cached model",
		Long:  "Texts come from arguments, from --file (one passage per line), or from stdin when neither is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			arch, err := model.ParseArchitecture(modelName)
			if err != nil {
				return err
			}
			texts, err := predictInputs(cmd, args, file)
			if err != nil {
				return err
			}
			if len(texts) == 0 {
				return fmt.Errorf("no input texts")
			}
			mgr, _, err := ctx.newManager(nil)
			if err != nil {
				return err
			}
			p, err := mgr.Predictor(arch)
			if err != nil {
				return err
			}
			preds, err := p.Predict(texts)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, preds)
			}
			rows := make([][]string, 0, len(preds))
			for i, pred := range preds {
				runnerUp := "-"
				if len(pred.Scores) > 1 {
					runnerUp = fmt.Sprintf("%s (%.3f)", pred.Scores[1].Author, pred.Scores[1].Probability)
				}
				rows = append(rows, []string{excerpt(texts[i], 40), pred.Author, fmt.Sprintf("%.3f", pred.Confidence), runnerUp})
			}
			return writeTable(cmd.OutOrStdout(),
				[]string{"Text", "Author", "Confidence", "Runner-up"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			)
		},
	}
	cmd.Flags().StringVarP(&modelName, "model", "m", string(model.Baseline), "Architecture to predict with")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read passages from a file, one per line")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func predictInputs(cmd *cobra.Command, args []string, file string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var r io.Reader = cmd.InOrStdin()
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	var texts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	return texts, scanner.Err()
}

func excerpt(text string, n int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n-1]) + "…"
}
