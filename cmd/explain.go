package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/analysis"
)

const explainSystemPrompt = `You are a statistician reviewing a study of whether cheating spreads between
Counter-Strike players. You are given the JSON result of one analysis run
and a question from the user.

Rules:
- Answer ONLY from the data provided. Never invent numbers.
- Always cite the observed value and the interval when making a claim.
- An observed value above the interval's upper bound is evidence against the
  null model; inside the interval is not.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise.

Fields:
- reps: randomization trials per question. z: critical value of the intervals.
- teams.observed[n]: number of teams with exactly n cheaters (n = 0..4).
- teams.expected[n]: mean and interval of the same count with shuffled team labels.
- victims: players killed by an active cheater during a match who started
  cheating after that match. Null model: player identities shuffled within each match.
- observers: players who were in a match where an active cheater killed 3 players,
  were killed later in that match, and started cheating afterwards. Same null model.`

const defaultExplainQuestion = "Summarize what this run says about cheating spreading between players."

var (
	explainModel  string
	explainAPIKey string
	explainResult string
)

var explainCmd = &cobra.Command{
	Use:   "explain [question]",
	Short: "AI-written interpretation of an analysis (requires ANTHROPIC_API_KEY)",
	Long: `Send an analysis result to the Anthropic API and stream back a grounded
interpretation. Reads a result saved with 'analyze --json' when --result is
given ('-' for stdin), otherwise runs the analysis with config defaults.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainModel, "model", "claude-haiku-4-5-20251001", "Anthropic model to use")
	explainCmd.Flags().StringVar(&explainAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
	explainCmd.Flags().StringVar(&explainResult, "result", "", "analysis JSON file ('-' for stdin)")
}

func runExplain(cmd *cobra.Command, args []string) error {
	question := defaultExplainQuestion
	if len(args) == 1 {
		question = args[0]
	}

	var (
		res *analysis.Result
		err error
	)
	if explainResult != "" {
		res, err = readResult(explainResult)
	} else {
		res, err = runAnalysis(cmd.Context(), cmd)
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return callAnthropic(cmd.Context(), explainAPIKey, explainModel, string(data), question)
}

func readResult(path string) (*analysis.Result, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open result: %w", err)
		}
		defer f.Close()
		r = f
	}
	var res analysis.Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", path, err)
	}
	return &res, nil
}

func callAnthropic(ctx context.Context, apiKey, modelID, dataJSON, question string) error {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(os.Stdout, "\n─── Interpretation ──────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: explainSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed: check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
