package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"tryout-service/internal/attempt"
	"tryout-service/internal/config"
	"tryout-service/internal/domain"
)

// NewScoreCmd grades an answers file against a tryout file offline.
func NewScoreCmd(configPath *string) *cobra.Command {
	var tryoutFile, answersFile string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an answers file against a tryout definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			res, err := scoreFiles(tryoutFile, answersFile, cfg)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&tryoutFile, "tryout", "", "YAML or JSON tryout with questions")
	cmd.Flags().StringVar(&answersFile, "answers", "", "YAML or JSON map of question id to answer")
	_ = cmd.MarkFlagRequired("tryout")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func scoreFiles(tryoutFile, answersFile string, cfg config.Config) (domain.Result, error) {
	var tryout domain.Tryout
	if err := config.DecodeYAMLFile(tryoutFile, &tryout); err != nil {
		return domain.Result{}, err
	}
	catalog, err := attempt.NewCatalog(tryout.Questions)
	if err != nil {
		return domain.Result{}, fmt.Errorf("tryout %s: %w", tryoutFile, err)
	}

	var raw map[string]json.RawMessage
	if err := config.DecodeYAMLFile(answersFile, &raw); err != nil {
		return domain.Result{}, err
	}
	answers, err := domain.DecodeAnswers(tryout.Questions, raw)
	if err != nil {
		return domain.Result{}, err
	}

	return attempt.Score(catalog, answers, attempt.ScoreOptions{
		PassingScore: tryout.Threshold(cfg.PassingScore()),
		EmptyCatalog: attempt.ParseEmptyCatalogPolicy(cfg.Attempt.EmptyCatalog),
	}), nil
}
