package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/health-risk-server/internal/domain"
	"github.com/health-risk-server/internal/service"
)

type scoreOutput struct {
	DiseaseType   domain.DiseaseType         `json:"diseaseType"`
	RiskScore     int                        `json:"riskScore"`
	RiskLevel     domain.RiskLevel           `json:"riskLevel"`
	Contributions []service.RuleContribution `json:"contributions"`
}

func (c *cli) scoreCmd() *cobra.Command {
	var disease, answers, file string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one questionnaire without storing it",
		Example: `  hractl score --disease diabetes --answers '{"d1":52,"d2":"yes","d3":95,"d4":170,"d5":"unhealthy"}'
  hractl score --disease heart --file answers.json -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := domain.ParseDiseaseType(disease)
			if err != nil {
				return err
			}

			data := []byte(answers)
			if file != "" {
				if data, err = readInput(cmd, file); err != nil {
					return err
				}
			}
			raw := map[string]any{}
			if len(data) > 0 {
				if err := json.Unmarshal(data, &raw); err != nil {
					return fmt.Errorf("answers must be a JSON object: %w", err)
				}
			}

			a, err := domain.DecodeAnswers(d, raw)
			if err != nil {
				return err
			}
			result := service.Score(a)
			return c.print(cmd.OutOrStdout(), scoreOutput{
				DiseaseType:   d,
				RiskScore:     result.Score,
				RiskLevel:     result.Level,
				Contributions: service.Explain(a),
			})
		},
	}

	cmd.Flags().StringVarP(&disease, "disease", "d", "", "disease: diabetes, kidney or heart")
	cmd.Flags().StringVar(&answers, "answers", "", "answers as a JSON object")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read answers from a JSON file (- for stdin)")
	_ = cmd.MarkFlagRequired("disease")
	cmd.MarkFlagsMutuallyExclusive("answers", "file")
	return cmd
}

type summaryOutput struct {
	Summary  domain.AnalyticsSummary       `json:"summary"`
	Regions  []domain.RegionStat           `json:"regions"`
	Diseases []domain.DiseaseRiskBreakdown `json:"diseases"`
	Skipped  int                           `json:"skipped"`
}

func (c *cli) summarizeCmd() *cobra.Command {
	var (
		f      service.Filter
		sortBy string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "summarize <assessments.json>",
		Short: "Aggregate an exported list of assessments",
		Long: `Reads a JSON array of assessments and prints the analytics summary,
the regional breakdown and the per-disease breakdown. Stored scores are
never recomputed. A record without a valid risk level takes the level of
its riskScore, or counts as unknown when it has none. Records with an
unknown disease are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, err := service.ParseRegionSort(sortBy)
			if err != nil {
				return err
			}

			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var records []domain.Assessment
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("input must be a JSON array of assessments: %w", err)
			}
			var scores []struct {
				RiskScore *int `json:"riskScore"`
			}
			if err := json.Unmarshal(data, &scores); err != nil {
				return fmt.Errorf("input must be a JSON array of assessments: %w", err)
			}

			kept := make([]domain.Assessment, 0, len(records))
			skipped := 0
			for i, a := range records {
				if !a.DiseaseType.IsValid() {
					skipped++
					continue
				}
				if !a.RiskLevel.IsValid() && scores[i].RiskScore != nil {
					a.RiskLevel = domain.ClassifyScore(a.RiskScore)
				}
				kept = append(kept, a)
			}
			filtered := f.Apply(kept)

			return c.print(cmd.OutOrStdout(), summaryOutput{
				Summary:  service.Summarize(filtered),
				Regions:  service.RegionalBreakdown(filtered, by, limit),
				Diseases: service.DiseaseBreakdown(filtered),
				Skipped:  skipped,
			})
		},
	}

	cmd.Flags().StringVar(&f.AgeGroup, "age-group", "", "18-30, 31-45, 46-60 or 60+")
	cmd.Flags().StringVar(&f.Gender, "gender", "", "gender filter")
	cmd.Flags().StringVar(&f.Region, "region", "", "region filter")
	cmd.Flags().StringVar(&f.RiskLevel, "risk-level", "", "low, moderate or high")
	cmd.Flags().StringVar(&f.DiseaseType, "disease", "", "disease filter")
	cmd.Flags().StringVar(&sortBy, "sort-by", "count", "regional ordering: count, risk or high-risk")
	cmd.Flags().IntVar(&limit, "limit", service.DefaultRegionLimit, "number of regions")
	return cmd
}
