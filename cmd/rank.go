package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skill-ranker/internal/ai/gemini"
	"github.com/spigell/skill-ranker/internal/export"
	"github.com/spigell/skill-ranker/internal/filtering"
	"github.com/spigell/skill-ranker/internal/input"
	"github.com/spigell/skill-ranker/internal/logger"
	"github.com/spigell/skill-ranker/internal/matching"
	"github.com/spigell/skill-ranker/internal/render"
	"github.com/spigell/skill-ranker/internal/secrets"
	"github.com/spigell/skill-ranker/internal/skills"
)

const (
	PromptShowRanking     = "Show ranking"
	PromptShowFilters     = "Show filters"
	PromptExportWorkbook  = "Export to Excel"
	PromptDumpJSON        = "Dump results to JSON file"
	PromptAppendToExclude = "Append shown candidates to exclude file"
	PromptExit            = "Exit"

	geminiAPIKeyEnv = "GEMINI_API_KEY"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowRanking, PromptExportWorkbook, PromptDumpJSON, PromptShowFilters, PromptAppendToExclude, PromptExit},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank candidates against a job posting",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().String("job", "", "path to the job posting JSON file")
	rankCmd.Flags().String("candidates", "", "path to the candidates JSON file")
	rankCmd.Flags().String("weights", "", "path to a JSON file with weight overrides")
	rankCmd.Flags().Float64("fuzzy-threshold", 80, "minimum fuzzy ratio (0-100) for two skills to match")
	rankCmd.Flags().StringP("output", "o", "ranking.xlsx", "path of the Excel report")
	rankCmd.Flags().String("json-output", "ranking.json", "path of the JSON report")
	rankCmd.Flags().Bool("strict", false, "abort the whole run when a single candidate fails")
	rankCmd.Flags().BoolP("auto-approve", "y", false, "print the ranking and export it without asking")
	rankCmd.Flags().Duration("timeout", 10*time.Minute, "overall time limit for the ranking")
	rankCmd.Flags().StringP("exclude-file", "e", "", "file with candidate names to exclude. Default is unset.")

	rankCmd.MarkFlagRequired("job")
	rankCmd.MarkFlagRequired("candidates")

	viper.BindPFlag("ranking.fuzzy-threshold", rankCmd.Flags().Lookup("fuzzy-threshold"))
	viper.BindPFlag("filters.exclude-file", rankCmd.Flags().Lookup("exclude-file"))
}

// session is the state shared by the interactive actions.
type session struct {
	results     []matching.MatchResult
	jobTitle    string
	outputPath  string
	jsonPath    string
	excludeFile string
	steps       []filtering.Filter
}

// rank is the main command for the cli.
func rank(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig(viper.GetViper())
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the skill-ranker", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	flags := cmd.Flags()
	jobPath, _ := flags.GetString("job")
	candidatesPath, _ := flags.GetString("candidates")
	weightsPath, _ := flags.GetString("weights")
	timeout, _ := flags.GetDuration("timeout")
	strict, _ := flags.GetBool("strict")
	autoApprove, _ := flags.GetBool("auto-approve")

	job, candidates, overrides, err := loadInputs(jobPath, candidatesPath, weightsPath, &config.Ranking.Weights)
	if err != nil {
		logger.Fatal("loading inputs", zap.Error(err))
	}

	logger.Info("loaded inputs",
		zap.String("job", job.Title),
		zap.Int("candidates", len(candidates)),
	)

	if len(candidates) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates to rank"))
		return
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  config.AI.Gemini.APIKeyFile,
		Env:   geminiAPIKeyEnv,
		Value: config.AI.Gemini.APIKey,
	})
	if err != nil {
		logger.Fatal(
			"loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY environment variable or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	client, err := gemini.NewClient(ctx, apiKey, config.AI.Gemini.Config, logger)
	if err != nil {
		logger.Fatal("creating gemini client", zap.Error(err))
	}

	extractor, err := newExtractor(config, client, logger)
	if err != nil {
		logger.Fatal("creating skill extractor", zap.Error(err))
	}

	scorer := matching.NewScorer(extractor, gemini.NewEmbedder(client, logger), render.New(), logger)
	ranker := matching.NewRanker(scorer, logger,
		matching.WithConcurrency(config.Ranking.Concurrency),
		matching.WithAnalysis(config.Ranking.IncludeAnalysis),
	)

	rankCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var results []matching.MatchResult
	if strict {
		results, err = ranker.RankStrict(rankCtx, job, candidates, overrides, config.Ranking.FuzzyThreshold)
		if err != nil {
			logger.Fatal("ranking failed", zap.Error(err))
		}
	} else {
		results = ranker.Rank(rankCtx, job, candidates, overrides, config.Ranking.FuzzyThreshold)
	}

	if len(results) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates could be scored"))
		return
	}

	steps := filtering.Default()
	results, err = filtering.Run(ctx, config.Filters, filtering.Deps{Logger: logger}, steps, results)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if len(results) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates left after filters"))
		return
	}

	s := &session{
		results:     results,
		jobTitle:    job.Title,
		excludeFile: config.Filters.ExcludeFile,
		steps:       steps,
	}
	s.outputPath, _ = flags.GetString("output")
	s.jsonPath, _ = flags.GetString("json-output")

	out := cmd.OutOrStdout()

	if autoApprove {
		for _, action := range []string{PromptShowRanking, PromptExportWorkbook} {
			if err := handleAction(action, out, logger, s); err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		logger.Info("current list of candidates", zap.Int("count", len(s.results)))

		if err := handleAction(action, out, logger, s); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, out io.Writer, logger *zap.Logger, s *session) error {
	switch action {
	case PromptShowRanking:
		return printRanking(out, s.results)
	case PromptShowFilters:
		pretty, _ := json.MarshalIndent(filtering.Describe(s.steps), "", "  ")
		logger.Info(string(pretty), zap.Int("candidates count", len(s.results)))
		return nil
	case PromptExportWorkbook:
		path, err := export.Workbook(s.results, s.jobTitle, s.outputPath)
		if err != nil {
			return fmt.Errorf("export workbook: %w", err)
		}
		logger.Info("exported ranking to workbook", zap.String("filename", path))
		return nil
	case PromptDumpJSON:
		if err := export.SaveJSON(s.jsonPath, s.results, s.jobTitle); err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", s.jsonPath))
		return nil
	case PromptAppendToExclude:
		if s.excludeFile == "" {
			logger.Warn("exclude file is not configured", zap.String("hint", "set filters.exclude-file or pass --exclude-file"))
			return nil
		}
		names := make([]string, 0, len(s.results))
		for _, r := range s.results {
			names = append(names, r.CandidateName)
		}
		added, err := filtering.AppendExcluded(s.excludeFile, names)
		if err != nil {
			return err
		}
		logger.Info("appended to exclude file", zap.String("filename", s.excludeFile), zap.Int("added", added))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// printRanking writes a plain text table of the results, best first.
func printRanking(out io.Writer, results []matching.MatchResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCANDIDATE\tSCORE\tSKILLS\tSIMILARITY\tMISSING")
	for i, r := range results {
		missing := strings.Join(r.MissingSkills, ", ")
		if missing == "" {
			missing = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%.3f\t%.3f\t%.3f\t%s\n",
			i+1,
			r.CandidateName,
			r.Score,
			r.ScoreBreakdown.SkillsScore,
			r.ScoreBreakdown.OverallSimilarity,
			missing,
		)
	}
	return w.Flush()
}

func loadInputs(jobPath, candidatesPath, weightsPath string, base *matching.WeightOverrides) (*matching.Job, []*matching.Candidate, *matching.WeightOverrides, error) {
	job, err := input.LoadJob(jobPath)
	if err != nil {
		return nil, nil, nil, err
	}

	candidates, err := input.LoadCandidates(candidatesPath)
	if err != nil {
		return nil, nil, nil, err
	}

	var fromFile *matching.WeightOverrides
	if weightsPath != "" {
		fromFile, err = input.LoadWeights(weightsPath)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return job, candidates, mergeOverrides(base, fromFile), nil
}

// mergeOverrides layers top over base key by key. The result shares no maps
// with its inputs.
func mergeOverrides(base, top *matching.WeightOverrides) *matching.WeightOverrides {
	merged := &matching.WeightOverrides{}
	for _, o := range []*matching.WeightOverrides{base, top} {
		if o == nil {
			continue
		}
		merged.FinalScoreWeights = mergeWeightMap(merged.FinalScoreWeights, o.FinalScoreWeights)
		merged.SkillScoreWeights = mergeWeightMap(merged.SkillScoreWeights, o.SkillScoreWeights)
	}
	return merged
}

func mergeWeightMap(dst, src map[string]float64) map[string]float64 {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]float64, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// newExtractor builds the skill extractor selected by extractor.provider.
func newExtractor(config *Config, client *gemini.Client, log *zap.Logger) (matching.SkillExtractor, error) {
	switch config.Extractor.Provider {
	case providerGemini:
		return gemini.NewSkillExtractor(client, log, config.AI.Gemini.MaxLogLength), nil
	case providerDictionary, "":
		return newDictionary(config.Extractor.VocabularyFile, log)
	default:
		return nil, fmt.Errorf("unsupported extractor provider: %s", config.Extractor.Provider)
	}
}

func newDictionary(vocabularyFile string, log *zap.Logger) (*skills.Dictionary, error) {
	var entries []string
	if vocabularyFile != "" {
		var err error
		entries, err = skills.LoadVocabulary(vocabularyFile)
		if err != nil {
			return nil, fmt.Errorf("loading vocabulary: %w", err)
		}
	}

	dict := skills.NewDictionary(entries...)
	log.Debug("skill dictionary ready",
		zap.Int("aliases", dict.Len()),
		zap.Int("vocabulary_entries", len(entries)),
	)
	return dict, nil
}
