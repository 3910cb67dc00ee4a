package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/verdict/internal/models"
	"github.com/xhad/verdict/internal/types"
	"github.com/xhad/verdict/pkg/blob"
	cfgPkg "github.com/xhad/verdict/pkg/config"
	"github.com/xhad/verdict/pkg/fetch"
	"github.com/xhad/verdict/pkg/llm"
	"github.com/xhad/verdict/pkg/pipeline"
	"github.com/xhad/verdict/pkg/store"
	"github.com/xhad/verdict/server"
)

type app struct {
	config *cfgPkg.Config
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (a *app) newPipeline() *pipeline.Pipeline {
	return pipeline.NewWithConfig(pipeline.PipelineConfig{
		Anonymize:    a.config.AnonymizeEnabled(),
		AntiwordPath: a.config.Extract.AntiwordPath,
	})
}

func (a *app) openContainer(ctx context.Context, name string) (types.BlobStore, error) {
	s, err := blob.Open(a.config.Storage, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open container %s: %w", name, err)
	}
	if c, ok := s.(interface{ EnsureContainer(context.Context) error }); ok {
		if err := c.EnsureContainer(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (a *app) openStores(ctx context.Context) (pipeline.Stores, error) {
	var (
		stores pipeline.Stores
		err    error
	)
	if stores.Raw, err = a.openContainer(ctx, a.config.Storage.RawContainer); err != nil {
		return stores, err
	}
	if stores.Text, err = a.openContainer(ctx, a.config.Storage.TextContainer); err != nil {
		return stores, err
	}
	if stores.Corpus, err = a.openContainer(ctx, a.config.Storage.CorpusContainer); err != nil {
		return stores, err
	}
	return stores, nil
}

// openRecords returns nil stores when no database is configured.
func (a *app) openRecords(ctx context.Context) (types.RecordStore, types.Embedder, error) {
	if a.config.Database.URL == "" {
		return nil, nil, nil
	}
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   a.config.LLM.EmbedModel,
		BaseURL: a.config.LLM.BaseURL,
		Dim:     a.config.Database.VectorDim,
	})
	if err != nil {
		return nil, nil, err
	}
	records, err := store.NewWithConfig(ctx, store.RecordStoreConfig{
		ConnString: a.config.Database.URL,
		TableName:  a.config.Database.TableName,
		VectorDim:  a.config.Database.VectorDim,
		BatchSize:  a.config.Database.BatchSize,
	}, embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize record store: %w", err)
	}
	return records, embedder, nil
}

func (a *app) newRunner(ctx context.Context, records types.RecordStore, description string) (*pipeline.Runner, *progressbar.ProgressBar, error) {
	stores, err := a.openStores(ctx)
	if err != nil {
		return nil, nil, err
	}
	bar := getProgressBar(-1, description)
	r := pipeline.NewRunner(pipeline.RunnerConfig{
		Workers:        a.config.Pipeline.Workers,
		GoldBlobName:   a.config.Storage.GoldBlobName,
		CorpusBlobName: a.config.Storage.CorpusBlobName,
		OnProgress: func(string, error) {
			_ = bar.Add(1)
		},
	}, a.newPipeline(), stores, records)
	return r, bar, nil
}

func printStats(stage string, stats pipeline.Stats) {
	color.Green("\n✓ %s: %d seen, %d written, %d skipped\n", stage, stats.Seen, stats.Written, stats.SkippedTotal())
	reasons := make([]string, 0, len(stats.Skipped))
	for reason := range stats.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		color.Yellow("  %-20s %d\n", reason, stats.Skipped[reason])
	}
}

func (a *app) fetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	urlsFile := fs.String("urls", a.config.Fetch.URLsFile, "File with one URL per line")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	urls, err := fetch.LoadURLList(*urlsFile)
	if err != nil {
		return err
	}
	raw, err := a.openContainer(ctx, a.config.Storage.RawContainer)
	if err != nil {
		return err
	}

	color.Blue("\nFetching %d URLs into %s\n", len(urls), a.config.Storage.RawContainer)
	bar := getProgressBar(len(urls), "Downloading decisions...")
	f := fetch.NewWithConfig(fetch.FetcherConfig{
		RateLimit: a.config.Fetch.RateLimit,
		Timeout:   a.config.Fetch.Timeout,
		UserAgent: a.config.Fetch.UserAgent,
		OnProgress: func(fetch.Result) {
			_ = bar.Add(1)
		},
	}, raw)

	stats, err := f.Fetch(ctx, urls)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("fetch interrupted: %w", err)
	}
	color.Green("\n✓ fetch: %d seen, %d uploaded, %d cached, %d failed\n", stats.Seen, stats.Uploaded, stats.Cached, stats.Failed)
	return nil
}

func (a *app) extract(ctx context.Context) error {
	r, bar, err := a.newRunner(ctx, nil, "Extracting text...")
	if err != nil {
		return err
	}
	stats, err := r.RunExtract(ctx)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("extract stage failed: %w", err)
	}
	printStats("extract", stats)
	return nil
}

func (a *app) label(ctx context.Context) error {
	records, _, err := a.openRecords(ctx)
	if err != nil {
		return err
	}
	if records != nil {
		defer records.Close()
	}

	r, bar, err := a.newRunner(ctx, records, "Labeling decisions...")
	if err != nil {
		return err
	}
	stats, out, err := r.RunLabel(ctx)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("label stage failed: %w", err)
	}
	printStats("label", stats)

	counts := map[models.Label]int{}
	for _, rec := range out {
		counts[labelOf(rec)]++
	}
	color.Cyan("  positive %d, negative %d, abstain %d\n",
		counts[models.LabelPositive], counts[models.LabelNegative],
		counts[models.LabelAbstainSynonym]+counts[models.LabelAbstainNone])
	return nil
}

func labelOf(rec models.Record) models.Label {
	switch {
	case rec.GrossNegligence == 1:
		return models.LabelPositive
	case rec.NotGrossNegligence == 1:
		return models.LabelNegative
	case rec.AutoRule == models.RuleSynonymOnly:
		return models.LabelAbstainSynonym
	default:
		return models.LabelAbstainNone
	}
}

func (a *app) corpus(ctx context.Context) error {
	r, bar, err := a.newRunner(ctx, nil, "Building corpus...")
	if err != nil {
		return err
	}
	stats, err := r.RunCorpus(ctx)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("corpus stage failed: %w", err)
	}
	printStats("corpus", stats)
	return nil
}

type classifyOutput struct {
	Format         models.Format               `json:"format"`
	Classification models.ClassificationRecord `json:"classification"`
	Record         *models.Record              `json:"record,omitempty"`
}

func (a *app) classify(args []string) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	file := fs.String("file", "", "Local decision file (pdf, docx, odt, doc, html)")
	name := fs.String("name", "", "Decision file name for the record, e.g. osnovni-sud-u-beogradu-p-1234-2020.txt")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "classify: -file is required")
		return errUsage
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	rec, doc, err := a.newPipeline().Process(models.RawDocument{Name: filepath.Base(*file), Data: data})
	if err != nil {
		return fmt.Errorf("%s (%s): %w", *file, pipeline.Reason(err), err)
	}

	out := classifyOutput{Format: doc.Format, Classification: rec}
	if *name != "" {
		record, err := a.newPipeline().Label(*name, doc.Text)
		if err != nil {
			return err
		}
		out.Record = &record
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	query := fs.String("q", "", "Query text")
	k := fs.Int("k", store.DefaultSearchLimit, "Number of results (1-25)")
	court := fs.String("court", "", "Court name filter")
	upisnik := fs.String("upisnik", "", "Case register filter")
	from := fs.Int("from", 0, "Earliest year")
	to := fs.Int("to", 0, "Latest year")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if strings.TrimSpace(*query) == "" {
		fmt.Fprintln(os.Stderr, "search: -q is required")
		return errUsage
	}

	records, embedder, err := a.openRecords(ctx)
	if err != nil {
		return err
	}
	if records == nil {
		return errors.New("search needs database.url")
	}
	defer records.Close()

	spinner := getSpinner("Searching decisions...")
	emb, err := embedder.Embed(ctx, *query)
	if err != nil {
		_ = spinner.Finish()
		return err
	}
	results, err := records.Search(ctx, emb, types.SearchFilter{
		Court:      *court,
		Upisnik:    *upisnik,
		GodinaFrom: *from,
		GodinaTo:   *to,
	}, *k)
	_ = spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	if len(results) == 0 {
		color.Yellow("No matching decisions\n")
		return nil
	}
	for _, res := range results {
		rec := res.Record
		color.Cyan("%.3f  %s %s %d/%d  [%s]\n", res.Score, rec.Court, strings.ToUpper(rec.Upisnik), rec.Broj, rec.Godina, rec.AutoRule)
		fmt.Printf("       %s\n", truncate(rec.DecisionParagraph, 160))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func (a *app) serve(ctx context.Context) error {
	records, embedder, err := a.openRecords(ctx)
	if err != nil {
		return err
	}
	if records != nil {
		defer records.Close()
	}

	srv := server.New(server.Config{
		ListenAddr:     a.config.Server.ListenAddr,
		AllowedOrigins: a.config.Server.AllowedOrigins,
	}, a.newPipeline(), records, embedder)
	color.Blue("Serving on %s\n", a.config.Server.ListenAddr)
	return srv.Run(ctx)
}
