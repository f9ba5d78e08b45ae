// Package pipeline wires the knowledge build together: source loading,
// per-source fetching, normalization, chunking, and aggregation. The
// run is fully sequential; each source is independent and failures are
// soft.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/maharaniweddings/knowledgebuild/aggregate"
	"github.com/maharaniweddings/knowledgebuild/apify"
	"github.com/maharaniweddings/knowledgebuild/config"
	"github.com/maharaniweddings/knowledgebuild/firecrawl"
	"github.com/maharaniweddings/knowledgebuild/source"
	"github.com/maharaniweddings/knowledgebuild/source/chunker"
	"github.com/maharaniweddings/knowledgebuild/webfetch"
)

// maxFetchSize caps direct-fetch response bodies.
const maxFetchSize = 10 * 1024 * 1024 // 10MB

// Pipeline executes one knowledge build run.
type Pipeline struct {
	cfg       *config.Config
	scraper   *firecrawl.Client
	actors    *apify.Client
	fetcher   *webfetch.Fetcher
	extractor *webfetch.Extractor
	chunks    *chunker.Chunker
	logger    *slog.Logger
}

// Result reports what a run produced.
type Result struct {
	// OutputPath is where the knowledge file was written.
	OutputPath string

	// LinesWritten is the number of deduplicated lines in the output.
	LinesWritten int

	// WebSources and ActorSources count the configured sources of each
	// kind.
	WebSources   int
	ActorSources int

	// WebFailures and ActorFailures count sources skipped after all
	// fetch strategies failed. Failures never abort the run.
	WebFailures   int
	ActorFailures int
}

// webOutcome tags a web source's fetch result: text on success, a reason
// on soft failure. The aggregation loop skips failures uniformly.
type webOutcome struct {
	url  string
	text string
	err  error
}

// New constructs a pipeline from configuration. All fetchers are built
// once here and passed in; nothing reads process-wide mutable state
// afterwards.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	chunks, err := chunker.New(chunker.Config{Size: cfg.ChunkSize})
	if err != nil {
		return nil, fmt.Errorf("create chunker: %w", err)
	}

	extractor, err := webfetch.NewExtractor(webfetch.Mode(cfg.ExtractMode))
	if err != nil {
		return nil, fmt.Errorf("create extractor: %w", err)
	}

	creds := cfg.Credentials
	return &Pipeline{
		cfg: cfg,
		scraper: firecrawl.New(creds.FirecrawlBase, creds.FirecrawlAPIKey,
			firecrawl.WithTimeout(cfg.ScrapeTimeout),
			firecrawl.WithLogger(logger)),
		actors: apify.New(creds.ApifyBase, creds.ApifyToken,
			apify.WithTimeout(cfg.ActorTimeout),
			apify.WithLogger(logger)),
		fetcher: webfetch.NewFetcher(cfg.FetchTimeout, cfg.UserAgent, maxFetchSize,
			webfetch.WithLogger(logger)),
		extractor: extractor,
		chunks:    chunks,
		logger:    logger,
	}, nil
}

// Run executes the pipeline once: load sources, fetch each in order,
// chunk, deduplicate, and write the output file. Per-source failures are
// logged and skipped; only output-write failures are returned as errors.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logger := p.logger.With("run_id", uuid.NewString())

	sources := config.LoadSources(p.cfg.SourcesPath, logger)
	logger.Info("sources loaded",
		"web", len(sources.Web),
		"apify", len(sources.Apify))

	result := &Result{
		OutputPath:   p.cfg.OutputPath,
		WebSources:   len(sources.Web),
		ActorSources: len(sources.Apify),
	}

	var lines []string
	lines = append(lines, p.buildWebLines(ctx, logger, sources.Web, result)...)
	lines = append(lines, p.buildActorLines(ctx, logger, sources.Apify, result)...)

	final := aggregate.Lines(lines)
	n, err := aggregate.Write(p.cfg.OutputPath, final)
	if err != nil {
		return nil, err
	}
	result.LinesWritten = n

	logger.Info("knowledge file written",
		"path", p.cfg.OutputPath,
		"lines", n,
		"web_failures", result.WebFailures,
		"actor_failures", result.ActorFailures)

	return result, nil
}

// buildWebLines fetches every web source in order and chunks the text.
func (p *Pipeline) buildWebLines(ctx context.Context, logger *slog.Logger, urls []string, result *Result) []string {
	var lines []string

	for _, url := range urls {
		outcome := p.fetchWeb(ctx, logger, url)
		if outcome.err != nil {
			logger.Warn("web source failed, skipping", "url", url, "error", outcome.err)
			result.WebFailures++
			continue
		}
		lines = append(lines, p.chunkLines(source.FetchedRecord{
			Origin:   source.OriginWeb,
			SourceID: outcome.url,
			Text:     outcome.text,
		})...)
	}

	return lines
}

// fetchWeb tries the managed scrape service (scrape, then one-shot
// crawl), falling back to a direct fetch with HTML extraction. The
// managed endpoints are never contacted without a credential.
func (p *Pipeline) fetchWeb(ctx context.Context, logger *slog.Logger, url string) webOutcome {
	if p.scraper.Enabled() {
		if text, err := p.scraper.Scrape(ctx, url); err == nil {
			return webOutcome{url: url, text: text}
		} else {
			logger.Debug("managed scrape yielded nothing", "url", url, "error", err)
		}

		if text, err := p.scraper.CrawlOnce(ctx, url); err == nil {
			return webOutcome{url: url, text: text}
		} else {
			logger.Debug("one-shot crawl yielded nothing", "url", url, "error", err)
		}
	}

	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return webOutcome{url: url, err: err}
	}

	text, err := p.extractor.Extract(body, url)
	if err != nil {
		return webOutcome{url: url, err: err}
	}

	return webOutcome{url: url, text: text}
}

// buildActorLines runs every configured actor in order and chunks the
// per-record text. A missing credential skips the whole stage with one
// warning rather than failing per actor.
func (p *Pipeline) buildActorLines(ctx context.Context, logger *slog.Logger, actors []config.ActorConfig, result *Result) []string {
	if len(actors) == 0 {
		return nil
	}

	if !p.actors.Enabled() {
		logger.Warn("APIFY_TOKEN not set; skipping actor sources", "actors", len(actors))
		return nil
	}

	var lines []string
	for _, actor := range actors {
		if actor.Actor == "" {
			logger.Warn("actor descriptor missing actor id, skipping")
			continue
		}

		input := config.ResolveActorInput(actor, logger)
		items, err := p.actors.RunActorSync(ctx, actor.Actor, input)
		if err != nil {
			logger.Warn("actor run failed, skipping", "actor", actor.Actor, "error", err)
			result.ActorFailures++
			continue
		}

		for _, item := range items {
			text := apify.ExtractText(item)
			if text == "" {
				continue
			}
			lines = append(lines, p.chunkLines(source.FetchedRecord{
				Origin:   source.OriginApify,
				SourceID: apify.SourceID(item, actor.Actor),
				Text:     text,
			})...)
		}
	}

	return lines
}

// chunkLines normalizes a fetched record's text, splits it into fixed
// windows, and formats one knowledge line per chunk.
func (p *Pipeline) chunkLines(rec source.FetchedRecord) []string {
	cleaned := source.CleanText(rec.Text)
	if cleaned == "" {
		return nil
	}

	chunks := p.chunks.Split(cleaned)
	lines := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		line := source.KnowledgeLine{Origin: rec.Origin, SourceID: rec.SourceID, Chunk: chunk}
		lines = append(lines, line.Format())
	}
	return lines
}
