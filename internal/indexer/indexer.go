// Package indexer walks a repository, builds a scope graph and token
// chunks for each supported source file, and feeds the results into the
// lexical and vector indexes. It generalizes the teacher's
// indexer.Indexer pipeline (scan -> chunk -> embed -> upsert) onto the
// scopegraph/chunk/lexical/vector packages.
package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jamaly87/codesearch/internal/cache"
	"github.com/jamaly87/codesearch/internal/chunk"
	"github.com/jamaly87/codesearch/internal/lexical"
	"github.com/jamaly87/codesearch/internal/models"
	"github.com/jamaly87/codesearch/internal/scopegraph"
	"github.com/jamaly87/codesearch/internal/vector"
	"github.com/jamaly87/codesearch/pkg/config"
	"github.com/jamaly87/codesearch/pkg/idgen"
)

// Indexer orchestrates the code indexing pipeline for a repository.
type Indexer struct {
	cfg         *config.Config
	scanner     *Scanner
	builder     *scopegraph.Builder
	chunker     *chunk.Chunker
	hashManager *cache.FileHashManager
	lexicalIdx  *lexical.Index
	embedder    vector.Embedder
	vectors     *vector.Store
	log         zerolog.Logger

	jobs    map[string]*models.IndexJob
	jobsMux sync.RWMutex
}

// New builds an Indexer wired to the given lexical index, embedder and
// vector store. The latter three are shared with the search and agent
// layers so a single index serves every read path.
func New(cfg *config.Config, lexicalIdx *lexical.Index, embedder vector.Embedder, vectors *vector.Store, logger zerolog.Logger) (*Indexer, error) {
	hashManager, err := cache.NewFileHashManager(cfg.Cache.Directory)
	if err != nil {
		return nil, fmt.Errorf("create hash manager: %w", err)
	}
	chunker, err := chunk.New(cfg.Chunking.TargetTokens, cfg.Chunking.MaxTokens, cfg.Chunking.OverlapLines)
	if err != nil {
		return nil, fmt.Errorf("create chunker: %w", err)
	}

	return &Indexer{
		cfg:         cfg,
		scanner:     NewScanner(&cfg.Indexing, cfg.Ignore.Patterns),
		builder:     scopegraph.NewBuilder(),
		chunker:     chunker,
		hashManager: hashManager,
		lexicalIdx:  lexicalIdx,
		embedder:    embedder,
		vectors:     vectors,
		log:         logger.With().Str("component", "indexer").Logger(),
		jobs:        make(map[string]*models.IndexJob),
	}, nil
}

// Index indexes repoPath under a tracked job. With Indexing.Background set
// the run continues in a goroutine and the job is returned at once;
// otherwise Index returns after the run has finished.
func (idx *Indexer) Index(ctx context.Context, repoName, repoPath string, forceReindex bool) (*models.IndexJob, error) {
	job := &models.IndexJob{
		ID:        fmt.Sprintf("job-%d", time.Now().UnixNano()),
		RepoPath:  repoPath,
		Status:    models.IndexStatusRunning,
		StartTime: time.Now(),
	}

	idx.jobsMux.Lock()
	idx.jobs[job.ID] = job
	idx.jobsMux.Unlock()

	if idx.cfg.Indexing.Background {
		go idx.run(ctx, job, repoName, forceReindex)
	} else {
		idx.run(ctx, job, repoName, forceReindex)
	}
	return job, nil
}

func (idx *Indexer) run(ctx context.Context, job *models.IndexJob, repoName string, forceReindex bool) {
	defer func() { job.EndTime = time.Now() }()
	jobLog := idx.log.With().Str("job_id", job.ID).Str("repo", repoName).Logger()
	jobLog.Info().Str("path", job.RepoPath).Msg("starting index run")

	if !forceReindex && idx.cfg.Indexing.Incremental {
		if err := idx.hashManager.Load(job.RepoPath); err != nil {
			jobLog.Warn().Err(err).Msg("failed to load hash cache")
		}
	}

	scanResult, err := idx.scanner.Scan(job.RepoPath)
	if err != nil {
		idx.fail(job, &jobLog, fmt.Sprintf("scan failed: %v", err))
		return
	}
	job.FilesTotal = len(scanResult.Files)
	jobLog.Info().Int("files", job.FilesTotal).Msg("scan complete")

	docs, spans := idx.processFiles(ctx, job, &jobLog, repoName, scanResult.Files, forceReindex)
	job.ChunksTotal = len(spans)

	for _, doc := range docs {
		idx.lexicalIdx.Add(doc)
	}

	if len(spans) > 0 {
		if err := idx.embedAndUpsert(ctx, repoName, spans); err != nil {
			idx.fail(job, &jobLog, fmt.Sprintf("embedding/storage failed: %v. cache was not updated, these files retry next run", err))
			return
		}
	}

	if idx.cfg.Indexing.Incremental {
		if err := idx.hashManager.Save(); err != nil {
			idx.fail(job, &jobLog, fmt.Sprintf("cache save failed: %v, chunks are stored but cache is stale", err))
			return
		}
	}

	job.Status = models.IndexStatusCompleted
	job.EndTime = time.Now()
	jobLog.Info().Dur("elapsed", time.Since(job.StartTime)).Int("chunks", job.ChunksTotal).Msg("index run complete")
}

func (idx *Indexer) fail(job *models.IndexJob, log *zerolog.Logger, msg string) {
	job.Status = models.IndexStatusFailed
	job.Error = msg
	log.Error().Msg(msg)
}

type fileSpan struct {
	repoName     string
	relativePath string
	lang         string
	text         string
	point        vector.Point
}

// processFiles walks files with a bounded worker pool, building a
// ContentDocument and chunk spans for each one.
func (idx *Indexer) processFiles(ctx context.Context, job *models.IndexJob, jobLog *zerolog.Logger, repoName string, files []string, forceReindex bool) ([]models.ContentDocument, []fileSpan) {
	numWorkers := idx.cfg.Indexing.ParallelWorkers
	if numWorkers <= 0 {
		numWorkers = 4
	}

	fileChan := make(chan string, len(files))
	for _, f := range files {
		fileChan <- f
	}
	close(fileChan)

	type result struct {
		doc   *models.ContentDocument
		spans []fileSpan
	}
	resultChan := make(chan result, numWorkers*2)

	var processed int64
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fullPath := range fileChan {
				func() {
					defer func() {
						if r := recover(); r != nil {
							jobLog.Error().Interface("panic", r).Str("file", fullPath).Msg("recovered from panic while indexing file")
						}
						n := atomic.AddInt64(&processed, 1)
						job.FilesIndexed = int(n)
						job.Progress = float64(n) / float64(job.FilesTotal)
					}()

					if !forceReindex && idx.cfg.Indexing.Incremental {
						needsReindex, err := idx.hashManager.NeedsReindex(fullPath)
						if err == nil && !needsReindex {
							return
						}
					}

					doc, spans, err := idx.processFile(repoName, job.RepoPath, fullPath)
					if err != nil {
						jobLog.Warn().Err(err).Str("file", fullPath).Msg("failed to process file")
						return
					}

					if idx.cfg.Indexing.Incremental {
						_ = idx.hashManager.Update(fullPath, len(spans))
					}
					resultChan <- result{doc: doc, spans: spans}
				}()
			}
		}()
	}

	done := make(chan struct{})
	var docs []models.ContentDocument
	var spans []fileSpan
	go func() {
		for r := range resultChan {
			if r.doc != nil {
				docs = append(docs, *r.doc)
			}
			spans = append(spans, r.spans...)
		}
		close(done)
	}()

	wg.Wait()
	close(resultChan)
	<-done

	return docs, spans
}

func (idx *Indexer) processFile(repoName, repoPath, fullPath string) (*models.ContentDocument, []fileSpan, error) {
	content, lang, err := readSourceFile(fullPath)
	if err != nil {
		return nil, nil, err
	}
	relPath, err := filepath.Rel(repoPath, fullPath)
	if err != nil {
		relPath = fullPath
	}

	var symbols []models.SymbolLocation
	if idx.builder.Supports(lang) {
		if g, err := idx.builder.Build(lang, content); err == nil {
			for _, n := range g.Defs() {
				symbols = append(symbols, models.SymbolLocation{
					Kind:      "def." + n.Name,
					StartByte: n.Range.Start.Byte,
					EndByte:   n.Range.End.Byte,
					StartLine: n.Range.Start.Line,
					EndLine:   n.Range.End.Line,
				})
			}
		}
	}

	doc := models.ContentDocument{
		RepoRef:      models.RepoRef{Backend: "local", Name: repoName},
		RepoName:     repoName,
		RelativePath: relPath,
		Content:      content,
		Lang:         lang,
		UniqueHash:   idgen.UniqueHash(repoName, idgen.ContentHash([]byte(content))),
		IndexedAt:    time.Now(),
		SymbolLocations: symbols,
	}

	textSpans := idx.chunker.Chunk(repoName, relPath, content, lang)

	spans := make([]fileSpan, len(textSpans))
	for i, sp := range textSpans {
		spans[i] = fileSpan{
			repoName:     repoName,
			relativePath: relPath,
			lang:         lang,
			text:         sp.Text,
			point: vector.Point{
				DocID:        idgen.PointID(repoName, relPath, sp.Range.Start.Byte, sp.Range.End.Byte),
				RepoName:     repoName,
				RelativePath: relPath,
				Lang:         lang,
				StartLine:    sp.Range.Start.Line,
				EndLine:      sp.Range.End.Line,
				StartByte:    sp.Range.Start.Byte,
				EndByte:      sp.Range.End.Byte,
				Snippet:      sp.Text,
			},
		}
	}
	return &doc, spans, nil
}

// embedAndUpsert batches spans through the embedder and writes the
// resulting points to the vector store.
func (idx *Indexer) embedAndUpsert(ctx context.Context, repoName string, spans []fileSpan) error {
	batchSize := idx.cfg.Indexing.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	for start := 0; start < len(spans); start += batchSize {
		end := start + batchSize
		if end > len(spans) {
			end = len(spans)
		}
		batch := spans[start:end]

		texts := make([]string, len(batch))
		for i, sp := range batch {
			texts[i] = sp.text
		}
		vecs, err := idx.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}

		points := make([]vector.Point, len(batch))
		for i, sp := range batch {
			p := sp.point
			p.Vector = vecs[i]
			points[i] = p
		}
		if err := idx.vectors.Upsert(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// GetJob returns a tracked job by ID.
func (idx *Indexer) GetJob(jobID string) (*models.IndexJob, error) {
	idx.jobsMux.RLock()
	defer idx.jobsMux.RUnlock()
	job, ok := idx.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// GetRepoIndex reports index status for a repository, preferring a
// running job's live progress and otherwise querying the vector store.
func (idx *Indexer) GetRepoIndex(ctx context.Context, repoName, repoPath string) (*models.RepoIndex, error) {
	idx.jobsMux.RLock()
	for _, job := range idx.jobs {
		if job.RepoPath == repoPath && job.Status == models.IndexStatusRunning {
			idx.jobsMux.RUnlock()
			return &models.RepoIndex{
				RepoPath:    repoPath,
				TotalFiles:  job.FilesIndexed,
				TotalChunks: job.ChunksTotal,
				Languages:   make(map[string]int),
				LastIndexed: job.StartTime,
				Status:      models.IndexStatusRunning,
			}, nil
		}
	}
	idx.jobsMux.RUnlock()

	return idx.vectors.Stats(ctx, repoName)
}

// ClearCache drops the on-disk file hash cache for a repository.
func (idx *Indexer) ClearCache(repoPath string) error {
	return idx.hashManager.Clear(repoPath)
}
