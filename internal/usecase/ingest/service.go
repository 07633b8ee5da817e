// Package ingest turns therapy documents into embedded, indexed chunks.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/domain/chunk"
)

// DefaultBatchSize is the number of chunks embedded per provider call.
const DefaultBatchSize = 8

// pageBreak separates pages in exported plain text.
const pageBreak = "\f"

var supportedExt = map[string]bool{".txt": true, ".md": true, ".markdown": true}

// Report summarizes an indexing run.
type Report struct {
	Files  int
	Chunks int
	Tokens int
}

// Service indexes documents.
type Service struct {
	store     ChunkStore
	embed     BatchEmbedder
	chunker   Chunker
	batchSize int
	newID     func() string
	logger    *zap.Logger
}

// New creates an ingest service. batchSize <= 0 uses DefaultBatchSize.
func New(store ChunkStore, embed BatchEmbedder, chunker Chunker, batchSize int, logger *zap.Logger) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		embed:     embed,
		chunker:   chunker,
		batchSize: batchSize,
		newID:     uuid.NewString,
		logger:    logger,
	}
}

// IndexFS indexes every text or Markdown file under dir in fsys, in lexical order.
func (s *Service) IndexFS(ctx context.Context, fsys fs.FS, dir string) (Report, error) {
	var files []string
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && supportedExt[strings.ToLower(path.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)

	if len(files) == 0 {
		s.logger.Warn("no_documents_found", zap.String("path", dir))
		return Report{}, nil
	}
	s.logger.Info("documents_found", zap.Int("count", len(files)))

	var total Report
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return total, fmt.Errorf("read %s: %w", f, err)
		}
		r, err := s.IndexDocument(ctx, path.Base(f), string(data))
		if err != nil {
			return total, err
		}
		total.Files++
		total.Chunks += r.Chunks
		total.Tokens += r.Tokens
	}

	s.logger.Info("indexing_complete",
		zap.Int("files", total.Files),
		zap.Int("chunks", total.Chunks),
	)
	return total, nil
}

// IndexDocument chunks, embeds and stores one document. Form feeds mark page breaks.
func (s *Service) IndexDocument(ctx context.Context, name, text string) (Report, error) {
	topic := TopicFromFilename(name)
	docType := DocumentTypeFromFilename(name)
	s.logger.Info("processing_document",
		zap.String("file", name),
		zap.String("topic", topic),
		zap.String("document_type", docType),
	)

	var chunks []chunk.Chunk
	for i, page := range strings.Split(text, pageBreak) {
		for _, content := range s.chunker.Split(page) {
			c, err := chunk.New(s.newID(), content, chunk.Metadata{
				SourceFile:   name,
				ChunkIndex:   len(chunks),
				PageNumber:   i + 1,
				Topic:        topic,
				DocumentType: docType,
				ChunkLength:  ApproxTokens(content),
			})
			if err != nil {
				return Report{}, fmt.Errorf("build chunk: %w", err)
			}
			chunks = append(chunks, c)
		}
	}

	report := Report{Files: 1}
	for start := 0; start < len(chunks); start += s.batchSize {
		batch := chunks[start:min(start+s.batchSize, len(chunks))]
		tokens, err := s.indexBatch(ctx, batch)
		if err != nil {
			return report, fmt.Errorf("index %s: %w", name, err)
		}
		report.Chunks += len(batch)
		report.Tokens += tokens
		s.logger.Info("batch_inserted",
			zap.String("file", name),
			zap.Int("batch_size", len(batch)),
			zap.Int("total", report.Chunks),
		)
	}

	s.logger.Info("document_indexed", zap.String("file", name), zap.Int("total_chunks", report.Chunks))
	return report, nil
}

func (s *Service) indexBatch(ctx context.Context, batch []chunk.Chunk) (int, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Content()
	}

	res, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}
	if len(res.Embeddings) != len(batch) {
		return 0, fmt.Errorf("embed batch: got %d vectors for %d chunks: %w",
			len(res.Embeddings), len(batch), domain.ErrEmbeddingProviderError)
	}

	embedded := make([]chunk.Chunk, len(batch))
	for i := range batch {
		embedded[i] = batch[i].WithVector(res.Embeddings[i])
	}
	if err := s.store.Insert(ctx, embedded); err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}
	return res.TotalTokens, nil
}

// Clear removes every indexed chunk and reports how many were there.
func (s *Service) Clear(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.store.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clear chunks: %w", err)
	}
	s.logger.Info("index_cleared", zap.Int("deleted_count", n))
	return n, nil
}
