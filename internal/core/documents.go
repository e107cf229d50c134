package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lexora.io/legal-assistant/internal/ingest"
	"lexora.io/legal-assistant/internal/metrics"
	"lexora.io/legal-assistant/internal/store"
	"lexora.io/legal-assistant/internal/vectorstore"
)

const maxFileNameLength = 255

// DocumentService owns the write path into the chunk store: ingestion,
// deletion and orphan cleanup. The relational row is always written after
// the chunks and removed after them.
type DocumentService struct {
	docs     DocumentStore
	chunks   vectorstore.ChunkStore
	reader   ingest.PageReader
	splitter Splitter
	now      func() time.Time
}

func NewDocumentService(docs DocumentStore, chunks vectorstore.ChunkStore, reader ingest.PageReader, splitter Splitter) *DocumentService {
	return &DocumentService{
		docs:     docs,
		chunks:   chunks,
		reader:   reader,
		splitter: splitter,
		now:      time.Now,
	}
}

func validateFileName(fileName string) error {
	switch {
	case fileName == "":
		return errors.New("file name is required")
	case len(fileName) > maxFileNameLength:
		return fmt.Errorf("file name exceeds %d characters", maxFileNameLength)
	case !strings.EqualFold(filepath.Ext(fileName), ".pdf"):
		return errors.New("only PDF files are allowed")
	}
	return nil
}

// Ingest indexes a PDF under fileName. A fileName that is already indexed is
// rejected before the payload is parsed.
func (s *DocumentService) Ingest(ctx context.Context, data []byte, fileName string) (doc *store.DocumentIndex, err error) {
	const op = "ingest"
	defer func() { metrics.DocumentOperations.WithLabelValues(op, metrics.Outcome(err)).Inc() }()

	fileName = strings.TrimSpace(fileName)
	if err := validateFileName(fileName); err != nil {
		return nil, validation(op, err.Error(), nil)
	}

	exists, err := s.docs.DocumentExists(ctx, fileName)
	if err != nil {
		return nil, fmt.Errorf("%s: check document %s: %w", op, fileName, err)
	}
	if exists {
		log.Info().Str("file_name", fileName).Msg("PDF already indexed, rejecting")
		return nil, conflict(op, "PDF already exists with filename: "+fileName, nil)
	}

	pages, err := s.reader.ReadPages(data)
	if err != nil {
		return nil, validation(op, "unreadable PDF payload", err)
	}
	pieces := s.splitter.SplitPages(pages)
	if len(pieces) == 0 {
		return nil, validation(op, "document produced no text chunks", nil)
	}

	chunks := make([]vectorstore.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = vectorstore.Chunk{
			Text:     p.Text,
			Metadata: vectorstore.Metadata{FileName: fileName, Page: p.Page},
		}
	}

	ids, err := s.chunks.Upsert(ctx, chunks)
	if err != nil {
		log.Error().Err(err).Str("file_name", fileName).Int("chunks", len(chunks)).Msg("chunk store write failed")
		return nil, upstream(op, "Error while loading PDF file into vector store", err)
	}
	metrics.IngestedChunks.Add(float64(len(ids)))

	doc = &store.DocumentIndex{
		FileName:   fileName,
		UploadDate: s.now().UTC(),
		ChunkIDs:   ids,
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		rbErr := s.RollbackChunks(ctx, ids)
		if rbErr != nil {
			log.Error().Err(rbErr).Str("file_name", fileName).Strs("chunk_ids", ids).
				Msg("compensation failed, chunks are orphaned until reconciled")
		}
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict(op, "PDF already exists with filename: "+fileName, errors.Join(err, rbErr))
		}
		return nil, fmt.Errorf("%s: record document %s: %w", op, fileName, errors.Join(err, rbErr))
	}

	log.Info().Str("file_name", fileName).Int("pages", len(pages)).Int("chunks", len(ids)).Msg("document indexed")
	return doc, nil
}

// RollbackChunks is the compensating step for a chunk write whose metadata
// row could not be recorded. It runs even if ctx has been cancelled.
func (s *DocumentService) RollbackChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.chunks.Delete(context.WithoutCancel(ctx), ids); err != nil {
		return upstream("rollback", "could not remove chunks of a failed ingestion", err)
	}
	log.Warn().Int("chunks", len(ids)).Msg("rolled back chunks of failed ingestion")
	return nil
}

// Delete removes the chunks first and the metadata row second.
func (s *DocumentService) Delete(ctx context.Context, fileName string) (err error) {
	const op = "delete"
	defer func() { metrics.DocumentOperations.WithLabelValues(op, metrics.Outcome(err)).Inc() }()

	doc, err := s.docs.GetDocument(ctx, fileName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(op, "No document found with filename: "+fileName, err)
		}
		return fmt.Errorf("%s: load document %s: %w", op, fileName, err)
	}

	if err := s.chunks.Delete(ctx, doc.ChunkIDs); err != nil {
		log.Error().Err(err).Str("file_name", fileName).Msg("chunk store delete failed, metadata kept")
		return upstream(op, "could not delete document chunks", err)
	}
	if err := s.docs.DeleteDocument(ctx, fileName); err != nil {
		log.Error().Err(err).Str("file_name", fileName).Msg("chunks deleted but metadata row remains")
		return upstream(op, "chunks deleted but document record could not be removed; retry the deletion", err)
	}

	log.Info().Str("file_name", fileName).Int("chunks", len(doc.ChunkIDs)).Msg("document deleted")
	return nil
}

// Reconcile deletes chunks tagged with fileName when no DocumentIndex row
// references them, which is what a crash between chunk write and metadata
// write leaves behind. Indexed documents are left untouched.
func (s *DocumentService) Reconcile(ctx context.Context, fileName string) (removed int, err error) {
	const op = "reconcile"
	defer func() { metrics.DocumentOperations.WithLabelValues(op, metrics.Outcome(err)).Inc() }()

	exists, err := s.docs.DocumentExists(ctx, fileName)
	if err != nil {
		return 0, fmt.Errorf("%s: check document %s: %w", op, fileName, err)
	}
	if exists {
		return 0, nil
	}

	ids, err := s.chunks.IDsByFileName(ctx, fileName)
	if err != nil {
		return 0, upstream(op, "could not list chunks", err)
	}
	if err := s.chunks.Delete(ctx, ids); err != nil {
		return 0, upstream(op, "could not delete orphaned chunks", err)
	}
	if len(ids) > 0 {
		log.Warn().Str("file_name", fileName).Int("chunks", len(ids)).Msg("removed orphaned chunks")
	}
	return len(ids), nil
}

func (s *DocumentService) List(ctx context.Context) ([]store.DocumentInfo, error) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}
