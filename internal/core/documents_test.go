package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexora.io/legal-assistant/internal/ingest"
	"lexora.io/legal-assistant/internal/vectorstore"
)

var leavePolicy = []ingest.Page{
	{Number: 1, Text: "The notice period for resignation is thirty days."},
	{Number: 2, Text: "Annual leave accrues at two days per month."},
}

func TestIngest_IndexesChunksAndMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := f.documents(leavePolicy...)
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	docs.now = func() time.Time { return fixed }

	doc, err := docs.Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	require.NoError(t, err)
	assert.Equal(t, "leave-policy.pdf", doc.FileName)
	assert.Equal(t, fixed, doc.UploadDate)
	require.Len(t, doc.ChunkIDs, 2)

	stored, err := f.store.GetDocument(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.ElementsMatch(t, doc.ChunkIDs, stored.ChunkIDs)

	ids, err := f.chunks.IDsByFileName(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.ElementsMatch(t, doc.ChunkIDs, ids)

	list, err := docs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "leave-policy.pdf", list[0].FileName)
}

func TestIngest_DuplicateIsConflictAndLeavesChunksAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := f.documents(leavePolicy...)

	first, err := docs.Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	require.NoError(t, err)
	callsBefore := f.embedder.Calls.Load()

	_, err = docs.Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "PDF already exists with filename: leave-policy.pdf", MessageOf(err))
	assert.Equal(t, callsBefore, f.embedder.Calls.Load(), "duplicate must not embed")

	ids, err := f.chunks.IDsByFileName(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.ElementsMatch(t, first.ChunkIDs, ids)
}

func TestIngest_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		fileName string
		reader   ingest.PageReader
	}{
		{"empty name", "", fakeReader{pages: leavePolicy}},
		{"not a pdf name", "policy.docx", fakeReader{pages: leavePolicy}},
		{"unreadable payload", "broken.pdf", fakeReader{err: ingest.ErrInvalidPDF}},
		{"no text", "scanned.pdf", fakeReader{pages: nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := NewDocumentService(f.store, f.chunks, tt.reader, pageSplitter{})
			_, err := docs.Ingest(ctx, []byte("%PDF-1.7"), tt.fileName)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	list, err := f.store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestIngest_ChunkStoreFailureIsUpstream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := NewDocumentService(f.store, failingChunks{ChunkStore: f.chunks, upsertErr: errBoom},
		fakeReader{pages: leavePolicy}, pageSplitter{})

	_, err := docs.Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, errBoom)

	exists, err := f.store.DocumentExists(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIngest_MetadataFailureRollsBackChunks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := NewDocumentService(failingDocs{DocumentStore: f.store, createErr: errBoom}, f.chunks,
		fakeReader{pages: leavePolicy}, pageSplitter{})

	_, err := docs.Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	ids, err := f.chunks.IDsByFileName(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.Empty(t, ids, "chunks of a failed ingestion must be compensated")
}

func TestRollbackChunks_RunsAfterCancellation(t *testing.T) {
	f := newFixture(t)
	ids, err := f.chunks.Upsert(context.Background(), []vectorstore.Chunk{
		{Text: "notice", Metadata: vectorstore.Metadata{FileName: "a.pdf", Page: 1}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	docs := f.documents()
	require.NoError(t, docs.RollbackChunks(ctx, ids))

	left, err := f.chunks.IDsByFileName(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDelete_RemovesChunksThenMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := f.documents(leavePolicy...)

	_, err := docs.Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	require.NoError(t, err)
	before, err := f.retrieval.Retrieve(ctx, "notice resignation")
	require.NoError(t, err)
	assert.Contains(t, before, "thirty days")

	require.NoError(t, docs.Delete(ctx, "leave-policy.pdf"))

	after, err := f.retrieval.Retrieve(ctx, "notice resignation")
	require.NoError(t, err)
	assert.Empty(t, after)

	exists, err := f.store.DocumentExists(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
	ids, err := f.chunks.IDsByFileName(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.Empty(t, ids)

	// The same name can be ingested again once deleted.
	_, err = docs.Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	assert.NoError(t, err)
}

func TestDelete_UnknownIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := f.documents(leavePolicy...)
	_, err := docs.Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	require.NoError(t, err)

	err = docs.Delete(ctx, "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "No document found with filename: missing.pdf", MessageOf(err))

	ids, err := f.chunks.IDsByFileName(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestDelete_ChunkFailureKeepsMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.documents(leavePolicy...).Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	require.NoError(t, err)

	docs := NewDocumentService(f.store, failingChunks{ChunkStore: f.chunks, deleteErr: errBoom}, fakeReader{}, pageSplitter{})
	err = docs.Delete(ctx, "leave-policy.pdf")
	assert.ErrorIs(t, err, ErrUpstream)

	exists, err := f.store.DocumentExists(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDelete_MetadataFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.documents(leavePolicy...).Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	require.NoError(t, err)

	docs := NewDocumentService(failingDocs{DocumentStore: f.store, deleteErr: errBoom}, f.chunks, fakeReader{}, pageSplitter{})
	err = docs.Delete(ctx, "leave-policy.pdf")
	assert.ErrorIs(t, err, ErrUpstream)

	// Retrying against a healthy store finishes the job; chunk deletes are idempotent.
	require.NoError(t, f.documents().Delete(ctx, "leave-policy.pdf"))
	exists, err := f.store.DocumentExists(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReconcile_RemovesOnlyOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := f.documents(leavePolicy...)

	_, err := docs.Ingest(ctx, []byte("%PDF-1.7"), "leave-policy.pdf")
	require.NoError(t, err)
	_, err = f.chunks.Upsert(ctx, []vectorstore.Chunk{
		{Text: "court appeal", Metadata: vectorstore.Metadata{FileName: "orphan.pdf", Page: 1}},
		{Text: "contract", Metadata: vectorstore.Metadata{FileName: "orphan.pdf", Page: 2}},
	})
	require.NoError(t, err)

	removed, err := docs.Reconcile(ctx, "orphan.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = docs.Reconcile(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.Zero(t, removed)
	ids, err := f.chunks.IDsByFileName(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
