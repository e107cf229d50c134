package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lexora.io/legal-assistant/internal/core"
	"lexora.io/legal-assistant/internal/store"
)

const DefaultMaxUploadBytes = 20 << 20

type APIHandler struct {
	chat           *core.ChatService
	documents      *core.DocumentService
	retrieval      *core.RetrievalService
	users          core.UserStore
	jwtSecret      string
	maxUploadBytes int64
}

type HandlerDeps struct {
	Chat           *core.ChatService
	Documents      *core.DocumentService
	Retrieval      *core.RetrievalService
	Users          core.UserStore
	JWTSecret      string
	MaxUploadBytes int64
}

func NewAPIHandler(d HandlerDeps) *APIHandler {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &APIHandler{
		chat:           d.Chat,
		documents:      d.Documents,
		retrieval:      d.Retrieval,
		users:          d.Users,
		jwtSecret:      d.JWTSecret,
		maxUploadBytes: d.MaxUploadBytes,
	}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type AskRequest struct {
	ConversationID string `json:"conversationId" validate:"omitempty,uuid"`
	Message        string `json:"message" validate:"required,max=4000"`
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req AskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ask := core.AskRequest{UserID: user.ID, Message: req.Message}
	if req.ConversationID != "" {
		id := uuid.MustParse(req.ConversationID)
		ask.ConversationID = &id
	}

	resp, err := h.chat.Ask(r.Context(), ask)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	convs, err := h.chat.ListConversations(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func conversationParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "validation", "conversationId must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

type ChatSessionResponse struct {
	ConversationID uuid.UUID       `json:"conversationId"`
	Messages       []store.Message `json:"messages"`
}

func (h *APIHandler) GetChatHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	convID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	msgs, err := h.chat.ListSession(r.Context(), convID, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatSessionResponse{ConversationID: convID, Messages: msgs})
}

func (h *APIHandler) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	convID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	n, err := h.chat.DeleteSession(r.Context(), convID, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversationId": convID, "deletedMessages": n})
}

// UploadDocumentHandler accepts a multipart form with a "file" part and an
// optional "filename" field overriding the part's own name.
func (h *APIHandler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorMessage(w, http.StatusRequestEntityTooLarge, "validation", "upload exceeds the size limit")
			return
		}
		writeErrorMessage(w, http.StatusBadRequest, "validation", "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "validation", "file part is required")
		return
	}
	defer file.Close()

	fileName := strings.TrimSpace(r.FormValue("filename"))
	if fileName == "" {
		fileName = header.Filename
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Str("file_name", fileName).Msg("failed to read upload")
		writeErrorMessage(w, http.StatusBadRequest, "validation", "could not read uploaded file")
		return
	}

	doc, err := h.documents.Ingest(r.Context(), data, fileName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *APIHandler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *APIHandler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")
	if err := h.documents.Delete(r.Context(), fileName); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ReconcileDocumentHandler(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")
	removed, err := h.documents.Reconcile(r.Context(), fileName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fileName": fileName, "removedChunks": removed})
}

type RetrieveRequest struct {
	Query string `json:"query" validate:"required"`
}

type RetrieveResponse struct {
	Context string          `json:"context"`
	Chunks  []RetrieveChunk `json:"chunks"`
}

type RetrieveChunk struct {
	ID         string  `json:"id"`
	FileName   string  `json:"fileName"`
	Page       int     `json:"page"`
	Similarity float64 `json:"similarity"`
}

func (h *APIHandler) RetrieveHandler(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	results, err := h.retrieval.RetrieveChunks(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := RetrieveResponse{Context: core.FormatContext(results), Chunks: make([]RetrieveChunk, len(results))}
	for i, c := range results {
		resp.Chunks[i] = RetrieveChunk{ID: c.ID, FileName: c.Metadata.FileName, Page: c.Metadata.Page, Similarity: c.Similarity}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) CompareEmbeddingsHandler(w http.ResponseWriter, r *http.Request) {
	text1, text2 := r.URL.Query().Get("text1"), r.URL.Query().Get("text2")
	sim, err := h.retrieval.Compare(r.Context(), text1, text2)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text1": text1, "text2": text2, "similarity": sim})
}
