package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Post("/ai/ask", apiHandler.AskHandler)
			r.Get("/ai/chats", apiHandler.ListChatsHandler)
			r.Get("/ai/chats/{conversationID}", apiHandler.GetChatHandler)
			r.Delete("/ai/chats/{conversationID}", apiHandler.DeleteChatHandler)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdministrator)

				r.Post("/documents", apiHandler.UploadDocumentHandler)
				r.Get("/documents", apiHandler.ListDocumentsHandler)
				r.Delete("/documents/{fileName}", apiHandler.DeleteDocumentHandler)
				r.Post("/documents/{fileName}/reconcile", apiHandler.ReconcileDocumentHandler)
				r.Post("/retrieve", apiHandler.RetrieveHandler)
				r.Get("/embeddings", apiHandler.CompareEmbeddingsHandler)
			})
		})
	})

	return r
}
