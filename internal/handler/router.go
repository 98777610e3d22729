package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/glowlabs/glowchat/backend/internal/handler/chat"
	imageHandler "github.com/glowlabs/glowchat/backend/internal/handler/image"
	middlewarePkg "github.com/glowlabs/glowchat/backend/internal/middleware"
	"github.com/glowlabs/glowchat/backend/internal/service/ai"
	"github.com/glowlabs/glowchat/backend/internal/service/conversation"
	"github.com/glowlabs/glowchat/backend/internal/service/imagegen"
	jobtracker "github.com/glowlabs/glowchat/backend/internal/service/imagejob"
	"github.com/glowlabs/glowchat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. completer and generator may
// be nil when the corresponding collaborator is not configured.
func NewRouter(conversations *conversation.Service, tracker *jobtracker.Tracker, completer ai.Completer, generator *imagegen.Service, generatedDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(conversations, completer).RegisterRoutes(api)
		imageHandler.New(generator, tracker).RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":              "ok",
				"timestamp":           time.Now().UTC().Format(time.RFC3339),
				"activeConversations": conversations.Count(),
				"imageJobs":           tracker.Count(),
			})
		})
	})

	if generatedDir != "" {
		fs := http.StripPrefix("/generated/", http.FileServer(http.Dir(generatedDir)))
		r.Get("/generated/*", fs.ServeHTTP)
	}

	return r
}
