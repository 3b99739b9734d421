package api

import (
	"net/http"
	"time"

	"github.com/freethub/groups-service/internal/api/handler"
	"github.com/freethub/groups-service/internal/api/middleware"
	"github.com/freethub/groups-service/internal/service"
	"github.com/freethub/groups-service/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(
	store storage.Storage,
	groupService *service.GroupService,
	logger *zap.Logger,
	bootstrapKey string,
	sessionDuration time.Duration,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(store, bootstrapKey))

		// User directory and session provisioning
		userHandler := handler.NewUserHandler(store)
		r.Post("/users", userHandler.Create)
		r.Get("/users", userHandler.List)

		sessionHandler := handler.NewSessionHandler(store, sessionDuration)
		r.Post("/sessions", sessionHandler.Create)

		// Groups
		groupHandler := handler.NewGroupHandler(groupService)
		r.Post("/groups", groupHandler.Create)
		r.Get("/groups", groupHandler.List)
		r.Get("/groups/member", groupHandler.ListMember)

		r.Route("/groups/{group_id}", func(r chi.Router) {
			r.Get("/", groupHandler.Get)
			r.Put("/", groupHandler.Update)
			r.Delete("/", groupHandler.Delete)

			// Membership
			memberHandler := handler.NewMemberHandler(groupService)
			r.Post("/members", memberHandler.Join)
			r.Delete("/members", memberHandler.Leave)
			r.Delete("/members/{user_id}", memberHandler.Remove)

			// Moderator roster
			moderatorHandler := handler.NewModeratorHandler(groupService)
			r.Get("/moderators", moderatorHandler.List)
			r.Post("/moderators", moderatorHandler.Grant)
			r.Delete("/moderators/{user_id}", moderatorHandler.Revoke)

			// Ownership transfer
			ownerHandler := handler.NewOwnerHandler(groupService)
			r.Put("/owner", ownerHandler.Transfer)

			// Freet attachments
			freetHandler := handler.NewFreetHandler(groupService)
			r.Get("/freets", freetHandler.List)
			r.Post("/freets", freetHandler.Attach)
			r.Delete("/freets/{freet_id}", freetHandler.Detach)
		})
	})

	return r
}
