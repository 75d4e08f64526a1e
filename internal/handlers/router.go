package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"familyphotos/internal/metrics"
)

// Router holds every handler the HTTP API is assembled from
type Router struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Family     *FamilyHandler
	Photos     *PhotoHandler
	Comments   *CommentHandler
	Reactions  *ReactionHandler
	Albums     *AlbumHandler
	Profile    *ProfileHandler
	Health     *HealthHandler

	// MetricsToken guards GET /metrics; empty disables the endpoint
	MetricsToken string
}

// Handler registers the routes and wraps them with request logging and metrics
func (rt *Router) Handler(logger *zap.Logger) http.Handler {
	m := rt.Middleware
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /healthz", rt.Health.Healthz)
	mux.Handle("GET /metrics", metricsAccess(rt.MetricsToken, metrics.Handler()))
	mux.HandleFunc("POST /auth/magic-link", m.RateLimit(rt.Auth.RequestMagicLink))
	mux.HandleFunc("GET /auth/callback", m.RateLimit(rt.Auth.Callback))
	mux.HandleFunc("POST /auth/logout", rt.Auth.Logout)
	mux.HandleFunc("GET /auth/google/start", rt.Auth.StartGoogle)
	mux.HandleFunc("GET /auth/google/callback", m.RateLimit(rt.Auth.GoogleCallback))
	mux.HandleFunc("GET /api/invitations/{token}", m.RateLimit(rt.Family.InvitationStatus))
	mux.HandleFunc("GET /api/shared/{token}", rt.Albums.Shared)

	// Any signed-in identity
	mux.HandleFunc("GET /api/session", m.RequireSession(rt.Auth.Session))

	// Family
	mux.HandleFunc("GET /api/family", m.Member(rt.Family.List))
	mux.HandleFunc("POST /api/family/invite", m.RateLimit(m.Member(rt.Family.Invite)))
	mux.HandleFunc("DELETE /api/family/{id}", m.Member(rt.Family.Delete))
	mux.HandleFunc("POST /api/family/{id}/deactivate", m.Member(rt.Family.Deactivate))
	mux.HandleFunc("POST /api/family/{id}/reactivate", m.Member(rt.Family.Reactivate))

	// Photos
	mux.HandleFunc("GET /api/photos", m.Member(rt.Photos.List))
	mux.HandleFunc("POST /api/photos", m.Member(rt.Photos.Upload))
	mux.HandleFunc("GET /api/photos/{id}", m.Member(rt.Photos.Get))
	mux.HandleFunc("PATCH /api/photos/{id}", m.Member(rt.Photos.UpdateCaption))
	mux.HandleFunc("DELETE /api/photos/{id}", m.Member(rt.Photos.Delete))

	// Comments
	mux.HandleFunc("GET /api/photos/{id}/comments", m.Member(rt.Comments.List))
	mux.HandleFunc("POST /api/photos/{id}/comments", m.Member(rt.Comments.Add))
	mux.HandleFunc("PATCH /api/comments/{id}", m.Member(rt.Comments.Edit))
	mux.HandleFunc("DELETE /api/comments/{id}", m.Member(rt.Comments.Delete))

	// Reactions
	mux.HandleFunc("GET /api/photos/{id}/reactions", m.Member(rt.Reactions.List))
	mux.HandleFunc("POST /api/photos/{id}/reactions", m.Member(rt.Reactions.Toggle))
	mux.HandleFunc("POST /api/photos/{id}/gestures", m.Member(rt.Reactions.Gesture))

	// Albums
	mux.HandleFunc("GET /api/albums", m.Member(rt.Albums.List))
	mux.HandleFunc("POST /api/albums", m.Member(rt.Albums.Create))
	mux.HandleFunc("GET /api/albums/{id}", m.Member(rt.Albums.Get))
	mux.HandleFunc("PATCH /api/albums/{id}", m.Member(rt.Albums.Update))
	mux.HandleFunc("DELETE /api/albums/{id}", m.Member(rt.Albums.Delete))
	mux.HandleFunc("POST /api/albums/{id}/photos", m.Member(rt.Albums.AddPhoto))
	mux.HandleFunc("DELETE /api/albums/{id}/photos/{photoID}", m.Member(rt.Albums.RemovePhoto))
	mux.HandleFunc("PUT /api/albums/{id}/order", m.Member(rt.Albums.Reorder))
	mux.HandleFunc("POST /api/albums/{id}/share-token", m.Member(rt.Albums.RotateShareToken))

	// Profile
	mux.HandleFunc("GET /api/profile", m.Member(rt.Profile.Get))
	mux.HandleFunc("PATCH /api/profile", m.Member(rt.Profile.Update))
	mux.HandleFunc("PUT /api/profile/avatar", m.Member(rt.Profile.UploadAvatar))

	return metrics.InstrumentHandler(Logging(logger)(mux))
}
