package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/markhenning/buildcomply/internal/api/handlers"
	"github.com/markhenning/buildcomply/internal/api/middleware"
	"github.com/markhenning/buildcomply/internal/cache"
	"github.com/markhenning/buildcomply/internal/config"
	"github.com/markhenning/buildcomply/internal/queue"
	"github.com/markhenning/buildcomply/internal/rules"
	"github.com/markhenning/buildcomply/internal/scoring"
	"github.com/markhenning/buildcomply/internal/snapshot"
	"github.com/markhenning/buildcomply/internal/storage"
	"github.com/markhenning/buildcomply/internal/store"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Services
	docStore := store.NewDocumentStore(rt.db)
	rfiStore := store.NewRFIStore(rt.db)
	eventStore := store.NewChangeEventStore(rt.db)
	checkStore := store.NewCheckStore(rt.db)
	snapStore := store.NewSnapshotStore(rt.db)

	blobs := storage.NewSupabaseStorage(rt.cfg.Storage.SupabaseURL, rt.cfg.Storage.SupabaseKey)
	queueClient := queue.NewClient(rt.cfg.Redis)
	scoreCache := cache.NewCache(rt.redis)

	catalog := rules.DefaultCatalog()
	scorer := scoring.NewService(checkStore, catalog, rt.cfg.Scoring)
	snapSvc := snapshot.NewService(scorer, snapStore, checkStore)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		docH := handlers.NewDocumentHandler(docStore, blobs, rt.cfg.Storage.Bucket, queueClient)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/{id}/status", docH.Status)
		})

		rfiH := handlers.NewRFIHandler(rfiStore, queueClient)
		r.Route("/rfis", func(r chi.Router) {
			r.Post("/", rfiH.Create)
			r.Patch("/{id}/status", rfiH.UpdateStatus)
		})

		evH := handlers.NewChangeEventHandler(eventStore, queueClient)
		r.Post("/change-events", evH.Create)

		compH := handlers.NewComplianceHandler(scorer, snapSvc, scoreCache)
		r.Route("/projects/{projectID}/compliance", func(r chi.Router) {
			r.Get("/score", compH.Score)
			r.Get("/health", compH.Health)
		})
	})

	return r
}
