package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/calderhealth/specalign/internal/api/handlers"
	mw "github.com/calderhealth/specalign/internal/api/middleware"
	"github.com/calderhealth/specalign/internal/buildconfig"
	"github.com/calderhealth/specalign/internal/config"
	"github.com/calderhealth/specalign/internal/domain"
	"github.com/calderhealth/specalign/internal/match"
	"github.com/calderhealth/specalign/internal/service"
	"github.com/calderhealth/specalign/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Registry     *service.SynonymRegistry
	Learning     *service.LearningService
	Pruner       *service.RulePruner
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	// Stores
	specialtyStore := store.NewSpecialtyStore(db)
	mappingStore := store.NewMappingStore(db)
	groupStore := store.NewGroupStore(db)
	eventStore := store.NewEventStore(db)
	ruleStore := store.NewRuleStore(db)

	// Services
	registry := service.NewSynonymRegistry(specialtyStore, eventStore, logger)
	learningSvc := service.NewLearningService(eventStore, ruleStore, groupStore, logger)

	scorer, err := match.NewScorer(registry)
	if err != nil {
		return nil, err
	}

	engine := service.NewMatchingEngine(scorer, learningSvc, config.SuggestionThreshold(), logger)
	mappingSvc := service.NewMappingService(mappingStore, groupStore, learningSvc, logger)
	pruner := service.NewRulePruner(learningSvc, logger)
	pruner.SetInterval(config.RulePruneInterval())

	// Handlers
	specialtyHandler := handlers.NewSpecialtyHandler(registry)
	suggestionHandler := handlers.NewSuggestionHandler(engine, mappingSvc, config.SuggestionTimeout())
	mappingHandler := handlers.NewMappingHandler(mappingSvc)
	learningHandler := handlers.NewLearningHandler(learningSvc, ruleStore)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Registry:  registry,
		Learning:  learningSvc,
		Pruner:    pruner,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		// Specialty catalog and synonyms
		r.Route("/specialties", func(r chi.Router) {
			r.Post("/", specialtyHandler.Create)
			r.Get("/", specialtyHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", specialtyHandler.Delete)
				r.Get("/synonyms", specialtyHandler.Synonyms)
				r.Post("/synonyms", specialtyHandler.AddSynonym)
				r.Delete("/synonyms", specialtyHandler.RemoveSynonym)
			})
		})

		// Cross-vendor match suggestions
		r.Post("/suggestions", suggestionHandler.Suggest)

		// Mappings and mapped groups
		r.Route("/mappings", func(r chi.Router) {
			r.Post("/", mappingHandler.ManualMap)
			r.Post("/approve", mappingHandler.Approve)
			r.Post("/reject", mappingHandler.Reject)
		})
		r.Route("/surveys/{id}/mappings", func(r chi.Router) {
			r.Get("/", mappingHandler.ListBySurvey)
			r.Delete("/", mappingHandler.DeleteBySurvey)
		})
		r.Route("/groups", func(r chi.Router) {
			r.Post("/", mappingHandler.CreateGroup)
			r.Get("/", mappingHandler.ListGroups)
		})

		// Learned rules
		r.Route("/learning", func(r chi.Router) {
			r.Get("/rules", learningHandler.Rules)
			r.Get("/suggestions", learningHandler.Suggestions)
			r.Get("/stats", learningHandler.Stats)
		})
	})

	return app, nil
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"version":        buildconfig.Version(),
			"commit":         buildconfig.Commit(),
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy the domain interfaces at compile time.
var (
	_ domain.SpecialtyStore = (*store.SpecialtyStore)(nil)
	_ domain.MappingStore   = (*store.MappingStore)(nil)
	_ domain.GroupStore     = (*store.GroupStore)(nil)
	_ domain.EventStore     = (*store.EventStore)(nil)
	_ domain.RuleStore      = (*store.RuleStore)(nil)
	_ match.Resolver        = (*service.SynonymRegistry)(nil)
)
