package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/weddingplanner-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/weddingplanner-backend/api/controllers/cart"
	plannercontrollers "github.com/angelmondragon/weddingplanner-backend/api/controllers/planner"
	"github.com/angelmondragon/weddingplanner-backend/api/middleware"
	"github.com/angelmondragon/weddingplanner-backend/internal/actionqueue"
	"github.com/angelmondragon/weddingplanner-backend/internal/cart"
	"github.com/angelmondragon/weddingplanner-backend/internal/cartgateway"
	"github.com/angelmondragon/weddingplanner-backend/internal/replay"
	"github.com/angelmondragon/weddingplanner-backend/pkg/config"
	"github.com/angelmondragon/weddingplanner-backend/pkg/db"
	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
	"github.com/angelmondragon/weddingplanner-backend/pkg/redis"
)

// Deps are the services the HTTP surface is built from. Redis and
// CartService may be nil: without Redis, idempotency keys are ignored;
// without a cart service, the /api/v1/cart routes are not mounted.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Gatherer    prometheus.Gatherer
	CartService cart.Service
	Gateway     *cartgateway.Gateway
	Coordinator *replay.Coordinator
	Queue       *actionqueue.Manager
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	var idempotencyStore redis.IdempotencyStore
	readiness := map[string]controllers.Pinger{}
	if d.DB != nil {
		readiness["db"] = d.DB
	}
	if d.Redis != nil {
		idempotencyStore = d.Redis
		readiness["redis"] = d.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	if d.CartService != nil {
		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Get("/ping", controllers.PrivatePing())
			r.Get("/items", cartcontrollers.ItemsList(d.CartService, logg))
			r.Post("/items", cartcontrollers.ItemCreate(d.CartService, logg))
			r.Patch("/items/{itemId}", cartcontrollers.ItemUpdate(d.CartService, logg))
			r.Delete("/items/{itemId}", cartcontrollers.ItemDelete(d.CartService, logg))
			r.Get("/summary", cartcontrollers.Summary(d.CartService, logg))
		})
	}

	var reader plannercontrollers.CartReader
	if d.Gateway != nil {
		reader = d.Gateway.Backend()
	}
	categories := cfg.Planning.Categories

	r.Route("/api/v1/planner", func(r chi.Router) {
		r.Use(middleware.Device(cfg.Auth.DeviceCookie, cfg.App.IsProd(), logg))
		r.Use(middleware.Identity(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/statuses", plannercontrollers.Statuses())
		r.Post("/cart/actions", plannercontrollers.CartAction(nilSafeMutator(d.Gateway), logg))
		r.Post("/replay", plannercontrollers.Replay(nilSafeReplayer(d.Coordinator), logg))
		r.Get("/pending", plannercontrollers.Pending(nilSafeQueue(d.Queue), logg))
		r.Delete("/pending", plannercontrollers.ClearPending(nilSafeQueue(d.Queue), logg))
		r.Get("/cart", plannercontrollers.Cart(reader, categories, logg))
		r.Get("/progress", plannercontrollers.Progress(reader, categories, logg))
	})

	return r
}

// The handlers nil-check their interfaces; these keep a nil pointer from
// turning into a non-nil interface.

func nilSafeMutator(gw *cartgateway.Gateway) plannercontrollers.Mutator {
	if gw == nil {
		return nil
	}
	return gw
}

func nilSafeReplayer(c *replay.Coordinator) plannercontrollers.Replayer {
	if c == nil {
		return nil
	}
	return c
}

func nilSafeQueue(q *actionqueue.Manager) plannercontrollers.PendingQueue {
	if q == nil {
		return nil
	}
	return q
}
