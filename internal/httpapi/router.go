package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"minishop/internal/admin"
	"minishop/internal/api"
	"minishop/internal/auth"
	"minishop/internal/cart"
	"minishop/internal/catalog"
	"minishop/internal/favorite"
	"minishop/internal/order"
	"minishop/internal/user"
	"minishop/pkg/config"
)

type Dependencies struct {
	Cfg   config.Config
	DB    *pgxpool.Pool
	Redis *redis.Client
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	usersRepo := user.NewRepository(deps.DB)
	productsRepo := catalog.NewRepository(deps.DB)
	favoritesRepo := favorite.NewRepository(deps.DB)
	cartRepo := cart.NewRepository(deps.DB)
	ordersRepo := order.NewRepository(deps.DB)

	authn := api.NewAuthenticator(deps.Cfg, usersRepo)
	authHandlers := auth.Handlers{Cfg: deps.Cfg}
	catalogHandlers := catalog.Handlers{Repo: productsRepo, Favorites: favoritesRepo}
	cartHandlers := cart.Handlers{Repo: cartRepo}
	favoriteHandlers := favorite.Handlers{Repo: favoritesRepo}
	orderHandlers := order.Handlers{Repo: ordersRepo}
	adminHandlers := admin.Handlers{Users: usersRepo, Products: productsRepo, Orders: ordersRepo}

	// The limiter mounts after the auth middleware in every group so it keys
	// on the authenticated Telegram id, falling back to remote IP only for
	// anonymous traffic. It is a no-op when redis is not configured.
	limit := api.RateLimit(deps.Redis, deps.Cfg.RateLimitRPM)

	// v1
	r.Route("/v1", func(r chi.Router) {
		r.Use(api.CORSMiddleware(api.CORSOptions{
			AllowedOrigins: deps.Cfg.WebAppAllowedOrigins,
		}))

		// Session bootstrap: strict initData auth, then a short-lived JWT.
		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAuth)
			r.Use(limit)
			r.Post("/auth/token", authHandlers.Token)
			r.Get("/me", authHandlers.Me)
		})

		// Public catalog; identity is optional and only decorates the response.
		r.Group(func(r chi.Router) {
			r.Use(authn.OptionalAuth)
			r.Use(limit)
			r.Get("/products", catalogHandlers.List)
			r.Get("/products/{id}", catalogHandlers.Get)
		})

		// Cart and orders carry money; strict tier only.
		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAuth)
			r.Use(limit)
			r.Get("/cart", cartHandlers.Get)
			r.Put("/cart/items/{productID}", cartHandlers.PutItem)
			r.Delete("/cart/items/{productID}", cartHandlers.DeleteItem)

			r.Post("/orders", orderHandlers.Create)
			r.Get("/orders", orderHandlers.List)
			r.Get("/orders/{id}", orderHandlers.Get)
		})

		// Favorites ride the soft tier: the identity claim is parsed but not
		// signature-checked. Acceptable for cosmetic per-user state only.
		r.Group(func(r chi.Router) {
			r.Use(authn.SoftAuth)
			r.Use(limit)
			r.Get("/favorites", favoriteHandlers.List)
			r.Put("/favorites/{productID}", favoriteHandlers.Put)
			r.Delete("/favorites/{productID}", favoriteHandlers.Delete)
		})

		// Admin panel
		r.Route("/admin", func(r chi.Router) {
			r.Use(authn.RequireAuth)
			r.Use(limit)
			r.Use(api.RequireAdmin)

			r.Get("/users", adminHandlers.ListUsers)
			r.Post("/users/{id}/ban", adminHandlers.BanUser)
			r.Post("/users/{id}/unban", adminHandlers.UnbanUser)

			r.Post("/products", adminHandlers.CreateProduct)
			r.Put("/products/{id}", adminHandlers.UpdateProduct)
			r.Delete("/products/{id}", adminHandlers.DeleteProduct)

			r.Get("/orders", adminHandlers.ListOrders)
			r.Patch("/orders/{id}/status", adminHandlers.PatchOrderStatus)
		})
	})

	return r
}
