package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orbitcart/orbitcart-backend/api/controllers"
	"github.com/orbitcart/orbitcart-backend/api/middleware"
	"github.com/orbitcart/orbitcart-backend/internal/notifications"
	"github.com/orbitcart/orbitcart-backend/internal/orders"
	"github.com/orbitcart/orbitcart-backend/internal/products"
	"github.com/orbitcart/orbitcart-backend/pkg/config"
	"github.com/orbitcart/orbitcart-backend/pkg/logger"
	pkgredis "github.com/orbitcart/orbitcart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	pingers map[string]controllers.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	productService products.Service,
	ordersService orders.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Console.Origins()),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(productService, logg))
			r.Get("/{productId}", controllers.GetProduct(productService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersService, logg))
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersService, logg))
			r.Patch("/{orderId}/status", controllers.UpdateOrderStatus(ordersService, logg))
			r.Post("/{orderId}/dispatch", controllers.DispatchOrder(ordersService, logg))
			r.Post("/{orderId}/courier-status", controllers.RefreshCourierStatus(ordersService, logg))
			r.Get("/{orderId}/invoice", controllers.OrderInvoice(ordersService, logg))
			r.Get("/{orderId}/label", controllers.OrderLabel(ordersService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Delete("/{notificationId}", controllers.DeleteNotification(notificationsService, logg))
		})
	})

	return r
}
