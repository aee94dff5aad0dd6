// Package coordinatorserver exposes the order and inventory services over HTTP.
package coordinatorserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// MetricsExporter records requests and serves the collected metrics.
type MetricsExporter interface {
	Middleware() gin.HandlerFunc
	Handler() http.Handler
}

// NewInventoryRouter returns a gin engine serving the inventory routes.
func NewInventoryRouter(api InventoryAPI, metrics MetricsExporter, middleware ...gin.HandlerFunc) *gin.Engine {
	return newRouter(inventoryRoutes(api), metrics, middleware)
}

// NewOrdersRouter returns a gin engine serving the order routes.
func NewOrdersRouter(api OrderAPI, metrics MetricsExporter, middleware ...gin.HandlerFunc) *gin.Engine {
	return newRouter(orderRoutes(api), metrics, middleware)
}

func newRouter(routes []Route, metrics MetricsExporter, middleware []gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware...)
	if metrics != nil {
		router.Use(metrics.Middleware())
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	router.GET("/healthz", Healthz)
	for _, route := range routes {
		router.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// Healthz reports that the process is serving.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func inventoryRoutes(api InventoryAPI) []Route {
	return []Route{
		{"UpsertInventory", http.MethodPost, "/inventory", api.UpsertInventory},
		{"ListInventory", http.MethodGet, "/inventory", api.ListInventory},
		{"GetInventory", http.MethodGet, "/inventory/:productId", api.GetInventory},
	}
}

func orderRoutes(api OrderAPI) []Route {
	return []Route{
		{"CreateOrder", http.MethodPost, "/orders", api.CreateOrder},
		{"ListOrders", http.MethodGet, "/orders", api.ListOrders},
		{"GetOrder", http.MethodGet, "/orders/:id", api.GetOrder},
		{"UpdateOrderStatus", http.MethodPut, "/orders/:id/status", api.UpdateOrderStatus},
	}
}
