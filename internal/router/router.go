package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/vehicle-access-control/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/vehicle-access-control/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check and the detection ingest
// endpoint.  Detections arrive from the camera services on the internal
// network; they carry no user identity, so the route is deliberately
// outside the JWT group.
func RegisterRoutes(e *echo.Echo, d *handler.DetectionHandler) {
	// Health endpoint for load balancers and monitoring systems.
	e.GET("/healthz", handler.Health)
	// Camera-facing detection ingest.
	e.POST("/detections", d.Ingest)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth; the authenticated
// profile endpoint lives under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)
}

// RegisterBooking registers the resource and booking routes.  Every route
// requires a valid access token; resource mutations additionally require
// the ADMIN role.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, r *handler.ResourceHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	// Browsing is open to every authenticated role.
	g.GET("/resources", r.List)
	g.GET("/resources/:name/bookings", b.ListForResource)

	// Booking lifecycle for regular users (admins and operators book too).
	g.POST("/bookings", b.Create)
	g.GET("/bookings", b.ListMine)
	g.PUT("/bookings/:id", b.Reschedule)
	g.DELETE("/bookings/:id", b.Cancel)

	// Resource management is admin-only.
	admin := e.Group("/v1")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/resources", r.Create)
	admin.PUT("/resources/:id", r.Update)
	admin.DELETE("/resources/:id", r.Delete)
}

// RegisterSecurity registers the security-dashboard routes: the pending
// review list and the approve/reject decisions for operators, and the
// vehicle allow-list registration for admins.
func RegisterSecurity(e *echo.Echo, ap *handler.ApprovalHandler, v *handler.VehicleHandler, jwtSecret string) {
	ops := e.Group("/v1/approvals")
	ops.Use(middleware.JWTAuth(jwtSecret))
	ops.Use(middleware.RequireRole("OPERATOR", "ADMIN"))
	ops.GET("", ap.ListPending)
	ops.POST("/approve", ap.Approve)
	ops.POST("/reject", ap.Reject)

	admin := e.Group("/v1/vehicles")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("", v.Register)
}
