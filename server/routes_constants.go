package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Pages
	RouteLogin      = "/login"
	RouteOTP        = "/otp"
	RouteDashboard  = "/dashboard"
	RouteModeration = "/moderation"
	RouteAdmin      = "/admin"

	// Auth API
	RouteAuthLogin   = "/auth/login"
	RouteAuthOTP     = "/auth/otp"
	RouteAuthRefresh = "/auth/refresh"
	RouteAuthLogout  = "/auth/logout"
	RouteAuthMe      = "/auth/me"

	// Content API
	RouteContentHTML  = "/content/html"
	RouteContentStrip = "/content/strip"

	RouteHealth = "/healthz"
)
