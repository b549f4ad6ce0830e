package server

import (
	"github.com/craftyxhub/craftyx-portal/users"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RequestIDMiddleware, s.RecoverMiddleware))
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// Pages
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteOTP, ChainMiddleware(s.OTPPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.ProtectedPageHandler("Dashboard"), s.HTMLMiddleWare(s.RequirePage(pageGuard(users.RoleUser)))...))
	s.RegisterRouteHandler("GET "+RouteModeration, ChainMiddleware(s.ProtectedPageHandler("Moderation"), s.HTMLMiddleWare(s.RequirePage(pageGuard(users.RoleModerator)))...))
	s.RegisterRouteHandler("GET "+RouteAdmin, ChainMiddleware(s.ProtectedPageHandler("Admin"), s.HTMLMiddleWare(s.RequirePage(pageGuard(users.RoleAdmin)))...))

	// Auth API
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthOTP, ChainMiddleware(s.VerifyOTPHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAPI(pageGuard(users.RoleUser)))...))

	// Content API
	s.RegisterRouteHandler("POST "+RouteContentHTML, ChainMiddleware(s.ContentHTMLHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteContentStrip, ChainMiddleware(s.ContentStripHandler(), s.APIMiddleware()...))
}
