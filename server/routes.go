package server

import (
	"fmt"
	"net/http"
)

func (s *Server) initRoutes() error {
	loginPage, err := s.loginRenderer()
	if err != nil {
		return fmt.Errorf("initRoutes: %w", err)
	}

	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.StartLoginHandler(loginPage), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteLoginFlow, ChainMiddleware(s.ShowFlowHandler(loginPage), s.HTMLMiddleWare()...))

	actions := map[string]flowAction{
		RouteLoginPassword: submitPassword,
		RouteLoginOTPStart: requestOTP,
		RouteLoginOTP:      submitOTP,
		RouteLoginConsent:  submitConsent,
		RouteLoginSelect:   selectAccount,
		RouteLoginSwitch:   switchAccount,
		RouteLoginNew:      newAccount,
		RouteLoginLogout:   logout,
		RouteToastDismiss:  dismissToast,
	}
	for _, route := range []string{
		RouteLoginPassword, RouteLoginOTPStart, RouteLoginOTP, RouteLoginConsent,
		RouteLoginSelect, RouteLoginSwitch, RouteLoginNew, RouteLoginLogout, RouteToastDismiss,
	} {
		s.RegisterRouteHandler("POST "+route, ChainMiddleware(s.FlowActionHandler(loginPage, actions[route]), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	}

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteStatic, FileServerHandler())
	return nil
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}
