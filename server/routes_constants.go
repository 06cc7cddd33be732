package server

// Route path constants
const (
	RouteLogin         = "/oauth2/login"
	RouteLoginFlow     = "/oauth2/login/flow"
	RouteLoginPassword = "/oauth2/login/password"
	RouteLoginOTPStart = "/oauth2/login/otp/request"
	RouteLoginOTP      = "/oauth2/login/otp"
	RouteLoginConsent  = "/oauth2/login/consent"
	RouteLoginSelect   = "/oauth2/login/select"
	RouteLoginSwitch   = "/oauth2/login/switch"
	RouteLoginNew      = "/oauth2/login/new"
	RouteLoginLogout   = "/oauth2/login/logout"
	RouteToastDismiss  = "/oauth2/login/toasts/dismiss"

	RouteHealth = "/healthz"
	RouteStatic = "/static/"
)

// Form and query field names
const (
	fieldState    = "state"
	fieldFlowID   = "flow_id"
	fieldIdentity = "identity"
	fieldPassword = "password"
	fieldEmail    = "email"
	fieldCode     = "code"
	fieldAccount  = "account"
	fieldToastID  = "toast_id"
)
