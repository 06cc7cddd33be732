package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-login/kvstore"
)

const deviceCookieName = "device_id"

// deviceID returns the browser's device id, or "" when it has none yet.
func deviceID(r *http.Request) string {
	cookie, err := r.Cookie(deviceCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

// ensureDevice returns the browser's device id, issuing a new cookie when
// the browser has none. The cookie lifetime is refreshed on every login.
func (s *Server) ensureDevice(w http.ResponseWriter, r *http.Request) string {
	id := deviceID(r)
	if id == "" {
		id = uuid.NewString()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     deviceCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.config.GetDeviceCookieMaxAge().Seconds()),
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// deviceStorage is the key space of one browser inside the shared storage.
func (s *Server) deviceStorage(id string) kvstore.Storage {
	return kvstore.Prefixed(s.storage, "device/"+id+"/")
}
