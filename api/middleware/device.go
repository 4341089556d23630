package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
)

const (
	deviceIDHeader     = "X-Device-Id"
	deviceCookieMaxAge = 365 * 24 * 60 * 60
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// Device identifies the browser profile that owns a deferred-action slot.
// The id comes from the X-Device-Id header or the device cookie; a new one
// is minted and set as a cookie when neither carries a usable value.
func Device(cookieName string, secure bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader))
			if !deviceIDPattern.MatchString(deviceID) {
				deviceID = ""
				if c, err := r.Cookie(cookieName); err == nil && deviceIDPattern.MatchString(c.Value) {
					deviceID = c.Value
				}
			}
			if deviceID == "" {
				deviceID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    deviceID,
					Path:     "/",
					MaxAge:   deviceCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(deviceIDHeader, deviceID)

			ctx := WithDeviceID(r.Context(), deviceID)
			if logg != nil {
				ctx = logg.WithDeviceID(ctx, deviceID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
