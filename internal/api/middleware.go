package api

import (
	"net/http"

	"santamoment/internal/logger"
	"santamoment/internal/utils"
)

// AdminAuth guards the admin surface with a shared key carried in the
// X-Admin-Key header.
func AdminAuth(key string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" || r.Header.Get("X-Admin-Key") != key {
				log.Warn("AUTH", "Rejected admin request: "+r.URL.Path)
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
