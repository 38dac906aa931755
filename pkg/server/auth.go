package server

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword bcrypt-hashes a plaintext admin password at startup, the same
// library the teacher's pkg/auth already used for credential storage.
func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// basicAuth rejects any request not presenting the configured admin
// credential over HTTP Basic-Auth. It is the whole of WyrmDB's auth story —
// a single admin account, not the teacher's role/JWT system (see DESIGN.md).
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(s.config.AdminUser)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="wyrmdb"`)
			writeError(w, http.StatusUnauthorized, "Neo.ClientError.Security.Unauthorized", "authentication required")
			return
		}
		if bcrypt.CompareHashAndPassword(s.adminPasswordHash, []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="wyrmdb"`)
			writeError(w, http.StatusUnauthorized, "Neo.ClientError.Security.Unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
