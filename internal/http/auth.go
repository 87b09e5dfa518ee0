package http

import (
	"context"
	"errors"
	"net/http"

	"budgetdash/internal/log"
	"budgetdash/internal/rbac"
)

// RoleHeader carries the caller's role, set by the authenticating proxy in
// front of the service.
const RoleHeader = "X-User-Role"

// UserHeader names the caller; it fills created_by when a new expense omits it.
const UserHeader = "X-User-Name"

type roleKey struct{}

func withRoleContext(ctx context.Context, r rbac.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, r)
}

// roleFrom returns the role stored by withRole.
func roleFrom(ctx context.Context) rbac.Role {
	r, _ := ctx.Value(roleKey{}).(rbac.Role)
	return r
}

// withRole rejects requests without a known role: a missing header is 401,
// an unknown role is 403.
func (s *Server) withRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(RoleHeader)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing "+RoleHeader+" header")
			return
		}
		role, err := rbac.ParseRole(raw)
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected unknown role",
				log.FieldRole, sanitizeInput(raw),
				log.FieldPath, r.URL.Path,
				log.FieldErrorType, log.ErrorTypeAuth)
			writeError(w, http.StatusForbidden, errors.Unwrap(err).Error())
			return
		}
		ctx := withRoleContext(r.Context(), role)
		ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldRole, string(role)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireView(v rbac.View, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !roleFrom(r.Context()).CanView(v) {
			forbidden(w, r, "view "+string(v))
			return
		}
		next(w, r)
	}
}

func (s *Server) requireCapability(c rbac.Capability, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !roleFrom(r.Context()).Can(c) {
			forbidden(w, r, string(c))
			return
		}
		next(w, r)
	}
}

func forbidden(w http.ResponseWriter, r *http.Request, what string) {
	role := roleFrom(r.Context())
	log.FromContext(r.Context()).InfoContext(r.Context(), "Permission denied",
		log.FieldRole, string(role),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldErrorType, log.ErrorTypeAuth)
	writeError(w, http.StatusForbidden, "role "+string(role)+" may not "+what)
}
