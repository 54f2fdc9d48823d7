// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/nordlock/sentrygate/internal/apierr"
	"github.com/nordlock/sentrygate/internal/auth"
)

// requireAuth rejects requests with a missing or wrong X-Edge-Token when
// auth.enabled is set in the current config snapshot. A no-op otherwise.
func (a *api) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := a.deps.CfgHolder.Get().Auth
		if !cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		if !auth.AuthorizeRequest(r, cfg.Token) {
			if a.deps.Audit != nil {
				a.deps.Audit.AuthFailure(r.RemoteAddr, r.URL.Path, "missing or invalid token")
			}
			apierr.Respond(w, r, apierr.Auth("missing or invalid X-Edge-Token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
