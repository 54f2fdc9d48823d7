// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/nordlock/sentrygate/internal/apierr"
	"github.com/nordlock/sentrygate/internal/config"
)

// configPatch is the body accepted by PUT /v1/config: any subset of the
// hot-reloadable sections, merged onto the current snapshot before
// validation.
type configPatch struct {
	MQTT     *config.MQTTConfig     `json:"mqtt,omitempty"`
	TTL      *config.TTLConfig      `json:"ttl,omitempty"`
	Decision *config.DecisionConfig `json:"decision,omitempty"`
	Gate     *config.GateConfig     `json:"gate,omitempty"`
	Auth     *config.AuthConfig     `json:"auth,omitempty"`
}

func (a *api) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := a.deps.CfgHolder.Get()
	writeJSON(w, http.StatusOK, config.MaskSecrets(cfg))
}

func (a *api) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var patch configPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondErr(w, r, err)
		return
	}

	cur := a.deps.CfgHolder.Get()
	if patch.MQTT != nil {
		cur.MQTT = *patch.MQTT
	}
	if patch.TTL != nil {
		cur.TTL = *patch.TTL
	}
	if patch.Decision != nil {
		cur.Decision = *patch.Decision
	}
	if patch.Gate != nil {
		cur.Gate = *patch.Gate
	}
	if patch.Auth != nil {
		cur.Auth = *patch.Auth
	}

	if err := a.deps.CfgHolder.Apply(cur); err != nil {
		respondErr(w, r, apierr.Config("config update rejected", err))
		return
	}
	writeJSON(w, http.StatusOK, config.MaskSecrets(cur))
}

func (a *api) handleConfigReload(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.CfgHolder.Reload(r.Context()); err != nil {
		if a.deps.Audit != nil {
			a.deps.Audit.ConfigReload(r.RemoteAddr, "failure", map[string]string{"error": err.Error()})
		}
		respondErr(w, r, apierr.Config("config reload rejected", err))
		return
	}
	if a.deps.Audit != nil {
		a.deps.Audit.ConfigReload(r.RemoteAddr, "success", nil)
	}
	writeJSON(w, http.StatusOK, config.MaskSecrets(a.deps.CfgHolder.Get()))
}
