package middleware

import (
	"context"
	"errors"
	"net/http"

	"growlink/backend/app/apperr"
	"growlink/backend/app/repo"
	"growlink/backend/app/token"
)

const (
	HeaderDeviceID    = "X-Device-ID"
	HeaderDeviceToken = "X-Device-Token"
)

// DeviceGate authenticates every agent request made after pairing.
// Identity and secret travel in headers, never in the payload.
//
// Outcomes, in order: missing material 401 (no lookup performed), unknown
// or unpaired identity 404, wrong secret 403. Secret verification is a
// constant-time hash comparison; after a rotation the immediately-prior
// secret is accepted exactly once.
type DeviceGate struct{ Devices *repo.DeviceRepository }

func (g *DeviceGate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		publicID := r.Header.Get(HeaderDeviceID)
		secret := r.Header.Get(HeaderDeviceToken)
		if publicID == "" || secret == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing device credentials")
			return
		}

		d, err := g.Devices.FindByPublicID(publicID)
		if err != nil {
			// Only a genuinely absent identity is a 404; a store failure
			// must look transient so the agent retries instead of
			// discarding its credentials.
			if errors.Is(err, apperr.ErrNotFound) {
				writeJSONError(w, http.StatusNotFound, "device not found or not paired")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, "temporary failure, retry")
			return
		}
		if !d.IsPaired() {
			writeJSONError(w, http.StatusNotFound, "device not found or not paired")
			return
		}

		if !token.VerifySecret(d.CredentialHash, secret) {
			// Grace path: a single authentication with the prior secret is
			// allowed after a rotation, in case the rotation response was
			// lost before the agent could persist the new secret.
			ok := false
			if d.PrevCredentialHash != nil && token.VerifySecret(*d.PrevCredentialHash, secret) {
				ok, err = g.Devices.ConsumeGrace(d.ID, *d.PrevCredentialHash)
				if err != nil {
					writeJSONError(w, http.StatusInternalServerError, "temporary failure, retry")
					return
				}
			}
			if !ok {
				writeJSONError(w, http.StatusForbidden, "device token verification failed")
				return
			}
		}

		ctx := context.WithValue(r.Context(), DeviceKey, d)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
