package middleware

import (
	"context"

	jwtutil "growlink/backend/app/jwt"
	"growlink/backend/app/models"
)

func GetClaims(ctx context.Context) *jwtutil.Claims {
	if v := ctx.Value(ClaimsKey); v != nil {
		if c, ok := v.(*jwtutil.Claims); ok {
			return c
		}
	}
	return nil
}

// GetDevice returns the device the gate resolved, or nil outside a
// device-authenticated handler.
func GetDevice(ctx context.Context) *models.Device {
	if v := ctx.Value(DeviceKey); v != nil {
		if d, ok := v.(*models.Device); ok {
			return d
		}
	}
	return nil
}
