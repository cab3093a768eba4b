package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/jobtrack/jobtrack/infrastructure/service/logger"
)

const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationID ensures every request and response carries a correlation
// ID and makes it available to the structured logger via the context.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(CorrelationIDHeader)
		if cid == "" {
			cid = generateCorrelationID()
		}

		w.Header().Set(CorrelationIDHeader, cid)

		ctx := context.WithValue(r.Context(), logger.CorrelationIDKey, cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateCorrelationID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}
