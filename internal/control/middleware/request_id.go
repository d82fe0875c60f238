// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Mokrovi/backServ/internal/log"
)

// HeaderRequestID carries the per-request id in both directions.
const HeaderRequestID = "X-Request-ID"

// HeaderCorrelationID is an optional caller id spanning several requests,
// such as a desktop client's stream session.
const HeaderCorrelationID = "X-Correlation-ID"

const maxRequestIDLen = 128

// RequestID adds a unique ID to every request. A client supplied id is kept
// when it is short enough.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		if cid := r.Header.Get(HeaderCorrelationID); cid != "" && len(cid) <= maxRequestIDLen {
			w.Header().Set(HeaderCorrelationID, cid)
			ctx = log.ContextWithCorrelationID(ctx, cid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
