package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/auth"
	"github.com/josh-kwaku/invoice-reconciler/internal/handler"
	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
	"github.com/josh-kwaku/invoice-reconciler/internal/repository"
)

type idempotencyRepository interface {
	Get(ctx context.Context, key string, tenantID uuid.UUID) (*repository.IdempotencyCacheEntry, error)
	Set(ctx context.Context, entry *repository.IdempotencyCacheEntry) error
}

// Idempotency replays the stored response for a repeated Idempotency-Key
// within the same tenant. It must run after Auth.
func Idempotency(repo idempotencyRepository, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				handler.RespondAppError(w, handler.ErrMissingIdempotencyKey, nil)
				return
			}

			tenantID, ok := auth.TenantIDFromContext(r.Context())
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			log := logging.FromContext(r.Context()).With("idempotency_key", key)
			reqHash := computeHash(r.Method, r.URL.Path, body)

			cached, err := repo.Get(r.Context(), key, tenantID)
			if err != nil {
				log.Error("idempotency cache lookup failed", "error", err)
				handler.RespondAppError(w, handler.ErrInternalError, nil)
				return
			}

			if cached != nil {
				if cached.RequestHash != reqHash {
					handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
					return
				}

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotent-Replayed", "true")
				w.WriteHeader(cached.StatusCode)
				if _, err := w.Write(cached.ResponseBody); err != nil {
					log.Error("failed to write idempotent replay", "error", err)
				}
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			// 5xx responses are not cached so the client can retry with the same key.
			if rec.statusCode >= http.StatusInternalServerError {
				return
			}

			now := time.Now().UTC()
			entry := &repository.IdempotencyCacheEntry{
				Key:          key,
				TenantID:     tenantID,
				RequestHash:  reqHash,
				StatusCode:   rec.statusCode,
				ResponseBody: rec.body.Bytes(),
				CreatedAt:    now,
				ExpiresAt:    now.Add(ttl),
			}
			if err := repo.Set(r.Context(), entry); err != nil {
				log.Error("idempotency cache store failed", "error", err)
			}
		})
	}
}

func computeHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return fmt.Sprintf("%x", h.Sum(nil))
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
