package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	// IdempotencyHeader carries the client-chosen key for a write request.
	IdempotencyHeader = "Idempotency-Key"
	// ReplayedHeader marks a response served from the idempotency store.
	ReplayedHeader = "Idempotent-Replayed"
)

// Idem provides an Idempotency-Key middleware backed by Redis.
type Idem struct {
	R   redis.UniversalClient
	TTL time.Duration
}

// idemRecord is what a key holds: the request fingerprint and, once the request
// succeeded, the response to replay. Status 0 means the first request is still running.
type idemRecord struct {
	Fingerprint string `json:"fp"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func hashKey(key string) string {
	return "idem:" + Sha256Hex(key)
}

// Middleware enforces idempotency semantics for write endpoints. The first request under a
// key runs the handler; a 2xx response is stored for TTL and replayed to later requests with
// the same key and body. A request that ends with a non-2xx status releases the key so it can
// be retried. Reusing a key with a different body is rejected.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				JSONError(w, http.StatusRequestEntityTooLarge, CodeBadRequest, "request body too large", nil)
				return
			}
			JSONError(w, http.StatusBadRequest, CodeBadRequest, "unreadable request body", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		fp := Fingerprint(r.Method, r.URL.Path, string(body))

		key := hashKey(header)
		pending, _ := json.Marshal(idemRecord{Fingerprint: fp})
		ok, err := i.R.SetNX(r.Context(), key, pending, ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, CodeInternal, "idempotency store error", nil)
			return
		}
		if !ok {
			i.answerDuplicate(w, r, key, fp)
			return
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		settled := false
		defer func() {
			if settled {
				return
			}
			// a panicking handler keeps the key pending until it expires
			_ = i.R.Expire(context.Background(), key, ttl).Err()
		}()
		next.ServeHTTP(rec, r)

		if rec.status < 200 || rec.status >= 300 {
			settled = i.R.Del(context.Background(), key).Err() == nil
			return
		}
		stored, err := json.Marshal(idemRecord{
			Fingerprint: fp,
			Status:      rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err == nil {
			settled = i.R.Set(context.Background(), key, stored, ttl).Err() == nil
		}
	})
}

func (i Idem) answerDuplicate(w http.ResponseWriter, r *http.Request, key, fp string) {
	raw, err := i.R.Get(r.Context(), key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		JSONError(w, http.StatusInternalServerError, CodeInternal, "idempotency store error", nil)
		return
	}
	var stored idemRecord
	if err != nil || json.Unmarshal(raw, &stored) != nil {
		// released or expired between the two calls, or an unreadable value
		JSONError(w, http.StatusConflict, CodeRequestInProgress, "request with this idempotency key is in progress", nil)
		return
	}
	switch {
	case stored.Fingerprint != fp:
		JSONError(w, http.StatusUnprocessableEntity, CodeIdempotencyKeyReused, "idempotency key was used with a different request", nil)
	case stored.Status == 0:
		JSONError(w, http.StatusConflict, CodeRequestInProgress, "request with this idempotency key is in progress", nil)
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(ReplayedHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// recordingWriter passes the response through while keeping a copy for replay.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.body.Write(p)
	return rw.ResponseWriter.Write(p)
}
