package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"tradedesk/logging"
	"tradedesk/models"
	"tradedesk/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const (
	Header = "Idempotency-Key"
	ttl    = 24 * time.Hour
)

func computeRequestHash(r *http.Request, bodyBytes []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(bodyBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// CaptureResponseWriter wraps http.ResponseWriter to capture status and body.
type CaptureResponseWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func NewCaptureResponseWriter(w http.ResponseWriter) *CaptureResponseWriter {
	return &CaptureResponseWriter{w: w, statusCode: http.StatusOK}
}

func (c *CaptureResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *CaptureResponseWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *CaptureResponseWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.w.Write(b)
}

func (c *CaptureResponseWriter) Status() int { return c.statusCode }

func (c *CaptureResponseWriter) BodyBytes() []byte { return c.buf.Bytes() }

// Middleware replays the stored response for a repeated Idempotency-Key.
//   - No header: pass through.
//   - First use: run the handler and store its response. Transient failures
//     (server errors, 408, 409, 429) drop the record so the client can retry
//     with the same key.
//   - Same key, different request: 409.
//   - Same key while the first request is still running: 409.
//
// Keys are scoped per user. It must run after Authenticate.
func Middleware(store Store) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			key := r.Header.Get(Header)
			if key == "" {
				next(w, r, ps)
				return
			}
			if len(key) > 255 {
				utils.RespondWithError(w, http.StatusBadRequest, "Idempotency-Key too long")
				return
			}

			userID := utils.GetUserIDFromRequest(r)
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			scoped := userID + ":" + key
			reqHash := computeRequestHash(r, bodyBytes, userID)
			now := time.Now()
			rec := models.IdempotencyRecord{
				Key:         scoped,
				Method:      r.Method,
				Path:        r.URL.Path,
				UserID:      userID,
				RequestHash: reqHash,
				CreatedAt:   now,
				ExpiresAt:   now.Add(ttl),
			}

			ctx := r.Context()
			err = store.Insert(ctx, rec)
			if err == nil {
				crw := NewCaptureResponseWriter(w)
				next(crw, r, ps)
				record(store, scoped, crw)
				return
			}
			if !errors.Is(err, ErrDuplicate) {
				logging.Logger.Error("idempotency insert", zap.Error(err))
				utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
				return
			}

			existing, err := store.Find(ctx, scoped)
			if err != nil {
				logging.Logger.Error("idempotency find", zap.Error(err))
				utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
				return
			}
			if existing.RequestHash != reqHash {
				utils.RespondWithError(w, http.StatusConflict, "idempotency-key conflict")
				return
			}
			if existing.Response == nil {
				utils.RespondWithError(w, http.StatusConflict, "request with this Idempotency-Key is in progress")
				return
			}

			status := http.StatusOK
			switch v := existing.Response["status"].(type) {
			case int32:
				status = int(v)
			case int64:
				status = int(v)
			case int:
				status = v
			case float64:
				status = int(v)
			}
			w.Header().Set("Idempotent-Replayed", "true")
			utils.RespondWithJSON(w, status, existing.Response["body"])
		}
	}
}

// transient reports responses that may differ on retry and must not be replayed.
func transient(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return status >= http.StatusInternalServerError
}

func record(store Store, key string, crw *CaptureResponseWriter) {
	// the request context may be canceled once the response is written
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if transient(crw.Status()) {
		if err := store.Delete(ctx, key); err != nil {
			logging.Logger.Warn("idempotency release", zap.Error(err))
		}
		return
	}

	var parsed interface{}
	if err := json.Unmarshal(crw.BodyBytes(), &parsed); err != nil {
		parsed = string(crw.BodyBytes())
	}
	resp := map[string]interface{}{
		"status": crw.Status(),
		"body":   parsed,
	}
	if err := store.SaveResponse(ctx, key, resp); err != nil {
		logging.Logger.Warn("idempotency save", zap.Error(err))
	}
}
