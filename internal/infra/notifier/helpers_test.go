package notifier

import (
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werss-client/internal/domain/entity"
	"werss-client/internal/resilience/retry"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  2,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func sampleAlert() entity.ArticleAlert {
	return entity.ArticleAlert{
		Count:      2,
		Total:      120,
		DetectedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		Recent: []entity.Article{
			{ID: "a1", Title: "Go 1.25 released", MpName: "Gopher Weekly", URL: "https://mp.weixin.qq.com/s/a1"},
			{ID: "a2", Title: "Draft", Link: "https://mp.weixin.qq.com/s/a2"},
		},
	}
}

// recordingHandler answers with the given statuses in order (the last one
// repeats) and captures every request body.
type recordingHandler struct {
	t        *testing.T
	statuses []int
	body     string
	calls    atomic.Int32
	last     atomic.Value // []byte
	header   atomic.Value // http.Header
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(h.calls.Add(1))
	raw, err := io.ReadAll(r.Body)
	assert.NoError(h.t, err)
	h.last.Store(raw)
	h.header.Store(r.Header.Clone())

	status := h.statuses[len(h.statuses)-1]
	if n <= len(h.statuses) {
		status = h.statuses[n-1]
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, h.body)
}

func (h *recordingHandler) decode(v any) {
	h.t.Helper()
	raw, _ := h.last.Load().([]byte)
	require.NoError(h.t, json.Unmarshal(raw, v))
}

func (h *recordingHandler) lastHeader() http.Header {
	hdr, _ := h.header.Load().(http.Header)
	return hdr
}
