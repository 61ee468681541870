package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werss-client/internal/domain/entity"
)

func TestListSubscriptions(t *testing.T) {
	// Arrange
	var query map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query = map[string]string{"offset": q.Get("offset"), "limit": q.Get("limit"), "kw": q.Get("kw")}
		writeOK(w, map[string]any{
			"list": []any{
				map[string]any{"id": entity.FeaturedMpID, "mp_name": "Featured"},
				map[string]any{"id": "MP_WXS_1", "mp_name": "Go Weekly", "status": 1},
			},
			"page":  map[string]any{"limit": 10, "offset": 0, "total": 2},
			"total": 2,
		})
	})

	// Act
	res, err := c.SearchSubscriptions(context.Background(), "go", 0, 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"offset": "0", "limit": "10", "kw": "go"}, query)
	require.Len(t, res.Items, 2)
	assert.True(t, res.Items[0].IsFeatured())
	assert.Equal(t, "Go Weekly", res.Items[1].DisplayName())
	require.NotNil(t, res.Page)
	assert.Equal(t, 2, res.Page.Total)
}

func TestAddSubscription_Validates(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	_, err := c.AddSubscription(context.Background(), entity.SubscriptionCreate{MpName: "Go Weekly"})

	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, entity.ErrValidationFailed)
	assert.Zero(t, calls.Load())
}

func TestAddSubscription_PostsBizAccount(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		writeOK(w, map[string]any{"id": "MP_WXS_123", "mp_name": "Go Weekly", "status": 1})
	})
	biz := entity.BizAccount{FakeID: "MzA5MTIz", Nickname: "Go Weekly", RoundHeadImg: "http://img/a.png", Signature: "weekly"}

	sub, err := c.AddSubscription(context.Background(), biz.SubscriptionCreate())

	require.NoError(t, err)
	assert.Equal(t, "MP_WXS_123", sub.ID)
	assert.Equal(t, "MzA5MTIz", body["mp_id"])
	assert.Equal(t, "Go Weekly", body["mp_name"])
	assert.Equal(t, "http://img/a.png", body["avatar"])
}

func TestAddFeaturedArticle_RejectsForeignURL(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	_, err := c.AddFeaturedArticle(context.Background(), "https://example.com/s/abc")

	assert.ErrorIs(t, err, entity.ErrInvalidFeaturedURL)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, calls.Load())
}

func TestAddFeaturedArticle(t *testing.T) {
	// Arrange
	var body map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)
			writeOK(w, map[string]any{"task_id": "f1", "url": body["url"], "status": "pending"})
			return
		}
		writeOK(w, map[string]any{"task_id": "f1", "status": "success", "id": "a77", "title": "Picked"})
	})
	ctx := context.Background()

	// Act
	task, err := c.AddFeaturedArticle(ctx, "  https://mp.weixin.qq.com/s/AbC123  ")
	require.NoError(t, err)
	done, err := c.WaitFeaturedArticleTask(ctx, task.TaskID, 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "https://mp.weixin.qq.com/s/AbC123", body["url"])
	assert.Equal(t, entity.TaskSuccess, done.Status)
	assert.Equal(t, "a77", done.ID)
}

func TestFeaturedSubscriptionIsImmutable(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	ctx := context.Background()

	assert.ErrorIs(t, c.DeleteSubscription(ctx, entity.FeaturedMpID), ErrValidation)
	assert.ErrorIs(t, c.SetSubscriptionStatus(ctx, entity.FeaturedMpID, 0), ErrValidation)
	assert.Zero(t, calls.Load())
}

func TestSetSubscriptionStatus(t *testing.T) {
	var method string
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		writeOK(w, map[string]any{"id": "MP_WXS_1", "status": 0})
	})

	err := c.SetSubscriptionStatus(context.Background(), "MP_WXS_1", 0)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, map[string]any{"status": float64(0)}, body)
}

func TestSyncSubscription(t *testing.T) {
	tests := []struct {
		name     string
		mpID     string
		start    int
		end      int
		wantPath string
		wantEnd  string
	}{
		{name: "single", mpID: "MP_WXS_1", start: 0, end: 3, wantPath: "/api/v1/wx/mps/update/MP_WXS_1", wantEnd: "3"},
		{name: "all", mpID: "", start: 0, end: 0, wantPath: "/api/v1/wx/mps/update/all", wantEnd: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path, end string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				path, end = r.URL.Path, r.URL.Query().Get("end_page")
				writeOK(w, map[string]any{"time_span": 120, "list": []any{}, "total": 0})
			})

			res, err := c.SyncSubscription(context.Background(), tt.mpID, tt.start, tt.end)

			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantEnd, end)
			assert.Equal(t, 120, res.TimeSpan)
		})
	}
}

func TestSyncSubscription_TooFrequent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":40402,"message":"do not update too often","data":{"time_span":12}}`))
	})

	_, err := c.SyncSubscription(context.Background(), "MP_WXS_1", 0, 1)

	assert.ErrorIs(t, err, ErrSyncTooFrequent)
}

func TestSyncSubscription_NotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.SyncSubscription(context.Background(), "MP_WXS_1", 0, 1)

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearchBiz(t *testing.T) {
	var rawPath, limit string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawPath, limit = r.URL.EscapedPath(), r.URL.Query().Get("limit")
		writeOK(w, map[string]any{
			"list":  []any{map[string]any{"fakeid": "MzA5", "nickname": "Go 语言"}},
			"page":  map[string]any{"limit": 5, "offset": 0},
			"total": 1,
		})
	})

	res, err := c.SearchBiz(context.Background(), "go lang", 0, 5)

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/wx/mps/search/go%20lang", rawPath)
	assert.Equal(t, "5", limit)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "MzA5", res.Items[0].SubscriptionCreate().MpID)
}
