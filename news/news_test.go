package news_test

import (
	"context"
	"net/http"
	"testing"

	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/internal/fakebackend"
	"github.com/jrsteele09/tradevortex-client/news"
	"github.com/stretchr/testify/require"
)

func setupNews(t *testing.T) *news.Service {
	t.Helper()
	backend := fakebackend.New(t)

	backend.HandlePublic(http.MethodGet, "/news/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fakebackend.WriteJSON(w, http.StatusOK, map[string]any{
				"count": 3, "next": nil, "previous": "http://x/api/news/",
				"results": []map[string]any{{"id": 3, "title": "third", "url": "https://n/3", "created_at": "2025-01-03T09:00:00Z"}},
			})
			return
		}
		fakebackend.WriteJSON(w, http.StatusOK, map[string]any{
			"count": 3, "next": "http://x/api/news/?page=2", "previous": nil,
			"results": []map[string]any{
				{"id": 1, "title": "first", "url": "https://n/1", "asset": "AAPL", "created_at": "2025-01-01T09:00:00Z"},
				{"id": 2, "title": "second", "url": "https://n/2", "created_at": "2025-01-02T09:00:00Z"},
			},
		})
	})
	backend.HandlePublic(http.MethodGet, "/news/news/{id:[0-9]+}/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/news/news/1/" {
			fakebackend.WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		fakebackend.WriteJSON(w, http.StatusOK, map[string]any{"id": 1, "title": "first", "content": "body", "url": "https://n/1", "created_at": "2025-01-01T09:00:00Z"})
	})
	backend.HandlePublic(http.MethodGet, "/news/wordcloud/", func(w http.ResponseWriter, r *http.Request) {
		fakebackend.WriteJSON(w, http.StatusOK, map[string]any{"word_frequencies": [][]any{{"금리", 12}, {"반도체", 7}}})
	})
	backend.HandlePublic(http.MethodGet, "/news/news-stats/", func(w http.ResponseWriter, r *http.Request) {
		fakebackend.WriteJSON(w, http.StatusOK, map[string]any{
			"sentiment_stats": []map[string]any{{"sentiment": "긍정", "count": 2}, {"sentiment": nil, "count": 1}},
			"date_stats":      []map[string]any{{"date": "2025-01-03", "count": 1}},
		})
	})

	client, _ := backend.Client(t)
	return news.NewService(client)
}

func TestListPages(t *testing.T) {
	svc := setupNews(t)
	ctx := context.Background()

	first, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, first.Count)
	require.Len(t, first.Results, 2)
	require.Equal(t, "AAPL", first.Results[0].Asset)
	require.True(t, first.HasNext())

	second, err := svc.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	require.False(t, second.HasNext())

	_, err = svc.List(ctx, 0)
	require.ErrorIs(t, err, tverrors.ErrInvalidRequest)
}

func TestDetail(t *testing.T) {
	svc := setupNews(t)

	item, err := svc.Detail(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "body", item.Content)

	_, err = svc.Detail(context.Background(), 99)
	require.ErrorIs(t, err, tverrors.ErrNotFound)
}

func TestWordCloudAndStats(t *testing.T) {
	svc := setupNews(t)

	words, err := svc.WordCloud(context.Background())
	require.NoError(t, err)
	require.Equal(t, []news.WordFrequency{{Word: "금리", Count: 12}, {Word: "반도체", Count: 7}}, words)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats.Sentiment, 2)
	require.Nil(t, stats.Sentiment[1].Sentiment)
	require.Equal(t, 1, stats.Daily[0].Count)
}
