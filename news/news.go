// Package news reads crawled market news and its aggregate statistics.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/tradevortex-client/apiclient"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
)

type Item struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	Asset     string    `json:"asset,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is one page of the paginated news list
type Page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Item  `json:"results"`
}

func (p *Page) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// WordFrequency is a [word, count] pair
type WordFrequency struct {
	Word  string
	Count int
}

func (wf *WordFrequency) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("word frequency: expected [word, count], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &wf.Word); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &wf.Count)
}

type SentimentCount struct {
	Sentiment *string `json:"sentiment"`
	Count     int     `json:"count"`
}

type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats is the sentiment distribution and the last seven days' article counts
type Stats struct {
	Sentiment []SentimentCount `json:"sentiment_stats"`
	Daily     []DateCount      `json:"date_stats"`
}

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// List returns a page of news, starting at 1
func (s *Service) List(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("[news List] %w: page must be at least 1", tverrors.ErrInvalidRequest)
	}
	var q url.Values
	if page > 1 {
		q = url.Values{"page": {strconv.Itoa(page)}}
	}
	var out Page
	if err := s.client.DoJSON(ctx, apiclient.Get("news/", q), &out); err != nil {
		return nil, fmt.Errorf("[news List] %w", err)
	}
	return &out, nil
}

func (s *Service) Detail(ctx context.Context, id int64) (*Item, error) {
	var item Item
	path := "news/news/" + strconv.FormatInt(id, 10) + "/"
	if err := s.client.DoJSON(ctx, apiclient.Get(path, nil), &item); err != nil {
		return nil, fmt.Errorf("[news Detail] %d: %w", id, err)
	}
	return &item, nil
}

// WordCloud returns the most frequent nouns across all articles, most frequent first
func (s *Service) WordCloud(ctx context.Context) ([]WordFrequency, error) {
	var out struct {
		WordFrequencies []WordFrequency `json:"word_frequencies"`
	}
	if err := s.client.DoJSON(ctx, apiclient.Get("news/wordcloud/", nil), &out); err != nil {
		return nil, fmt.Errorf("[news WordCloud] %w", err)
	}
	return out.WordFrequencies, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := s.client.DoJSON(ctx, apiclient.Get("news/news-stats/", nil), &out); err != nil {
		return nil, fmt.Errorf("[news Stats] %w", err)
	}
	return &out, nil
}
