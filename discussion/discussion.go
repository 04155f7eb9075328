// Package discussion is the up/down debate board: categories, votes with
// opinions, and comments on votes.
package discussion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/tradevortex-client/apiclient"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
)

type Choice string

const (
	Up   Choice = "up"
	Down Choice = "down"
)

func (c Choice) Valid() bool {
	return c == Up || c == Down
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Opinion struct {
	Text string `json:"text"`
	Type Choice `json:"type"`
}

// Summary is the tally of one category
type Summary struct {
	CategoryID   int64     `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Up           int       `json:"up"`
	Down         int       `json:"down"`
	Opinions     []Opinion `json:"opinions"`
}

// Share of up votes in [0,1], 0 with no votes
func (s Summary) UpShare() float64 {
	total := s.Up + s.Down
	if total == 0 {
		return 0
	}
	return float64(s.Up) / float64(total)
}

type Vote struct {
	Category  int64     `json:"category"`
	User      *int64    `json:"user,omitempty"`
	VoteType  Choice    `json:"vote_type"`
	Opinion   string    `json:"opinion"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

type Comment struct {
	Category  int64     `json:"category"`
	Vote      *int64    `json:"vote,omitempty"`
	User      *int64    `json:"user,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := s.client.DoJSON(ctx, apiclient.Get("toron/categories/", nil), &out); err != nil {
		return nil, fmt.Errorf("[discussion Categories] %w", err)
	}
	return out, nil
}

func (s *Service) VoteSummary(ctx context.Context) ([]Summary, error) {
	var out []Summary
	if err := s.client.DoJSON(ctx, apiclient.Get("toron/votes/summary/", nil), &out); err != nil {
		return nil, fmt.Errorf("[discussion VoteSummary] %w", err)
	}
	return out, nil
}

// Vote casts a vote. Anonymous votes are accepted by the backend.
func (s *Service) Vote(ctx context.Context, categoryID int64, choice Choice, opinion string) (*Vote, error) {
	if !choice.Valid() {
		return nil, fmt.Errorf("[discussion Vote] %w: choice must be up or down, got %q", tverrors.ErrInvalidRequest, choice)
	}
	req, err := apiclient.NewJSONRequest(http.MethodPost, "toron/votes/", Vote{Category: categoryID, VoteType: choice, Opinion: opinion})
	if err != nil {
		return nil, err
	}
	var out Vote
	if err := s.client.DoJSON(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("[discussion Vote] %w", err)
	}
	return &out, nil
}

// Comment replies in a category, optionally to a specific vote (voteID 0 for none)
func (s *Service) Comment(ctx context.Context, categoryID, voteID int64, text string) (*Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("[discussion Comment] %w: text is required", tverrors.ErrInvalidRequest)
	}
	in := Comment{Category: categoryID, Text: text}
	if voteID != 0 {
		in.Vote = &voteID
	}
	req, err := apiclient.NewJSONRequest(http.MethodPost, "toron/comments/", in)
	if err != nil {
		return nil, err
	}
	var out Comment
	if err := s.client.DoJSON(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("[discussion Comment] %w", err)
	}
	return &out, nil
}
