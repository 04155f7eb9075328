// Package boards reads and writes community board posts.
package boards

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/tradevortex-client/apiclient"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
)

type BoardType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Image struct {
	ID         int64     `json:"id"`
	Image      string    `json:"image"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type Comment struct {
	ID        int64     `json:"id"`
	Post      int64     `json:"post"`
	Author    int64     `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Post struct {
	ID        int64     `json:"id"`
	BoardType int64     `json:"board_type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"` // Display name, read only
	ViewCount int       `json:"view_count"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Images    []Image   `json:"images,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
	Tags      []Tag     `json:"tags,omitempty"`
}

// PostInput is the writable part of a post
type PostInput struct {
	BoardType int64  `json:"board_type"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// Filter narrows Posts. Ordering is a field name, "-" prefixed for descending.
type Filter struct {
	BoardType int64
	Ordering  string
}

// NewestFirst is the ordering the board pages use
const NewestFirst = "-created_at"

// ReportReason is one of the reasons the backend accepts
type ReportReason string

const (
	ReasonSpam  ReportReason = "spam"
	ReasonAbuse ReportReason = "abuse"
	ReasonOther ReportReason = "other"
)

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

func (s *Service) BoardTypes(ctx context.Context) ([]BoardType, error) {
	var types []BoardType
	if err := s.client.DoJSON(ctx, apiclient.Get("board/boardtypes/", nil), &types); err != nil {
		return nil, fmt.Errorf("[boards BoardTypes] %w", err)
	}
	return types, nil
}

func (s *Service) Posts(ctx context.Context, filter Filter) ([]Post, error) {
	q := url.Values{}
	if filter.BoardType != 0 {
		q.Set("board_type", strconv.FormatInt(filter.BoardType, 10))
	}
	if filter.Ordering != "" {
		q.Set("ordering", filter.Ordering)
	}
	var posts []Post
	if err := s.client.DoJSON(ctx, apiclient.Get("board/posts/", q), &posts); err != nil {
		return nil, fmt.Errorf("[boards Posts] %w", err)
	}
	return posts, nil
}

func (s *Service) Post(ctx context.Context, id int64) (*Post, error) {
	var post Post
	if err := s.client.DoJSON(ctx, apiclient.Get(postPath(id), nil), &post); err != nil {
		return nil, fmt.Errorf("[boards Post] %d: %w", id, err)
	}
	return &post, nil
}

func (s *Service) CreatePost(ctx context.Context, in PostInput) (*Post, error) {
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("[boards CreatePost] %w", err)
	}
	return s.write(ctx, http.MethodPost, "board/posts/", in)
}

func (s *Service) UpdatePost(ctx context.Context, id int64, in PostInput) (*Post, error) {
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("[boards UpdatePost] %w", err)
	}
	return s.write(ctx, http.MethodPut, postPath(id), in)
}

func (s *Service) DeletePost(ctx context.Context, id int64) error {
	if err := s.client.DoJSON(ctx, apiclient.Delete(postPath(id)), nil); err != nil {
		return fmt.Errorf("[boards DeletePost] %d: %w", id, err)
	}
	return nil
}

// Like returns the new like count
func (s *Service) Like(ctx context.Context, id int64) (int, error) {
	var out struct {
		LikeCount int `json:"like_count"`
	}
	if err := s.client.DoJSON(ctx, apiclient.Request{Method: http.MethodPatch, Path: postPath(id) + "like/"}, &out); err != nil {
		return 0, fmt.Errorf("[boards Like] %d: %w", id, err)
	}
	return out.LikeCount, nil
}

// Dislike returns the new dislike count
func (s *Service) Dislike(ctx context.Context, id int64) (int, error) {
	var out struct {
		DislikeCount int `json:"dislike_count"`
	}
	if err := s.client.DoJSON(ctx, apiclient.Request{Method: http.MethodPatch, Path: postPath(id) + "dislike/"}, &out); err != nil {
		return 0, fmt.Errorf("[boards Dislike] %d: %w", id, err)
	}
	return out.DislikeCount, nil
}

// ReportPost flags a post for moderation
func (s *Service) ReportPost(ctx context.Context, postID int64, reason ReportReason, details string) error {
	if reason == "" {
		return fmt.Errorf("[boards ReportPost] %w: a reason is required", tverrors.ErrInvalidRequest)
	}
	req, err := apiclient.NewJSONRequest(http.MethodPost, postPath(postID)+"report/", map[string]string{
		"reason":  string(reason),
		"details": details,
	})
	if err != nil {
		return err
	}
	if err := s.client.DoJSON(ctx, req, nil); err != nil {
		return fmt.Errorf("[boards ReportPost] %d: %w", postID, err)
	}
	return nil
}

func (s *Service) write(ctx context.Context, method, path string, in PostInput) (*Post, error) {
	req, err := apiclient.NewJSONRequest(method, path, in)
	if err != nil {
		return nil, err
	}
	var post Post
	if err := s.client.DoJSON(ctx, req, &post); err != nil {
		return nil, fmt.Errorf("[boards %s] %s: %w", method, path, err)
	}
	return &post, nil
}

func (in PostInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", tverrors.ErrInvalidRequest)
	}
	if in.BoardType == 0 {
		return fmt.Errorf("%w: board type is required", tverrors.ErrInvalidRequest)
	}
	return nil
}

func postPath(id int64) string {
	return "board/posts/" + strconv.FormatInt(id, 10) + "/"
}
