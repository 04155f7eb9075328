// Package assistant starts AI analysis runs, polls their results and talks
// to the chat bot. Run progress arrives as notifications on the user's
// notification channel; ParseRunID and ParseStatus read those messages.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/jrsteele09/tradevortex-client/apiclient"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Run is one analysis job
type Run struct {
	ID              int64           `json:"id"`
	Inputs          json.RawMessage `json:"inputs,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	Status          Status          `json:"status"`
	Recommendations int             `json:"recommendations"`
	UserID          *int64          `json:"user_id,omitempty"`
}

// ResultText returns the result as text: a JSON string is unquoted, anything else is returned raw
func (r *Run) ResultText() string {
	if len(r.Result) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Result, &s); err == nil {
		return s
	}
	return string(r.Result)
}

// Done reports whether the run has a result to show
func (r *Run) Done() bool {
	return r.Status == StatusCompleted || r.ResultText() != ""
}

type Started struct {
	Message string `json:"message"`
	RunID   int64  `json:"run_id"`
}

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// Run starts an analysis of topic for userID. Completion is announced on the
// user's notification channel.
func (s *Service) Run(ctx context.Context, userID int64, topic string) (*Started, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("[assistant Run] %w: topic is required", tverrors.ErrInvalidRequest)
	}
	req, err := apiclient.NewJSONRequest(http.MethodPost, "aiassist/run/", map[string]any{
		"inputs": map[string]string{"topic": topic},
		"userid": userID,
	})
	if err != nil {
		return nil, err
	}
	var out Started
	if err := s.client.DoJSON(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("[assistant Run] %w", err)
	}
	if out.RunID == 0 {
		return nil, fmt.Errorf("[assistant Run] %w: no run_id in response", tverrors.ErrInvalidRequest)
	}
	return &out, nil
}

// Chat asks the bot a question. The bot may answer with several messages.
func (s *Service) Chat(ctx context.Context, question string) ([]string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("[assistant Chat] %w: question is required", tverrors.ErrInvalidRequest)
	}
	req, err := apiclient.NewJSONRequest(http.MethodPost, "aiassist/bot/", map[string]any{
		"inputs": map[string]string{"question": question},
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Result struct {
			Raw json.RawMessage `json:"raw"`
		} `json:"result"`
	}
	if err := s.client.DoJSON(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("[assistant Chat] %w", err)
	}
	return replies(out.Result.Raw)
}

// raw is either one string or a list of them
func replies(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("[assistant Chat] unexpected reply: %w", err)
	}
	return []string{one}, nil
}

func (s *Service) Result(ctx context.Context, runID int64) (*Run, error) {
	var run Run
	q := url.Values{"run_id": {strconv.FormatInt(runID, 10)}}
	if err := s.client.DoJSON(ctx, apiclient.Get("aiassist/result/", q), &run); err != nil {
		return nil, fmt.Errorf("[assistant Result] %d: %w", runID, err)
	}
	return &run, nil
}

// History lists the user's past runs
func (s *Service) History(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := s.client.DoJSON(ctx, apiclient.Get("aiassist/history/", nil), &runs); err != nil {
		return nil, fmt.Errorf("[assistant History] %w", err)
	}
	return runs, nil
}

// Recommend upvotes a run's result and returns the new count
func (s *Service) Recommend(ctx context.Context, runID int64) (int, error) {
	req, err := apiclient.NewJSONRequest(http.MethodPost, "aiassist/recommend/", map[string]int64{"run_id": runID})
	if err != nil {
		return 0, err
	}
	var out struct {
		Recommendations int `json:"recommendations"`
	}
	if err := s.client.DoJSON(ctx, req, &out); err != nil {
		return 0, fmt.Errorf("[assistant Recommend] %d: %w", runID, err)
	}
	return out.Recommendations, nil
}

// Status messages carry the run as "Run ID: 12"; completion messages from
// the worker use "보고서 ID: 12".
var runIDPattern = regexp.MustCompile(`(?:Run|보고서) ID: (\d+)`)

// ParseRunID extracts the run ID from a notification message
func ParseRunID(message string) (int64, bool) {
	m := runIDPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseStatus reads the run status from a notification message, "" if it carries none
func ParseStatus(message string) Status {
	switch {
	case strings.Contains(message, "완료"):
		return StatusCompleted
	case strings.Contains(message, "진행 중"):
		return StatusRunning
	}
	return ""
}
