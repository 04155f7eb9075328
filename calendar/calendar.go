// Package calendar manages the shared event calendar.
package calendar

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/tradevortex-client/apiclient"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
)

// The backend route keeps its original spelling
const eventsPath = "calender/"

const DateLayout = "2006-01-02"

type Event struct {
	ID    int64  `json:"id,omitempty"`
	Title string `json:"title"`
	Date  string `json:"date"` // YYYY-MM-DD
}

// Day parses Date in the local zone
func (e Event) Day() (time.Time, error) {
	return time.ParseInLocation(DateLayout, e.Date, time.Local)
}

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

func (s *Service) Events(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := s.client.DoJSON(ctx, apiclient.Get(eventsPath, nil), &events); err != nil {
		return nil, fmt.Errorf("[calendar Events] %w", err)
	}
	return events, nil
}

// CreateEvent adds an all-day event on day
func (s *Service) CreateEvent(ctx context.Context, title string, day time.Time) (*Event, error) {
	if strings.TrimSpace(title) == "" || day.IsZero() {
		return nil, fmt.Errorf("[calendar CreateEvent] %w: title and day are required", tverrors.ErrInvalidRequest)
	}
	req, err := apiclient.NewJSONRequest(http.MethodPost, eventsPath, Event{Title: title, Date: day.Format(DateLayout)})
	if err != nil {
		return nil, err
	}
	var created Event
	if err := s.client.DoJSON(ctx, req, &created); err != nil {
		return nil, fmt.Errorf("[calendar CreateEvent] %w", err)
	}
	return &created, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.client.DoJSON(ctx, apiclient.Delete(eventsPath+strconv.FormatInt(id, 10)+"/"), nil); err != nil {
		return fmt.Errorf("[calendar DeleteEvent] %d: %w", id, err)
	}
	return nil
}
