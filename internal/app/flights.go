package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/listview"
	"github.com/flightbook/flightlog/internal/logging"
)

// NewFlight is the input of AddFlight. Empty Date means today; empty Glider
// selects the first glider of the account.
type NewFlight struct {
	Date        string
	Time        string
	Glider      string
	Start       string
	Landing     string
	Duration    string
	KM          float64
	Description string
}

// AddFlight creates a flight. When the session's list view is active, it is
// reloaded with the active filter so the new flight shows up. The add command
// runs on a fresh session and never takes that path; it serves programs that
// embed a Session and keep its list view open.
func (s *Session) AddFlight(ctx context.Context, in NewFlight) (flightbook.Flight, error) {
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	day, err := flightbook.ParseDate(date)
	if err != nil {
		return flightbook.Flight{}, fmt.Errorf("date: %w", err)
	}

	glider, err := s.Gliders.Resolve(ctx, in.Glider)
	if err != nil {
		return flightbook.Flight{}, err
	}

	created, err := s.Client.CreateFlight(ctx, flightbook.Flight{
		Date:        day.Format("2006-01-02"),
		Time:        strings.TrimSpace(in.Time),
		Glider:      glider,
		Start:       flightbook.Place{Name: strings.TrimSpace(in.Start)},
		Landing:     flightbook.Place{Name: strings.TrimSpace(in.Landing)},
		Duration:    strings.TrimSpace(in.Duration),
		KM:          in.KM,
		Description: strings.TrimSpace(in.Description),
	})
	if err != nil {
		return flightbook.Flight{}, fmt.Errorf("create flight: %w", err)
	}
	s.Log.Info(ctx, "flight created",
		logging.Any("id", created.ID),
		logging.Int("number", created.Number),
		logging.String("glider", glider.Label()),
	)

	if s.List != nil && s.List.Active() {
		if err := s.List.Reload(ctx); err != nil && !errors.Is(err, listview.ErrInactive) {
			return created, fmt.Errorf("reload flights: %w", err)
		}
	}
	return created, nil
}

// ListGliders returns the account's gliders from the session cache.
func (s *Session) ListGliders(ctx context.Context) ([]flightbook.Glider, error) {
	return s.Gliders.Gliders(ctx)
}
