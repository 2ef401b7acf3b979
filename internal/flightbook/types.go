package flightbook

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Flight mirrors a logbook entry as returned by /flights.
type Flight struct {
	ID          int64   `json:"id,omitempty"`
	Number      int     `json:"number"`
	Date        string  `json:"date"`
	Time        string  `json:"time,omitempty"`
	Glider      Glider  `json:"glider"`
	Start       Place   `json:"start"`
	Landing     Place   `json:"landing"`
	Duration    string  `json:"duration,omitempty"`
	KM          float64 `json:"km,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

// ParsedDate returns the calendar date of the flight or the zero time.
func (f Flight) ParsedDate() time.Time {
	raw := strings.TrimSpace(f.Date)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if len(raw) >= len(dateLayout) {
		if t, err := time.Parse(dateLayout, raw[:len(dateLayout)]); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DisplayDate formats the flight date as YYYY-MM-DD, falling back to the raw value.
func (f Flight) DisplayDate() string {
	if t := f.ParsedDate(); !t.IsZero() {
		return t.Format(dateLayout)
	}
	return f.Date
}

// DisplayTime returns the time of day as HH:MM, or "" when unset.
func (f Flight) DisplayTime() string {
	raw := strings.TrimSpace(f.Time)
	if raw == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format("15:04")
	}
	if len(raw) >= 5 {
		return raw[:5]
	}
	return raw
}

// Glider is immutable reference data for the aircraft a flight was made with.
type Glider struct {
	ID    int64  `json:"id,omitempty"`
	Brand string `json:"brand"`
	Name  string `json:"name"`
}

// Label returns "<brand> <name>".
func (g Glider) Label() string {
	return strings.TrimSpace(g.Brand + " " + g.Name)
}

// Place is a start or landing site. ID is zero for ad-hoc locations.
type Place struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// User is the account profile printed on exported documents.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// DisplayName returns the full name, or the email when no name is set.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.Firstname + " " + u.Lastname)
	if name == "" {
		return u.Email
	}
	return name
}

// Filter holds the criteria evaluated by the remote source.
type Filter struct {
	From        time.Time
	To          time.Time
	GliderID    int64
	Start       string
	Landing     string
	Description string
}

// IsZero reports whether no criterion is set.
func (f Filter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() && f.GliderID == 0 &&
		strings.TrimSpace(f.Start) == "" && strings.TrimSpace(f.Landing) == "" &&
		strings.TrimSpace(f.Description) == ""
}

// Matches evaluates the criteria locally. The remote source is authoritative;
// this exists for fakes and diagnostics.
func (f Filter) Matches(fl Flight) bool {
	date := fl.ParsedDate()
	if !f.From.IsZero() && (date.IsZero() || date.Before(truncateDay(f.From))) {
		return false
	}
	if !f.To.IsZero() && (date.IsZero() || date.After(truncateDay(f.To))) {
		return false
	}
	if f.GliderID != 0 && fl.Glider.ID != f.GliderID {
		return false
	}
	if !containsFold(fl.Start.Name, f.Start) || !containsFold(fl.Landing.Name, f.Landing) {
		return false
	}
	return containsFold(fl.Description, f.Description)
}

// String renders the active criteria for status lines.
func (f Filter) String() string {
	if f.IsZero() {
		return "none"
	}
	var parts []string
	if !f.From.IsZero() {
		parts = append(parts, "from "+f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		parts = append(parts, "to "+f.To.Format(dateLayout))
	}
	if f.GliderID != 0 {
		parts = append(parts, fmt.Sprintf("glider #%d", f.GliderID))
	}
	if s := strings.TrimSpace(f.Start); s != "" {
		parts = append(parts, "start "+s)
	}
	if s := strings.TrimSpace(f.Landing); s != "" {
		parts = append(parts, "landing "+s)
	}
	if s := strings.TrimSpace(f.Description); s != "" {
		parts = append(parts, fmt.Sprintf("%q", s))
	}
	return strings.Join(parts, ", ")
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func containsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ParseDate parses a YYYY-MM-DD date as used by filter inputs.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}
