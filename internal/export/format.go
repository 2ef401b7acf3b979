package export

import (
	"fmt"
	"strings"
	"time"
)

// Format is the artifact type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// MIME types handed to the file opener and to browser downloads.
const (
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEPDF  = "application/pdf"
)

// ParseFormat accepts "xlsx" or "pdf" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// MIME returns the content type of the format.
func (f Format) MIME() string {
	if f == FormatPDF {
		return MIMEPDF
	}
	return MIMEXLSX
}

// Filename returns the timestamped base name, e.g. flights_export_1700000000000.xlsx.
func (f Format) Filename(at time.Time) string {
	if f == FormatPDF {
		return fmt.Sprintf("flightbook_%d.pdf", at.UnixMilli())
	}
	return fmt.Sprintf("flights_export_%d.xlsx", at.UnixMilli())
}

// Environment selects the persistence strategy.
type Environment string

const (
	EnvironmentNative Environment = "native"
	EnvironmentWeb    Environment = "web"
)

// ParseEnvironment accepts "native" or "web" (case-insensitive).
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case EnvironmentNative:
		return EnvironmentNative, nil
	case EnvironmentWeb:
		return EnvironmentWeb, nil
	default:
		return "", fmt.Errorf("unknown environment %q", s)
	}
}
