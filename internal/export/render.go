package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"github.com/flightbook/flightlog/internal/flightbook"
)

// OutputType selects how RenderXLSX encodes the workbook.
type OutputType string

const (
	// OutputBase64 returns the workbook as base64 text, ready for device storage.
	OutputBase64 OutputType = "base64"
	// OutputArray returns the raw workbook bytes, ready for a download.
	OutputArray OutputType = "array"
)

// XLSXOptions configure spreadsheet rendering.
type XLSXOptions struct {
	BookType   string
	OutputType OutputType
}

// Payload is rendered artifact content in both encodings.
type Payload interface {
	Base64() (string, error)
	Bytes() ([]byte, error)
}

// Document is a rendered PDF.
type Document interface {
	Payload
}

// Renderer turns a sorted flight list into artifact content.
type Renderer interface {
	RenderXLSX(flights []flightbook.Flight, opts XLSXOptions) ([]byte, error)
	RenderPDF(flights []flightbook.Flight, user flightbook.User, baseURL string) (Document, error)
}

// encodedPayload adapts RenderXLSX output to Payload.
type encodedPayload struct {
	data    []byte
	encoded bool
}

func (p encodedPayload) Base64() (string, error) {
	if p.encoded {
		return string(p.data), nil
	}
	return base64.StdEncoding.EncodeToString(p.data), nil
}

func (p encodedPayload) Bytes() ([]byte, error) {
	if !p.encoded {
		return p.data, nil
	}
	raw, err := base64.StdEncoding.DecodeString(string(p.data))
	if err != nil {
		return nil, fmt.Errorf("decode workbook: %w", err)
	}
	return raw, nil
}

type pdfDocument struct {
	data []byte
}

func (d pdfDocument) Base64() (string, error) {
	return base64.StdEncoding.EncodeToString(d.data), nil
}

func (d pdfDocument) Bytes() ([]byte, error) {
	return d.data, nil
}

var columns = []struct {
	title string
	width float64
}{
	{"Nr.", 6},
	{"Date", 12},
	{"Time", 8},
	{"Glider", 24},
	{"Start", 24},
	{"Landing", 24},
	{"Duration", 10},
	{"Km", 8},
	{"Description", 48},
}

func row(f flightbook.Flight) []string {
	km := ""
	if f.KM > 0 {
		km = strconv.FormatFloat(f.KM, 'f', 1, 64)
	}
	return []string{
		strconv.Itoa(f.Number),
		f.DisplayDate(),
		f.DisplayTime(),
		f.Glider.Label(),
		f.Start.Name,
		f.Landing.Name,
		f.Duration,
		km,
		f.Description,
	}
}

// DefaultRenderer renders workbooks with excelize and documents with fpdf.
type DefaultRenderer struct{}

var _ Renderer = DefaultRenderer{}

const sheetName = "Flights"

// RenderXLSX writes one sheet with a header row and one row per flight, in
// the order given.
func (DefaultRenderer) RenderXLSX(flights []flightbook.Flight, opts XLSXOptions) ([]byte, error) {
	if opts.BookType != "" && opts.BookType != "xlsx" {
		return nil, fmt.Errorf("unsupported book type %q", opts.BookType)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, fmt.Errorf("open stream writer: %w", err)
	}
	for i, col := range columns {
		if err := sw.SetColWidth(i+1, i+1, col.width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = excelize.Cell{StyleID: bold, Value: col.title}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, fl := range flights {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := row(fl)
		out := make([]interface{}, len(values))
		for j, v := range values {
			out[j] = v
		}
		out[0] = fl.Number
		if fl.KM > 0 {
			out[7] = fl.KM
		}
		if err := sw.SetRow(cell, out); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	if opts.OutputType == OutputBase64 {
		return []byte(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
	}
	return buf.Bytes(), nil
}

// RenderPDF lays the flights out as a landscape A4 table headed by the
// pilot's name, with a footer linking to baseURL.
func (DefaultRenderer) RenderPDF(flights []flightbook.Flight, user flightbook.User, baseURL string) (Document, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Flightbook", true)
	pdf.SetAuthor(user.DisplayName(), true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s  -  %d", baseURL, pdf.PageNo())), "", 0, "C", false, 0, baseURL)
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Flightbook "+user.DisplayName()), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%d flights", len(flights))), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	var total float64
	for _, col := range columns {
		total += col.width
	}
	scale := (pageWidth - left - right) / total

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range columns {
			pdf.CellFormat(col.width*scale, 7, tr(col.title), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, fl := range flights {
		if pdf.GetY()+6 > pageHeight-bottom-12 {
			pdf.AddPage()
			header()
		}
		for i, value := range row(fl) {
			pdf.CellFormat(columns[i].width*scale, 6, tr(truncate(value, int(columns[i].width*1.6))), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("encode pdf: %w", err)
	}
	return pdfDocument{data: buf.Bytes()}, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 1 || len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
