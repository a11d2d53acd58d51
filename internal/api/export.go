package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sheet is one worksheet of an export
type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]any
}

// buildWorkbook renders sheets with a bold, bordered and frozen header row
func buildWorkbook(sheets ...sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sh.name, err)
		}

		if err := f.SetSheetRow(sh.name, "A1", &sh.headers); err != nil {
			return nil, fmt.Errorf("failed to write header of %s: %w", sh.name, err)
		}
		last, err := excelize.CoordinatesToCellName(len(sh.headers), 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellStyle(sh.name, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		for col, width := range sh.widths {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return nil, fmt.Errorf("failed to convert column number: %w", err)
			}
			if err := f.SetColWidth(sh.name, name, name, width); err != nil {
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}

		for i, row := range sh.rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
				return nil, fmt.Errorf("failed to write row %d of %s: %w", i+2, sh.name, err)
			}
		}

		if err := f.SetPanes(sh.name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return nil, fmt.Errorf("failed to freeze header of %s: %w", sh.name, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func platesByItem(items []models.RsvpItem) map[int64]int {
	m := make(map[int64]int, len(items))
	for _, it := range items {
		m[it.MenuItemID] += it.Plates
	}
	return m
}

// rsvpWorkbook lays out one row per resident or guest RSVP, one plates
// column per menu item and one column per custom field
func rsvpWorkbook(report *service.RsvpReport) ([]byte, error) {
	cfg := report.Event
	headers := []string{"Type", "Pass Code", "Name", "Email", "Phone", "Flat"}
	widths := []float64{10, 12, 25, 30, 16, 10}
	for _, m := range cfg.MenuItems {
		headers = append(headers, m.Name)
		widths = append(widths, 14)
	}
	for _, cf := range cfg.CustomFields {
		headers = append(headers, cf.Label)
		widths = append(widths, 20)
	}
	headers = append(headers, "Plates", "Amount", "Paid", "Attended", "Attended At")
	widths = append(widths, 10, 12, 8, 10, 18)

	row := func(kind, code, name, email, phone, flat string, items []models.RsvpItem, responses models.Responses,
		plates int, amount int64, paid, attended bool, attendedAt *time.Time) []any {
		out := []any{kind, code, name, email, phone, flat}
		byItem := platesByItem(items)
		for _, m := range cfg.MenuItems {
			out = append(out, byItem[m.ID])
		}
		for _, cf := range cfg.CustomFields {
			out = append(out, responses[cf.Key])
		}
		return append(out, plates, amount, yesNo(paid), yesNo(attended), formatTime(attendedAt))
	}

	rows := make([][]any, 0, len(report.Rsvps)+len(report.Guests))
	for _, r := range report.Rsvps {
		var name, email, phone, flat string
		if r.Resident != nil {
			name, email, phone, flat = r.Resident.DisplayName(), r.Resident.Email, r.Resident.Phone, r.Resident.Flat.Label()
		}
		rows = append(rows, row("Resident", r.PassCode(), name, email, phone, flat, r.Items, r.Responses,
			r.Plates(), r.Amount(), r.Paid, r.Attended, r.AttendedAt))
	}
	for _, g := range report.Guests {
		rows = append(rows, row("Guest", g.PassCode(), g.Name, g.Email, g.Phone, "", g.Items, g.Responses,
			g.Plates(), g.Amount(), g.Paid, g.Attended, g.AttendedAt))
	}

	sum := report.Summary
	summaryRows := make([][]any, 0, len(sum.Items)+6)
	for _, it := range sum.Items {
		summaryRows = append(summaryRows, []any{it.Name, it.PricePerPlate, it.Plates, it.Amount})
	}
	summaryRows = append(summaryRows,
		[]any{},
		[]any{"Total", "", sum.TotalPlates, sum.TotalAmount},
		[]any{"Paid", sum.PaidCount, "", sum.PaidAmount},
		[]any{"Unpaid", sum.UnpaidCount, "", sum.UnpaidAmount},
		[]any{"Attended", sum.AttendedCount},
	)

	return buildWorkbook(
		sheet{name: "RSVPs", headers: headers, widths: widths, rows: rows},
		sheet{name: "Summary", headers: []string{"Item", "Price / Plate", "Plates", "Amount"}, widths: []float64{30, 14, 10, 14}, rows: summaryRows},
	)
}

// sportsWorkbook lays out one row per participant
func sportsWorkbook(report *service.SportsReport) ([]byte, error) {
	cfg := report.Sports
	headers := []string{"Registration", "Resident", "Email", "Phone", "Flat", "Participant", "Age Category", "Sports", "Fee", "Paid"}
	widths := []float64{12, 25, 30, 16, 10, 25, 14, 40, 10, 8}

	var rows [][]any
	for _, reg := range report.Registrations {
		var name, email, phone, flat string
		if reg.Resident != nil {
			name, email, phone, flat = reg.Resident.DisplayName(), reg.Resident.Email, reg.Resident.Phone, reg.Resident.Flat.Label()
		}
		for _, p := range reg.Participants {
			var (
				names []string
				fee   int64
			)
			for _, id := range p.SportItemIDs {
				if it := cfg.SportItem(id); it != nil {
					names = append(names, it.Name)
					fee += it.Fee
				}
			}
			rows = append(rows, []any{reg.ID, name, email, phone, flat, p.Name, p.AgeCategory,
				strings.Join(names, ", "), fee, yesNo(reg.Paid)})
		}
	}

	sum := report.Summary
	var summaryRows [][]any
	for _, sp := range sum.Sports {
		summaryRows = append(summaryRows, []any{"Sport", sp.Name, sp.Participants, sp.Amount})
	}
	for _, ac := range sum.AgeCategories {
		summaryRows = append(summaryRows, []any{"Age category", ac.Category, ac.Participants, ""})
	}
	summaryRows = append(summaryRows,
		[]any{},
		[]any{"Total", strconv.Itoa(sum.Registrations) + " registrations", sum.Participants, sum.TotalFee},
		[]any{"Paid", sum.PaidCount, "", sum.PaidFee},
		[]any{"Unpaid", sum.UnpaidCount, "", sum.UnpaidFee},
	)

	return buildWorkbook(
		sheet{name: "Participants", headers: headers, widths: widths, rows: rows},
		sheet{name: "Summary", headers: []string{"Group", "Name", "Participants", "Amount"}, widths: []float64{14, 30, 14, 14}, rows: summaryRows},
	)
}

func (s *Server) respondXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.WithError(err).Error("failed to write export")
	}
}

func (s *Server) handleExportRsvps(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	report, err := s.svc.EventRsvps(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to list rsvps")
		return
	}
	data, err := rsvpWorkbook(report)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to build rsvp export")
		return
	}
	s.respondXLSX(w, fmt.Sprintf("event-%d-rsvps.xlsx", id), data)
}

func (s *Server) handleExportSports(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	report, err := s.svc.SportsRegistrations(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to list sports registrations")
		return
	}
	data, err := sportsWorkbook(report)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to build sports export")
		return
	}
	s.respondXLSX(w, fmt.Sprintf("event-%d-sports.xlsx", id), data)
}
