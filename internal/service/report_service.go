package service

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const (
	reportSheet      = "Requests"
	reportDateFormat = "2006-01-02 15:04"
	// ReportContentType is the media type of Export's output.
	ReportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var reportHeaders = []interface{}{
	"ID", "Requester", "Email", "Department", "Category", "Status", "Assigned to", "Description", "Created", "Updated",
}

// ReportService exports requests as spreadsheets.
type ReportService struct {
	requests *RequestService
}

// NewReportService builds the service on top of the request listing.
func NewReportService(requests *RequestService) *ReportService {
	return &ReportService{requests: requests}
}

// Export writes every request matching filter to w as an XLSX workbook.
// Page and PageSize of filter are ignored.
func (s *ReportService) Export(ctx context.Context, actor *domain.User, filter RequestListFilter, w io.Writer) error {
	if err := requireStaff(actor); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(reportSheet, "A1", &reportHeaders); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, "A1", "J1", style); err != nil {
		return err
	}

	row := 2
	filter.PageSize = maxPageSize
	for page := 1; ; page++ {
		filter.Page = page
		result, err := s.requests.List(ctx, filter)
		if err != nil {
			return err
		}
		assignees, err := s.requests.Assignees(ctx, result.Items...)
		if err != nil {
			return err
		}
		for _, req := range result.Items {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := reportRow(req, assignees)
			if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
				return err
			}
			row++
		}
		if int64(page*result.PageSize) >= result.Total || len(result.Items) == 0 {
			break
		}
	}

	_ = f.SetColWidth(reportSheet, "B", "D", 25)
	_ = f.SetColWidth(reportSheet, "E", "G", 20)
	_ = f.SetColWidth(reportSheet, "H", "H", 50)
	_ = f.SetColWidth(reportSheet, "I", "J", 18)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReportFileName names an export produced on the given day.
func ReportFileName(day string) string {
	return fmt.Sprintf("requests_%s.xlsx", day)
}

func reportRow(req domain.ServiceRequest, assignees map[int64]*domain.User) []interface{} {
	assigned := "-"
	if req.AssignedTo != nil {
		if user, ok := assignees[*req.AssignedTo]; ok {
			assigned = user.Username
		}
	}
	return []interface{}{
		req.ID, req.RequesterName, req.RequesterEmail, req.Department,
		req.Category.Label(), req.Status.Label(), assigned, req.Description,
		req.CreatedAt.Format(reportDateFormat), req.UpdatedAt.Format(reportDateFormat),
	}
}
