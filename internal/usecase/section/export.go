package section

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/xuri/excelize/v2"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportSessions выгружает сессии секции с въездом в [from, to] в XLSX
func (s *Service) ExportSessions(ctx context.Context, caller *domain.Caller, id int64, from, to time.Time) ([]byte, error) {
	if !caller.CanOperate(id) {
		return nil, domain.ErrForbidden
	}

	from, to, err := s.period(from, to)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repositories()
	section, err := repos.Sections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sessions, err := repos.Sessions.ListBySection(ctx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	data, err := s.renderSessions(section, sessions)
	if err != nil {
		s.logger.Error("Failed to render sessions export", map[string]interface{}{
			"section_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Sessions exported", map[string]interface{}{
		"section_id": id,
		"sessions":   len(sessions),
	})

	return data, nil
}

func (s *Service) renderSessions(section *domain.Section, sessions []*domain.Session) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if section.Name != "" {
		if err := f.SetSheetName(sheet, section.Name); err == nil {
			sheet = section.Name
		}
	}

	header := []interface{}{"Session", "Plate", "Ticket", "Checked in", "Checked out", "Fee"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, session := range sessions {
		checkedOut := ""
		if session.CheckedOutAt != nil {
			checkedOut = session.CheckedOutAt.In(s.location).Format(exportTimeLayout)
		}
		fee := ""
		if session.Fee.Valid {
			fee = session.Fee.Decimal.StringFixed(2)
		}

		row := []interface{}{
			session.ID.String(),
			session.LicensePlate,
			session.TicketID,
			session.CheckedInAt.In(s.location).Format(exportTimeLayout),
			checkedOut,
			fee,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
