package attendance

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/shota3227/ludi/pkg/db"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
)

const (
	exportSheet    = "Attendance"
	maxExportRange = 93 * 24 * time.Hour
)

var exportHeader = []any{"Date", "Name", "Nickname", "Clock in", "Clock out", "Hours"}

// ExportStoreAttendance writes an xlsx workbook with one row per record whose
// clock_in falls in [from, to). Times are rendered in the service location.
func (s *service) ExportStoreAttendance(ctx context.Context, storeID uuid.UUID, from, to time.Time, w io.Writer) error {
	if storeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if !to.After(from) {
		return pkgerrors.New(pkgerrors.CodeValidation, "range end must be after range start")
	}
	if to.Sub(from) > maxExportRange {
		return pkgerrors.New(pkgerrors.CodeValidation, "export range too long")
	}
	if _, err := s.stores.FindByID(ctx, storeID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}

	rows, err := s.repo.Range(ctx, storeID, from.UTC(), to.UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attendance range")
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prepare workbook")
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write header")
	}

	for i, r := range rows {
		in := r.ClockIn.In(s.loc)
		out, hours := "", ""
		if r.ClockOut != nil {
			out = r.ClockOut.In(s.loc).Format("15:04")
			hours = fmt.Sprintf("%.2f", r.ClockOut.Sub(r.ClockIn).Hours())
		}
		values := []any{in.Format("2006-01-02"), r.Name, r.Nickname, in.Format("15:04"), out, hours}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "address row")
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write row")
		}
	}

	if err := f.Write(w); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write workbook")
	}
	return nil
}
