package lead

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/zulandar/leadyard/internal/models"
)

// ExportHeader is the first row written by ExportCSV.
var ExportHeader = []string{"ID", "Name", "Phone", "Service", "Description", "Status", "Handle", "Created", "Contacted"}

// Lister is the part of Store needed for export.
type Lister interface {
	ListAll(ctx context.Context) ([]models.Lead, error)
}

// ExportCSV writes every lead, newest first, to w. Created times are
// rendered in loc (UTC when nil). It returns the number of lead rows.
func ExportCSV(ctx context.Context, s Lister, w io.Writer, loc *time.Location) (int, error) {
	if loc == nil {
		loc = time.UTC
	}
	leads, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, fmt.Errorf("lead: export: %w", err)
	}
	for _, l := range leads {
		handle := l.IdentityHandle
		if handle == "" {
			handle = "N/A"
		}
		contacted := "No"
		if l.Contacted {
			contacted = "Yes"
		}
		row := []string{
			strconv.FormatUint(uint64(l.ID), 10),
			l.Name,
			l.Phone,
			l.Service,
			l.Description,
			string(l.Status),
			handle,
			l.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
			contacted,
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("lead: export: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("lead: export: %w", err)
	}
	return len(leads), nil
}
