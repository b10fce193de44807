// Package scheduler runs the periodic exemption export.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/airbussard/jvc/internal/application"
	"github.com/airbussard/jvc/internal/exemption"
)

// ReportBuilder assembles exemption reports.
type ReportBuilder interface {
	BuildReport(ctx context.Context, params application.ReportParams) (application.ExemptionReport, error)
}

// UnitLister lists organization units.
type UnitLister interface {
	List(ctx context.Context, principal application.Principal) ([]application.OrganizationUnit, error)
}

// systemPrincipal is the identity the export acts as.
var systemPrincipal = application.Principal{MemberID: "system", Role: application.RoleAdmin}

// ReportJob writes one CSV exemption report per organization unit for the
// month before the current one.
type ReportJob struct {
	reports  ReportBuilder
	units    UnitLister
	dir      string
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
}

// NewReportJob constructs the export job. Files are written into dir.
func NewReportJob(reports ReportBuilder, units UnitLister, dir string, now func() time.Time, location *time.Location, logger *slog.Logger) *ReportJob {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportJob{
		reports:  reports,
		units:    units,
		dir:      dir,
		now:      now,
		location: location,
		logger:   logger.With("component", "ReportJob"),
	}
}

// Result summarizes one run.
type Result struct {
	Month   exemption.Month
	Written []string
	Skipped []string
}

// Run exports the reports of the previous month. Units without exemptions
// are skipped. Failures of single units do not stop the run; they are
// joined into the returned error.
func (j *ReportJob) Run(ctx context.Context) (Result, error) {
	return j.RunMonth(ctx, exemption.MonthOf(j.now(), j.location).Previous())
}

// RunMonth exports the reports of month.
func (j *ReportJob) RunMonth(ctx context.Context, month exemption.Month) (Result, error) {
	result := Result{Month: month}
	logger := j.logger.With("month", month.String())

	units, err := j.units.List(ctx, systemPrincipal)
	if err != nil {
		return result, fmt.Errorf("list organization units: %w", err)
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return result, fmt.Errorf("create report directory: %w", err)
	}

	var errs []error
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		doc, err := j.reports.BuildReport(ctx, application.ReportParams{
			Principal: systemPrincipal,
			Unit:      unit.ID,
			Month:     month.String(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("unit %s: %w", unit.ID, err))
			continue
		}
		if doc.IsEmpty() {
			result.Skipped = append(result.Skipped, unit.ID)
			continue
		}

		path := filepath.Join(j.dir, doc.CSVFilename())
		if err := writeFileAtomic(path, doc); err != nil {
			errs = append(errs, fmt.Errorf("unit %s: %w", unit.ID, err))
			continue
		}
		result.Written = append(result.Written, path)
	}

	err = errors.Join(errs...)
	if err != nil {
		logger.ErrorContext(ctx, "exemption export finished with errors", "written", len(result.Written), "skipped", len(result.Skipped), "error", err)
	} else {
		logger.InfoContext(ctx, "exemption export finished", "written", len(result.Written), "skipped", len(result.Skipped))
	}
	return result, err
}

func writeFileAtomic(path string, doc exemption.Document) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jvc-report-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := exemption.WriteCSV(tmp, doc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
