package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/airbussard/jvc/internal/application"
	"github.com/airbussard/jvc/internal/config"
	httptransport "github.com/airbussard/jvc/internal/http"
	"github.com/airbussard/jvc/internal/logging"
	"github.com/airbussard/jvc/internal/persistence/sqlite"
	"github.com/airbussard/jvc/internal/scheduler"
	"github.com/airbussard/jvc/internal/storage"
)

// systemPrincipal runs administrative CLI commands.
var systemPrincipal = application.Principal{MemberID: "system", Role: application.RoleAdmin}

// runtime holds the opened database and the services built on it.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	storage *sqlite.Storage
	now     func() time.Time

	members     *application.MemberService
	units       *application.OrganizationUnitService
	events      *application.EventService
	absences    *application.AbsenceService
	attendances *application.AttendanceService
	timeline    *application.TimelineService
	exemptions  *application.ExemptionReportService
}

// openRuntime loads the configuration, opens and migrates the database and
// wires the application services.
func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	db, err := sqlite.OpenWithConfig(sqlite.ConfigFor(cfg.SQLiteDSN), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, storage: db, now: time.Now}
	rt.wire()
	return rt, nil
}

func (rt *runtime) wire() {
	stores := storage.FromSQLite(rt.storage)
	ids := uuid.NewString

	rt.members = application.NewMemberService(stores.Members, stores.OrganizationUnits, ids, rt.now)
	rt.units = application.NewOrganizationUnitServiceWithLogger(stores.OrganizationUnits, ids, rt.now, rt.logger)
	rt.events = application.NewEventServiceWithLogger(stores.Events, ids, rt.now, rt.logger)
	rt.absences = application.NewAbsenceServiceWithLogger(stores.Absences, stores.Members, ids, rt.now, rt.logger)
	rt.attendances = application.NewAttendanceServiceWithLogger(stores.Attendances, stores.Events, stores.Members, ids, rt.now, rt.logger)
	rt.timeline = application.NewTimelineServiceWithLogger(stores.Events, stores.Absences, stores.Attendances, stores.Members, rt.cfg.Location, rt.logger)
	rt.exemptions = application.NewExemptionReportServiceWithLogger(stores.Attendances, stores.Events, stores.Members, stores.OrganizationUnits, rt.now, rt.cfg.Location, rt.logger)
}

func (rt *runtime) Close() {
	if err := rt.storage.Close(); err != nil {
		rt.logger.Error("failed to close storage", "error", err)
	}
}

func (rt *runtime) router() http.Handler {
	loc := rt.cfg.Location
	return httptransport.NewRouter(httptransport.RouterConfig{
		Timeline:          httptransport.NewTimelineHandler(rt.timeline, loc, rt.logger),
		Attendances:       httptransport.NewAttendanceHandler(rt.attendances, rt.logger),
		Events:            httptransport.NewEventHandler(rt.events, loc, rt.logger),
		Members:           httptransport.NewMemberHandler(rt.members, rt.logger),
		OrganizationUnits: httptransport.NewOrganizationUnitHandler(rt.units, rt.logger),
		Absences:          httptransport.NewAbsenceHandler(rt.absences, rt.logger),
		Exemptions:        httptransport.NewExemptionHandler(rt.exemptions, rt.logger),
		Logger:            rt.logger,
	})
}

func (rt *runtime) reportJob(dir string) *scheduler.ReportJob {
	return scheduler.NewReportJob(rt.exemptions, rt.units, dir, rt.now, rt.cfg.Location, rt.logger)
}
