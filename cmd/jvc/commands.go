package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/airbussard/jvc/internal/application"
	"github.com/airbussard/jvc/internal/calendarexport"
	"github.com/airbussard/jvc/internal/exemption"
	httptransport "github.com/airbussard/jvc/internal/http"
	"github.com/airbussard/jvc/internal/scheduler"
	"github.com/airbussard/jvc/internal/timeline"
)

const dateLayout = "2006-01-02"

func newApp() *cli.App {
	return &cli.App{
		Name:  "jvc",
		Usage: "Terminkalender mit Anwesenheiten und Freistellungsberichten.",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			reportCommand(),
			exportICSCommand(),
			deleteUnitCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API and the scheduled report export.",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.cfg.ReportsEnabled() {
				runner, err := scheduler.NewRunner(rt.cfg.ReportCron, rt.reportJob(rt.cfg.ReportDir), rt.cfg.Location, rt.logger)
				if err != nil {
					return err
				}
				runner.Start()
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					runner.Stop(stopCtx)
				}()
			}

			server := &http.Server{
				Addr:              rt.cfg.Addr(),
				Handler:           rt.router(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					rt.logger.Error("failed to shutdown server", "error", err)
				}
			}()

			rt.logger.Info("jvc API listening", "addr", server.Addr, "timezone", rt.cfg.Timezone)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server encountered error: %w", err)
			}
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and print the schema version.",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c.Context)
			if err != nil {
				return err
			}
			defer rt.Close()

			status, err := rt.storage.MigrationStatus(c.Context)
			if err != nil {
				return fmt.Errorf("failed to read migration status: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "version %s, %d applied, %d pending\n",
				status.CurrentVersion, len(status.AppliedMigrations), status.PendingCount)
			return nil
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Write exemption reports as CSV.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "month", Usage: "Report month as YYYY-MM. Defaults to the previous month."},
			&cli.StringFlag{Name: "unit", Usage: "Write a single report for \"all\", \"none\" or a unit id to stdout."},
			&cli.StringFlag{Name: "dir", Usage: "Output directory for per-unit files. Defaults to the configured report directory."},
		},
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c.Context)
			if err != nil {
				return err
			}
			defer rt.Close()

			month := exemption.MonthOf(rt.now(), rt.cfg.Location).Previous()
			if value := c.String("month"); value != "" {
				if month, err = exemption.ParseMonth(value); err != nil {
					return fmt.Errorf("invalid --month %q: %w", value, err)
				}
			}

			if unit := c.String("unit"); unit != "" {
				doc, err := rt.exemptions.BuildReport(c.Context, application.ReportParams{
					Principal: systemPrincipal,
					Unit:      unit,
					Month:     month.String(),
				})
				if err != nil {
					return err
				}
				return exemption.WriteCSV(c.App.Writer, doc)
			}

			dir := c.String("dir")
			if dir == "" {
				dir = rt.cfg.ReportDir
			}
			result, err := rt.reportJob(dir).RunMonth(c.Context, month)
			fmt.Fprintf(c.App.Writer, "%s: %d written, %d skipped\n", result.Month, len(result.Written), len(result.Skipped))
			return err
		},
	}
}

func exportICSCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-ics",
		Usage: "Export events starting in a date range as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "First day as YYYY-MM-DD. Defaults to today."},
			&cli.StringFlag{Name: "to", Usage: "Last day as YYYY-MM-DD. Defaults to 30 days after --from."},
			&cli.StringFlag{Name: "out", Usage: "Output file. Defaults to stdout."},
		},
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c.Context)
			if err != nil {
				return err
			}
			defer rt.Close()

			loc := rt.cfg.Location
			now := rt.now().In(loc)
			from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
			if value := c.String("from"); value != "" {
				if from, err = time.ParseInLocation(dateLayout, value, loc); err != nil {
					return fmt.Errorf("invalid --from %q: %w", value, err)
				}
			}
			to := from.AddDate(0, 0, 30)
			if value := c.String("to"); value != "" {
				if to, err = time.ParseInLocation(dateLayout, value, loc); err != nil {
					return fmt.Errorf("invalid --to %q: %w", value, err)
				}
			}
			if to.Before(from) {
				return fmt.Errorf("--to must not be before --from")
			}
			end := to.AddDate(0, 0, 1)

			events, err := rt.events.List(c.Context, application.ListEventsParams{Principal: systemPrincipal, From: &from, To: &end})
			if err != nil {
				return err
			}
			items := make([]timeline.Item, 0, len(events))
			for _, event := range events {
				if event.Start.Before(from) || !event.Start.Before(end) {
					continue
				}
				items = append(items, timeline.Item{
					ID:          event.ID,
					SourceID:    event.ID,
					Category:    timeline.CategoryEvent,
					Title:       event.Title,
					Description: event.Description,
					Location:    event.Location,
					Start:       event.Start,
					End:         event.End,
					AllDay:      event.AllDay,
					Color:       event.Color,
				})
			}

			var w io.Writer = c.App.Writer
			if path := c.String("out"); path != "" {
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return err
				}
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			rt.logger.Info("exporting calendar", "from", from.Format(dateLayout), "to", to.Format(dateLayout), "events", len(items))
			return calendarexport.Encode(w, items, calendarexport.Options{
				Name:     httptransport.CalendarName,
				Location: loc,
				Stamp:    rt.now(),
			})
		},
	}
}

func deleteUnitCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-unit",
		Usage:     "Delete an organization unit and detach its members.",
		ArgsUsage: "<unit-id>",
		Action: func(c *cli.Context) error {
			unitID := c.Args().First()
			if unitID == "" {
				return fmt.Errorf("delete-unit requires a unit id")
			}

			rt, err := openRuntime(c.Context)
			if err != nil {
				return err
			}
			defer rt.Close()

			detached, err := rt.units.Delete(c.Context, systemPrincipal, unitID)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "deleted %s, %d members detached\n", unitID, detached)
			return nil
		},
	}
}
