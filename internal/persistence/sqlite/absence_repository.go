package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/airbussard/jvc/internal/persistence"
)

// AbsenceRepository implements persistence.AbsenceRepository using SQLite.
type AbsenceRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAbsenceRepository creates a new SQLite absence repository
func NewAbsenceRepository(pool *ConnectionPool) *AbsenceRepository {
	return &AbsenceRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const (
	vacationColumns       = `id, member_id, start_date, end_date, note, created_at`
	unavailableDayColumns = `id, member_id, date, reason, created_at`
)

func (r *AbsenceRepository) CreateVacation(ctx context.Context, vacation persistence.Vacation) error {
	if vacation.ID == "" || vacation.EndDate.Before(vacation.StartDate) {
		return persistence.ErrConstraintViolation
	}
	query := `INSERT INTO vacations (` + vacationColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.helper.Exec(ctx, query,
		vacation.ID,
		vacation.MemberID,
		formatDate(vacation.StartDate),
		formatDate(vacation.EndDate),
		nullableString(vacation.Note),
		formatTimestamp(vacation.CreatedAt),
	); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func (r *AbsenceRepository) GetVacation(ctx context.Context, id string) (persistence.Vacation, error) {
	if id == "" {
		return persistence.Vacation{}, persistence.ErrNotFound
	}
	query := `SELECT ` + vacationColumns + ` FROM vacations WHERE id = ?`
	vacation, err := scanVacation(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Vacation{}, r.mapper.MapError(err)
	}
	return vacation, nil
}

// ListVacations returns vacations overlapping [From, To] ordered by start date.
func (r *AbsenceRepository) ListVacations(ctx context.Context, filter persistence.AbsenceFilter) ([]persistence.Vacation, error) {
	query, args := buildAbsenceQuery(`SELECT `+vacationColumns+` FROM vacations`, "start_date", "end_date", filter)
	rows, err := r.helper.Query(ctx, query+" ORDER BY start_date ASC, id ASC", args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var vacations []persistence.Vacation
	for rows.Next() {
		vacation, err := scanVacation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		vacations = append(vacations, vacation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return vacations, nil
}

func (r *AbsenceRepository) DeleteVacation(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "vacations", id)
}

func (r *AbsenceRepository) CreateUnavailableDay(ctx context.Context, day persistence.UnavailableDay) error {
	if day.ID == "" {
		return persistence.ErrConstraintViolation
	}
	query := `INSERT INTO unavailable_days (` + unavailableDayColumns + `) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.helper.Exec(ctx, query,
		day.ID,
		day.MemberID,
		formatDate(day.Date),
		nullableString(day.Reason),
		formatTimestamp(day.CreatedAt),
	); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func (r *AbsenceRepository) GetUnavailableDay(ctx context.Context, id string) (persistence.UnavailableDay, error) {
	if id == "" {
		return persistence.UnavailableDay{}, persistence.ErrNotFound
	}
	query := `SELECT ` + unavailableDayColumns + ` FROM unavailable_days WHERE id = ?`
	day, err := scanUnavailableDay(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.UnavailableDay{}, r.mapper.MapError(err)
	}
	return day, nil
}

// ListUnavailableDays returns unavailable days within [From, To] ordered by date.
func (r *AbsenceRepository) ListUnavailableDays(ctx context.Context, filter persistence.AbsenceFilter) ([]persistence.UnavailableDay, error) {
	query, args := buildAbsenceQuery(`SELECT `+unavailableDayColumns+` FROM unavailable_days`, "date", "date", filter)
	rows, err := r.helper.Query(ctx, query+" ORDER BY date ASC, id ASC", args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var days []persistence.UnavailableDay
	for rows.Next() {
		day, err := scanUnavailableDay(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return days, nil
}

func (r *AbsenceRepository) DeleteUnavailableDay(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "unavailable_days", id)
}

func (r *AbsenceRepository) deleteByID(ctx context.Context, table, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// buildAbsenceQuery keeps rows whose [startColumn, endColumn] range touches
// the inclusive filter range.
func buildAbsenceQuery(base, startColumn, endColumn string, filter persistence.AbsenceFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if filter.MemberID != nil {
		conditions = append(conditions, "member_id = ?")
		args = append(args, *filter.MemberID)
	}
	if filter.From != nil {
		conditions = append(conditions, endColumn+" >= ?")
		args = append(args, formatDate(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, startColumn+" <= ?")
		args = append(args, formatDate(*filter.To))
	}
	if len(conditions) > 0 {
		base += " WHERE " + strings.Join(conditions, " AND ")
	}
	return base, args
}

func scanVacation(row rowScanner) (persistence.Vacation, error) {
	var (
		vacation                       persistence.Vacation
		startStr, endStr, createdAtStr string
		note                           sql.NullString
	)
	if err := row.Scan(&vacation.ID, &vacation.MemberID, &startStr, &endStr, &note, &createdAtStr); err != nil {
		return persistence.Vacation{}, err
	}
	vacation.Note = stringPointer(note)

	var err error
	if vacation.StartDate, err = parseDate(startStr); err != nil {
		return persistence.Vacation{}, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if vacation.EndDate, err = parseDate(endStr); err != nil {
		return persistence.Vacation{}, fmt.Errorf("failed to parse end_date: %w", err)
	}
	if vacation.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return persistence.Vacation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return vacation, nil
}

func scanUnavailableDay(row rowScanner) (persistence.UnavailableDay, error) {
	var (
		day                   persistence.UnavailableDay
		dateStr, createdAtStr string
		reason                sql.NullString
	)
	if err := row.Scan(&day.ID, &day.MemberID, &dateStr, &reason, &createdAtStr); err != nil {
		return persistence.UnavailableDay{}, err
	}
	day.Reason = stringPointer(reason)

	var err error
	if day.Date, err = parseDate(dateStr); err != nil {
		return persistence.UnavailableDay{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if day.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return persistence.UnavailableDay{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return day, nil
}
