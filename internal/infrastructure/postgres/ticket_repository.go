package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/evidence"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/ticket"
)

// TicketRepository implements ticket.Repository on postgres.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `
	id, customer_ref, device_ref, status, priority, symptom, technician_ref,
	otp_hash, otp_issued_at, completion_hash, completion_issued_at,
	evidence, resolution_notes, cancelled_by, cancel_reason,
	created_at, updated_at, assigned_at, resolved_at, archived_at, resolution_duration_ms`

func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	ev, err := json.Marshal(t.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`, t.ID, t.CustomerRef, t.DeviceRef, t.Status, t.Priority, t.Symptom, t.AssignedTechnicianRef,
		t.OTPHash, t.OTPIssuedAt, t.CompletionHash, t.CompletionIssuedAt,
		ev, t.ResolutionNotes, t.CancelledBy, t.CancelReason,
		t.CreatedAt, t.UpdatedAt, t.AssignedAt, t.ResolvedAt, t.ArchivedAt, t.ResolutionDuration.Milliseconds())
	return err
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*ticket.Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
	return scanTicket(row)
}

func (r *TicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	ev, err := json.Marshal(t.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE tickets SET
			status=$2, priority=$3, technician_ref=$4,
			otp_hash=$5, otp_issued_at=$6, completion_hash=$7, completion_issued_at=$8,
			evidence=$9, resolution_notes=$10, cancelled_by=$11, cancel_reason=$12,
			updated_at=$13, assigned_at=$14, resolved_at=$15, archived_at=$16, resolution_duration_ms=$17
		WHERE id=$1
	`, t.ID, t.Status, t.Priority, t.AssignedTechnicianRef,
		t.OTPHash, t.OTPIssuedAt, t.CompletionHash, t.CompletionIssuedAt,
		ev, t.ResolutionNotes, t.CancelledBy, t.CancelReason,
		t.UpdatedAt, t.AssignedAt, t.ResolvedAt, t.ArchivedAt, t.ResolutionDuration.Milliseconds())
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ticket.ErrNotFound
	}
	return nil
}

func (r *TicketRepository) List(ctx context.Context, filter ticket.Filter) ([]*ticket.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE 1=1`
	args := make([]any, 0, 3)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if filter.CustomerRef != nil {
		args = append(args, *filter.CustomerRef)
		query += fmt.Sprintf(" AND customer_ref=$%d", len(args))
	}
	if filter.TechnicianRef != nil {
		args = append(args, *filter.TechnicianRef)
		query += fmt.Sprintf(" AND technician_ref=$%d", len(args))
	}
	query += " ORDER BY created_at ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*ticket.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TicketRepository) CountActiveByTechnician(ctx context.Context, technicianRef string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tickets
		WHERE technician_ref=$1 AND status NOT IN ($2, $3)
	`, technicianRef, ticket.StatusResolved, ticket.StatusCancelled).Scan(&count)
	return count, err
}

func scanTicket(row pgx.Row) (*ticket.Ticket, error) {
	var t ticket.Ticket
	var ev []byte
	var durationMs int64
	err := row.Scan(
		&t.ID, &t.CustomerRef, &t.DeviceRef, &t.Status, &t.Priority, &t.Symptom, &t.AssignedTechnicianRef,
		&t.OTPHash, &t.OTPIssuedAt, &t.CompletionHash, &t.CompletionIssuedAt,
		&ev, &t.ResolutionNotes, &t.CancelledBy, &t.CancelReason,
		&t.CreatedAt, &t.UpdatedAt, &t.AssignedAt, &t.ResolvedAt, &t.ArchivedAt, &durationMs,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(ev) > 0 {
		var units []evidence.Unit
		if err := json.Unmarshal(ev, &units); err != nil {
			return nil, fmt.Errorf("unmarshal evidence: %w", err)
		}
		t.Evidence = units
	}
	t.ResolutionDuration = time.Duration(durationMs) * time.Millisecond
	return &t, nil
}
