package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

// MembersRepository handles member persistence.
type MembersRepository struct {
	db Querier
}

// NewMembersRepository creates a new members repository.
func NewMembersRepository(db Querier) *MembersRepository {
	return &MembersRepository{db: db}
}

// Get retrieves a member by Telegram ID.
func (r *MembersRepository) Get(ctx context.Context, id int64) (*domain.Member, error) {
	query := `
		SELECT id, username, first_name, full_name, phone, role, payment_status,
		       state, last_transition_at, created_at, updated_at
		FROM members
		WHERE id = $1
	`
	m := &domain.Member{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Username, &m.FirstName, &m.FullName, &m.Phone,
		&m.Role, &m.PaymentStatus, &m.State,
		&m.LastTransitionAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Save inserts a member or updates the existing record.
func (r *MembersRepository) Save(ctx context.Context, m *domain.Member) error {
	query := `
		INSERT INTO members (id, username, first_name, full_name, phone, role,
		                     payment_status, state, last_transition_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			full_name = EXCLUDED.full_name,
			phone = EXCLUDED.phone,
			role = EXCLUDED.role,
			payment_status = EXCLUDED.payment_status,
			state = EXCLUDED.state,
			last_transition_at = EXCLUDED.last_transition_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Username, m.FirstName, m.FullName, m.Phone, m.Role,
		m.PaymentStatus, m.State, m.LastTransitionAt, m.CreatedAt, time.Now(),
	)
	return err
}

// Update updates a member record that must already exist.
func (r *MembersRepository) Update(ctx context.Context, m *domain.Member) error {
	query := `
		UPDATE members
		SET username = $2, first_name = $3, full_name = $4, phone = $5, role = $6,
		    payment_status = $7, state = $8, last_transition_at = $9, updated_at = $10
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		m.ID, m.Username, m.FirstName, m.FullName, m.Phone, m.Role,
		m.PaymentStatus, m.State, m.LastTransitionAt, time.Now(),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

// ListByRole retrieves all members with a given role.
func (r *MembersRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.Member, error) {
	query := `
		SELECT id, username, first_name, full_name, phone, role, payment_status,
		       state, last_transition_at, created_at, updated_at
		FROM members
		WHERE role = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m := &domain.Member{}
		if err := rows.Scan(
			&m.ID, &m.Username, &m.FirstName, &m.FullName, &m.Phone,
			&m.Role, &m.PaymentStatus, &m.State,
			&m.LastTransitionAt, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListPendingPayments retrieves drivers whose payment awaits review.
func (r *MembersRepository) ListPendingPayments(ctx context.Context) ([]*domain.Member, error) {
	query := `
		SELECT id, username, first_name, full_name, phone, role, payment_status,
		       state, last_transition_at, created_at, updated_at
		FROM members
		WHERE role = $1 AND payment_status = $2
		ORDER BY updated_at
	`
	rows, err := r.db.QueryContext(ctx, query, domain.RoleDriver, domain.PaymentStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m := &domain.Member{}
		if err := rows.Scan(
			&m.ID, &m.Username, &m.FirstName, &m.FullName, &m.Phone,
			&m.Role, &m.PaymentStatus, &m.State,
			&m.LastTransitionAt, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Stats counts members by role and payment status for the operator panel.
func (r *MembersRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE role = 'rider'),
			COUNT(*) FILTER (WHERE role = 'driver'),
			COUNT(*) FILTER (WHERE role = 'driver' AND payment_status = 'approved'),
			COUNT(*) FILTER (WHERE role = 'driver' AND payment_status = 'pending')
		FROM members
	`
	stats := &domain.Stats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Riders, &stats.Drivers, &stats.ApprovedPayments, &stats.PendingPayments,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
