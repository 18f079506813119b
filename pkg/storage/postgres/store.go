package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Store persists notifications and delivery attempts in PostgreSQL.
// It implements both notification.Store and delivery.AttemptStore so a
// single transaction-capable backend covers the whole engine.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ notification.Store    = (*Store)(nil)
	_ delivery.AttemptStore = (*Store)(nil)
)

// NewStore creates a Store over an established pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Save stores a new notification.
func (s *Store) Save(ctx context.Context, n notification.Notification) error {
	recipients, err := json.Marshal(n.Recipients)
	if err != nil {
		return fmt.Errorf("failed to encode recipients: %w", err)
	}
	var data []byte
	if n.Data != nil {
		if data, err = json.Marshal(n.Data); err != nil {
			return fmt.Errorf("failed to encode data: %w", err)
		}
	}

	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	status := n.Status
	if status == "" {
		status = notification.StatusPending
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipients, type, priority, title, body, data, scheduled_at, created_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, recipients, n.Type, n.Priority, n.Title, n.Body, data, n.ScheduledAt, createdAt, status,
	)
	return err
}

// Load retrieves a notification by ID.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	var (
		n          notification.Notification
		recipients []byte
		data       []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, recipients, type, priority, title, body, data, scheduled_at, created_at, status
		FROM notifications WHERE id = $1`, id,
	).Scan(&n.ID, &recipients, &n.Type, &n.Priority, &n.Title, &n.Body, &data, &n.ScheduledAt, &n.CreatedAt, &n.Status)
	if isNotFound(err) {
		return nil, notification.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(recipients, &n.Recipients); err != nil {
		return nil, fmt.Errorf("failed to decode recipients: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return &n, nil
}

// UpdateStatus advances the coarse status with a guarded UPDATE so
// concurrent writers cannot race past the lifecycle rules.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, from, to notification.Status) error {
	if !from.CanTransition(to) {
		return notification.ErrInvalidTransition
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET status = $1 WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: either the notification is missing or its status moved
	// underneath us.
	var current notification.Status
	err = s.pool.QueryRow(ctx, `SELECT status FROM notifications WHERE id = $1`, id).Scan(&current)
	if isNotFound(err) {
		return notification.ErrNotFound
	}
	if err != nil {
		return err
	}
	return notification.ErrInvalidTransition
}

// SaveAttempt stores a new delivery attempt.
func (s *Store) SaveAttempt(ctx context.Context, a delivery.Attempt) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := a.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	status := a.Status
	if status == "" {
		status = delivery.StatusPending
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO delivery_attempts
			(id, notification_id, channel, provider, provider_message_id, attempt_number,
			 status, cost, currency, segments, error_code, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.NotificationID, a.Channel, a.Provider, a.ProviderMessageID, a.AttemptNumber,
		status, a.Cost, a.Currency, a.Segments, a.ErrorCode, a.ErrorMessage, createdAt, updatedAt,
	)
	if isDuplicateKey(err) {
		return delivery.ErrDuplicateAttempt
	}
	return err
}

const attemptColumns = `
	id, notification_id, channel, provider, provider_message_id, attempt_number,
	status, cost, currency, segments, error_code, error_message, created_at, updated_at`

// GetAttempt retrieves an attempt with its event history.
func (s *Store) GetAttempt(ctx context.Context, id uuid.UUID) (*delivery.Attempt, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+attemptColumns+` FROM delivery_attempts WHERE id = $1`, id)
	a, err := scanAttempt(row)
	if isNotFound(err) {
		return nil, delivery.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Events, err = s.loadEvents(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// ByProviderMessageID resolves an attempt from the provider's message
// identifier. Providers guarantee uniqueness within their namespace.
func (s *Store) ByProviderMessageID(ctx context.Context, providerMessageID string) (*delivery.Attempt, error) {
	if providerMessageID == "" {
		return nil, delivery.ErrAttemptNotFound
	}

	row := s.pool.QueryRow(ctx,
		`SELECT`+attemptColumns+` FROM delivery_attempts WHERE provider_message_id = $1 ORDER BY created_at DESC LIMIT 1`,
		providerMessageID,
	)
	a, err := scanAttempt(row)
	if isNotFound(err) {
		return nil, delivery.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Events, err = s.loadEvents(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByNotification returns all attempts for a notification, ordered
// by creation time.
func (s *Store) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]delivery.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+attemptColumns+` FROM delivery_attempts WHERE notification_id = $1 ORDER BY created_at, attempt_number`,
		notificationID,
	)
	if err != nil {
		return nil, err
	}
	attempts, err := collectAttempts(rows)
	if err != nil {
		return nil, err
	}
	for i := range attempts {
		if attempts[i].Events, err = s.loadEvents(ctx, attempts[i].ID); err != nil {
			return nil, err
		}
	}
	return attempts, nil
}

// ListUnresolved returns attempts still awaiting a final provider
// verdict, oldest first.
func (s *Store) ListUnresolved(ctx context.Context, limit int) ([]delivery.Attempt, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT`+attemptColumns+` FROM delivery_attempts
		 WHERE status IN ($1, $2, $3) ORDER BY created_at ASC LIMIT $4`,
		delivery.StatusPending, delivery.StatusSent, delivery.StatusUnknown, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

// NextAttemptNumber returns the next strictly increasing attempt
// number for the (notification, channel) pair.
func (s *Store) NextAttemptNumber(ctx context.Context, notificationID uuid.UUID, channel notification.Channel) (int, error) {
	var next int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt_number), 0) + 1 FROM delivery_attempts WHERE notification_id = $1 AND channel = $2`,
		notificationID, channel,
	).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// AppendEvent records an event and conditionally advances the attempt
// status in one transaction. The unique (attempt_id, raw, ts) key makes
// webhook redeliveries no-ops, and the row lock on the attempt keeps
// concurrent signals from regressing the status.
func (s *Store) AppendEvent(ctx context.Context, attemptID uuid.UUID, ev delivery.Event, newStatus delivery.Status) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current delivery.Status
	err = tx.QueryRow(ctx,
		`SELECT status FROM delivery_attempts WHERE id = $1 FOR UPDATE`, attemptID,
	).Scan(&current)
	if isNotFound(err) {
		return delivery.ErrAttemptNotFound
	}
	if err != nil {
		return err
	}

	var payload []byte
	if ev.Payload != nil {
		if payload, err = json.Marshal(ev.Payload); err != nil {
			return fmt.Errorf("failed to encode event payload: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO delivery_events (attempt_id, raw, status, ts, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (attempt_id, raw, ts) DO NOTHING`,
		attemptID, ev.Raw, ev.Status, ev.Timestamp, payload,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Identical signal already recorded.
		return tx.Commit(ctx)
	}

	if current.Advances(newStatus) {
		if _, err := tx.Exec(ctx,
			`UPDATE delivery_attempts SET status = $1, updated_at = now() WHERE id = $2`,
			newStatus, attemptID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) loadEvents(ctx context.Context, attemptID uuid.UUID) ([]delivery.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT raw, status, ts, payload FROM delivery_events WHERE attempt_id = $1 ORDER BY ts, id`,
		attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []delivery.Event
	for rows.Next() {
		var (
			ev      delivery.Event
			payload []byte
		)
		if err := rows.Scan(&ev.Raw, &ev.Status, &ev.Timestamp, &payload); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ev.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode event payload: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanAttempt(row pgx.Row) (*delivery.Attempt, error) {
	var a delivery.Attempt
	err := row.Scan(
		&a.ID, &a.NotificationID, &a.Channel, &a.Provider, &a.ProviderMessageID, &a.AttemptNumber,
		&a.Status, &a.Cost, &a.Currency, &a.Segments, &a.ErrorCode, &a.ErrorMessage, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAttempts(rows pgx.Rows) ([]delivery.Attempt, error) {
	defer rows.Close()

	var attempts []delivery.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}
