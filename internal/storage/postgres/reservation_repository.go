package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

const (
	// maxCapacityTxAttempts ограничивает прозрачные повторы транзакции
	// при конфликтах сериализации и deadlock.
	maxCapacityTxAttempts = 3
	capacityRetryDelay    = 25 * time.Millisecond

	// reservationLockNamespace отделяет advisory-локи записи броней от
	// других локов базы (например, лока мигратора).
	reservationLockNamespace = int64(52031901)
)

type reservationRepository struct {
	db *sql.DB
}

// NewReservationRepository создаёт PostgreSQL-реализацию ReservationRepository.
//
// Атомарность check-and-reserve: запись выполняется в транзакции, которая
// первым делом берёт pg_advisory_xact_lock по календарной дате. Дневной лимит
// охватывает все рестораны, поэтому дата — минимальный ключ, сериализующий
// всех конкурирующих писателей; счётчики после лока не могут устареть до коммита.
func NewReservationRepository(store *Store) domain.ReservationRepository {
	return &reservationRepository{db: store.DB()}
}

func (r *reservationRepository) Create(res domain.Reservation, admit domain.AdmitFunc) error {
	return r.withDateLockTx(res.Date, func(ctx context.Context, tx *sql.Tx) error {
		if admit != nil {
			counts, err := countsTx(ctx, tx, res.RestaurantID, res.Date, res.ID)
			if err != nil {
				return err
			}
			if err := admit(counts); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (
				id, restaurant_id, customer_name, customer_email, customer_phone,
				reservation_date, number_of_people, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			res.ID, res.RestaurantID, res.CustomerName, res.CustomerEmail,
			res.CustomerPhone, res.Date, res.PartySize, res.CreatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrRestaurantNotFound
			}
			if isUniqueViolation(err) {
				return fmt.Errorf("reservation %s already exists", res.ID)
			}
			return fmt.Errorf("insert reservation: %w", err)
		}
		return nil
	})
}

func (r *reservationRepository) Get(id string) (domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := scanReservation(r.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, customer_name, customer_email, customer_phone,
		       reservation_date, number_of_people, created_at
		FROM reservations
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("select reservation: %w", err)
	}
	return res, nil
}

func (r *reservationRepository) List(filter domain.ReservationFilter) ([]domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, restaurant_id, customer_name, customer_email, customer_phone,
		       reservation_date, number_of_people, created_at
		FROM reservations
		WHERE 1=1
	`
	args := make([]any, 0, 2)
	if filter.RestaurantID != "" {
		args = append(args, filter.RestaurantID)
		query += fmt.Sprintf(" AND restaurant_id = $%d", len(args))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		query += fmt.Sprintf(" AND reservation_date = $%d", len(args))
	}
	query += " ORDER BY reservation_date DESC, created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]domain.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation rows: %w", err)
	}

	return reservations, nil
}

func (r *reservationRepository) Save(res domain.Reservation, admit domain.AdmitFunc) error {
	return r.withDateLockTx(res.Date, func(ctx context.Context, tx *sql.Tx) error {
		if admit != nil {
			counts, err := countsTx(ctx, tx, res.RestaurantID, res.Date, res.ID)
			if err != nil {
				return err
			}
			if err := admit(counts); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE reservations
			SET restaurant_id = $1,
			    customer_name = $2,
			    customer_email = $3,
			    customer_phone = $4,
			    reservation_date = $5,
			    number_of_people = $6
			WHERE id = $7
		`,
			res.RestaurantID, res.CustomerName, res.CustomerEmail,
			res.CustomerPhone, res.Date, res.PartySize, res.ID,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrRestaurantNotFound
			}
			return fmt.Errorf("update reservation: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return domain.ErrReservationNotFound
		}
		return nil
	})
}

func (r *reservationRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *reservationRepository) CountByRestaurantDate(restaurantID string, date time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE restaurant_id = $1 AND reservation_date = $2
	`, restaurantID, date).Scan(&count); err != nil {
		return 0, fmt.Errorf("count restaurant reservations: %w", err)
	}
	return count, nil
}

func (r *reservationRepository) CountByDate(date time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations WHERE reservation_date = $1
	`, date).Scan(&count); err != nil {
		return 0, fmt.Errorf("count daily reservations: %w", err)
	}
	return count, nil
}

// withDateLockTx выполняет fn в транзакции под advisory-локом даты,
// повторяя транзакцию при конфликтах сериализации.
func (r *reservationRepository) withDateLockTx(date time.Time, fn func(ctx context.Context, tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxCapacityTxAttempts; attempt++ {
		err := r.runDateLockTx(date, fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		lastErr = err
		time.Sleep(time.Duration(attempt) * capacityRetryDelay)
	}
	return fmt.Errorf("reservation tx failed after %d attempts: %w", maxCapacityTxAttempts, lastErr)
}

func (r *reservationRepository) runDateLockTx(date time.Time, fn func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", dateLockKey(date)); err != nil {
		return fmt.Errorf("acquire date lock: %w", err)
	}

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reservation tx: %w", err)
	}
	return nil
}

// countsTx снимает счётчики занятости даты в рамках транзакции записи,
// исключая перезаписываемую бронь.
func countsTx(ctx context.Context, tx *sql.Tx, restaurantID string, date time.Time, excludeID string) (domain.CapacityCounts, error) {
	var counts domain.CapacityCounts
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE restaurant_id = $1),
		       COUNT(*)
		FROM reservations
		WHERE reservation_date = $2
		  AND id <> $3
	`, restaurantID, date, excludeID).Scan(&counts.Restaurant, &counts.Daily)
	if err != nil {
		return domain.CapacityCounts{}, fmt.Errorf("count capacity snapshot: %w", err)
	}
	return counts, nil
}

func dateLockKey(date time.Time) int64 {
	return reservationLockNamespace<<20 + date.Unix()/86400
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var res domain.Reservation
	if err := row.Scan(
		&res.ID, &res.RestaurantID, &res.CustomerName, &res.CustomerEmail,
		&res.CustomerPhone, &res.Date, &res.PartySize, &res.CreatedAt,
	); err != nil {
		return domain.Reservation{}, err
	}
	res.Date = domain.NormalizeDate(res.Date)
	return res, nil
}

var _ domain.ReservationRepository = (*reservationRepository)(nil)
