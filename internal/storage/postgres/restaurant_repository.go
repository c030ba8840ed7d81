package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLikePattern экранирует метасимволы LIKE во вводе пользователя:
// фильтры сравнивают буквально, как и in-memory хранилище.
func escapeLikePattern(value string) string {
	return likeEscaper.Replace(value)
}

type restaurantRepository struct {
	db *sql.DB
}

// NewRestaurantRepository создаёт PostgreSQL-реализацию RestaurantRepository.
func NewRestaurantRepository(store *Store) domain.RestaurantRepository {
	return &restaurantRepository{db: store.DB()}
}

func (r *restaurantRepository) Create(restaurant domain.Restaurant) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO restaurants (
			id, name, description, address, city, photo_url, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		restaurant.ID, restaurant.Name, restaurant.Description,
		restaurant.Address, restaurant.City, restaurant.PhotoURL, restaurant.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("restaurant %s already exists", restaurant.ID)
		}
		return fmt.Errorf("insert restaurant: %w", err)
	}
	return nil
}

func (r *restaurantRepository) Get(id string) (domain.Restaurant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var restaurant domain.Restaurant
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, address, city, photo_url, created_at
		FROM restaurants
		WHERE id = $1
	`, id).Scan(
		&restaurant.ID, &restaurant.Name, &restaurant.Description,
		&restaurant.Address, &restaurant.City, &restaurant.PhotoURL, &restaurant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Restaurant{}, domain.ErrRestaurantNotFound
		}
		return domain.Restaurant{}, fmt.Errorf("select restaurant: %w", err)
	}
	return restaurant, nil
}

func (r *restaurantRepository) List(filter domain.RestaurantFilter) ([]domain.Restaurant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, name, description, address, city, photo_url, created_at
		FROM restaurants
		WHERE 1=1
	`
	args := make([]any, 0, 2)
	if filter.NamePrefix != "" {
		args = append(args, escapeLikePattern(filter.NamePrefix)+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if filter.City != "" {
		args = append(args, "%"+escapeLikePattern(filter.City)+"%")
		query += fmt.Sprintf(" AND city ILIKE $%d", len(args))
	}
	query += " ORDER BY LOWER(name), id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	defer rows.Close()

	restaurants := make([]domain.Restaurant, 0)
	for rows.Next() {
		var restaurant domain.Restaurant
		if err := rows.Scan(
			&restaurant.ID, &restaurant.Name, &restaurant.Description,
			&restaurant.Address, &restaurant.City, &restaurant.PhotoURL, &restaurant.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan restaurant row: %w", err)
		}
		restaurants = append(restaurants, restaurant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurant rows: %w", err)
	}

	return restaurants, nil
}

func (r *restaurantRepository) Save(restaurant domain.Restaurant) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE restaurants
		SET name = $1,
		    description = $2,
		    address = $3,
		    city = $4,
		    photo_url = $5
		WHERE id = $6
	`,
		restaurant.Name, restaurant.Description, restaurant.Address,
		restaurant.City, restaurant.PhotoURL, restaurant.ID,
	)
	if err != nil {
		return fmt.Errorf("update restaurant: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrRestaurantNotFound
	}
	return nil
}

// Delete удаляет ресторан; его брони снимает каскад внешнего ключа.
// Количество каскадно удалённых броней считается в той же транзакции.
func (r *restaurantRepository) Delete(id string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var reservations int
	if err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations WHERE restaurant_id = $1
	`, id).Scan(&reservations); err != nil {
		return 0, fmt.Errorf("count cascading reservations: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM restaurants WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete restaurant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = domain.ErrRestaurantNotFound
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete restaurant: %w", err)
	}
	return reservations, nil
}

var _ domain.RestaurantRepository = (*restaurantRepository)(nil)
