package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"todoweb/domain"
)

const itemColumns = "id, user_id, name, notes, priority, due, done, created_at"

// CreateItem inserts a new item owned by ownerID and returns it.
func (s *Storage) CreateItem(ctx context.Context, ownerID string, fields domain.ItemFields) (domain.Item, error) {
	item := domain.Item{
		ID:       uuid.NewString(),
		Name:     fields.Name,
		Notes:    fields.Notes,
		Created:  time.Now().UTC(),
		Priority: fields.Priority,
		Due:      fields.Due,
		Done:     fields.Done,
		OwnerID:  ownerID,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO items (id, user_id, name, notes, priority, due, done, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, ownerID, item.Name, item.Notes, int(item.Priority), dueValue(item.Due), item.Done, item.Created.Format(timestampFormat))
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// GetItem loads a single item scoped to ownerID. A foreign-owned id reads
// the same as a missing one.
func (s *Storage) GetItem(ctx context.Context, ownerID, id string) (domain.Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ? AND user_id = ?", id, ownerID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, domain.ErrNotFound
	}
	return item, err
}

// UpdateItem replaces the mutable fields of an item scoped to ownerID.
// Ownership and creation date are untouchable by construction: they are not
// part of the statement.
func (s *Storage) UpdateItem(ctx context.Context, ownerID, id string, fields domain.ItemFields) (domain.Item, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET name = ?, notes = ?, priority = ?, due = ?, done = ? WHERE id = ? AND user_id = ?",
		fields.Name, fields.Notes, int(fields.Priority), dueValue(fields.Due), fields.Done, id, ownerID)
	if err != nil {
		return domain.Item{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Item{}, err
	}
	if affected == 0 {
		return domain.Item{}, domain.ErrNotFound
	}
	return s.GetItem(ctx, ownerID, id)
}

// DeleteItem removes an item scoped to ownerID. Deleting a missing or
// foreign-owned id reports domain.ErrNotFound; the caller decides whether
// that matters.
func (s *Storage) DeleteItem(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListItems returns all items owned by ownerID in the requested order.
func (s *Storage) ListItems(ctx context.Context, ownerID string, order domain.Order) ([]domain.Item, error) {
	var clause string
	switch order {
	case domain.OrderPriority:
		clause = "priority ASC, created_at DESC"
	case domain.OrderDue:
		clause = "due DESC, created_at DESC"
	default:
		clause = "created_at DESC"
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE user_id = ? ORDER BY "+clause, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		item     domain.Item
		priority int
		due      sql.NullString
		created  string
	)
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Notes, &priority, &due, &item.Done, &created); err != nil {
		return domain.Item{}, err
	}
	item.Priority = domain.Priority(priority)

	createdAt, err := time.Parse(timestampFormat, created)
	if err != nil {
		return domain.Item{}, fmt.Errorf("parse created_at: %w", err)
	}
	item.Created = createdAt

	if due.Valid {
		d, err := time.Parse(dateFormat, due.String)
		if err != nil {
			return domain.Item{}, fmt.Errorf("parse due: %w", err)
		}
		item.Due = &d
	}
	return item, nil
}

func dueValue(due *time.Time) any {
	if due == nil {
		return nil
	}
	return due.Format(dateFormat)
}
