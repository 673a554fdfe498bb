package storage

import (
	"context"
	"database/sql"
	"fmt"

	"moneta/internal/core"
)

const entryColumns = `id, user_id, kind, description, amount_cents, entry_date, category_id, payment_method_id, notes`

// SumByKind implements store.LedgerStore.
func (r *Repository) SumByKind(ctx context.Context, userID string, dr core.DateRange) (core.KindTotals, error) {
	rows, err := r.query(ctx, `
		SELECT kind, COALESCE(SUM(amount_cents), 0) FROM ledger_entries
		WHERE user_id = ? AND entry_date >= ? AND entry_date <= ?
		GROUP BY kind`, userID, dr.From.String(), dr.To.String())
	if err != nil {
		return core.KindTotals{}, fmt.Errorf("sum by kind: %w", err)
	}
	defer rows.Close()

	var totals core.KindTotals
	for rows.Next() {
		var (
			kind  string
			cents int64
		)
		if err := rows.Scan(&kind, &cents); err != nil {
			return core.KindTotals{}, fmt.Errorf("scan kind total: %w", err)
		}
		switch core.Kind(kind) {
		case core.Income:
			totals.Income = core.Money{Cents: cents}
		case core.Expense:
			totals.Expense = core.Money{Cents: cents}
		}
	}
	return totals, rows.Err()
}

// GroupByCategory implements store.LedgerStore.
func (r *Repository) GroupByCategory(ctx context.Context, userID string, dr core.DateRange, kind core.Kind) ([]core.CategoryTotal, error) {
	rows, err := r.query(ctx, `
		SELECT c.id, c.name, c.color, SUM(e.amount_cents) AS total
		FROM ledger_entries e
		LEFT JOIN categories c ON c.id = e.category_id AND c.user_id = e.user_id
		WHERE e.user_id = ? AND e.kind = ? AND e.entry_date >= ? AND e.entry_date <= ?
		GROUP BY c.id, c.name, c.color
		ORDER BY total DESC, c.name`, userID, string(kind), dr.From.String(), dr.To.String())
	if err != nil {
		return nil, fmt.Errorf("group by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var (
			id, name, color sql.NullString
			ct              core.CategoryTotal
		)
		if err := rows.Scan(&id, &name, &color, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ct.ID, ct.Name, ct.Color = id.String, name.String, color.String
		if !name.Valid {
			ct.Name = core.Uncategorized
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// GroupByDescription implements store.LedgerStore.
func (r *Repository) GroupByDescription(ctx context.Context, userID string, dr core.DateRange, kind core.Kind) ([]core.CategoryTotal, error) {
	rows, err := r.query(ctx, `
		SELECT description, SUM(amount_cents) AS total FROM ledger_entries
		WHERE user_id = ? AND kind = ? AND entry_date >= ? AND entry_date <= ?
		GROUP BY description
		ORDER BY total DESC, description`, userID, string(kind), dr.From.String(), dr.To.String())
	if err != nil {
		return nil, fmt.Errorf("group by description: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Name, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan description total: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// DailyTotals implements store.LedgerStore.
func (r *Repository) DailyTotals(ctx context.Context, userID string, dr core.DateRange, kind core.Kind) ([]core.DayTotal, error) {
	rows, err := r.query(ctx, `
		SELECT entry_date, SUM(amount_cents) FROM ledger_entries
		WHERE user_id = ? AND kind = ? AND entry_date >= ? AND entry_date <= ?
		GROUP BY entry_date
		ORDER BY entry_date`, userID, string(kind), dr.From.String(), dr.To.String())
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	var out []core.DayTotal
	for rows.Next() {
		var (
			day   string
			cents int64
		)
		if err := rows.Scan(&day, &cents); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		d, err := parseStoredDate(day)
		if err != nil {
			return nil, err
		}
		out = append(out, core.DayTotal{Day: d.Day(), Total: core.Money{Cents: cents}})
	}
	return out, rows.Err()
}

// InsertEntry implements store.LedgerStore.
func (r *Repository) InsertEntry(ctx context.Context, e core.LedgerEntry) (bool, error) {
	res, err := r.exec(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.UserID, string(e.Kind), e.Description, e.Amount.Cents, e.Date.String(),
		nullable(e.CategoryID), nullable(e.PaymentMethodID), e.Notes)
	if err != nil {
		return false, fmt.Errorf("insert entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert entry: %w", err)
	}
	return n == 1, nil
}

// InsertEntries implements store.LedgerStore inside one transaction.
func (r *Repository) InsertEntries(ctx context.Context, entries []core.LedgerEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.dialect.rebind(`
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.UserID, string(e.Kind), e.Description, e.Amount.Cents, e.Date.String(),
			nullable(e.CategoryID), nullable(e.PaymentMethodID), e.Notes); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entries: %w", err)
	}
	return nil
}

// ListEntries implements store.LedgerStore.
func (r *Repository) ListEntries(ctx context.Context, userID string, dr core.DateRange) ([]core.LedgerEntry, error) {
	rows, err := r.query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
		WHERE user_id = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date DESC, id`, userID, dr.From.String(), dr.To.String())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetEntry implements store.LedgerStore.
func (r *Repository) GetEntry(ctx context.Context, userID, id string) (core.LedgerEntry, error) {
	row := r.queryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEntry(row)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get entry %s: %w", id, notFound(err))
	}
	return e, nil
}

// UpdateEntry implements store.LedgerStore.
func (r *Repository) UpdateEntry(ctx context.Context, e core.LedgerEntry) error {
	res, err := r.exec(ctx, `
		UPDATE ledger_entries
		SET kind = ?, description = ?, amount_cents = ?, entry_date = ?,
			category_id = ?, payment_method_id = ?, notes = ?
		WHERE id = ? AND user_id = ?`,
		string(e.Kind), e.Description, e.Amount.Cents, e.Date.String(),
		nullable(e.CategoryID), nullable(e.PaymentMethodID), e.Notes,
		e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update entry %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry %s: %w", e.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update entry %s: %w", e.ID, core.ErrNotFound)
	}
	return nil
}

// DeleteEntry implements store.LedgerStore.
func (r *Repository) DeleteEntry(ctx context.Context, id string) error {
	if _, err := r.exec(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	return nil
}

func scanEntry(s scanner) (core.LedgerEntry, error) {
	var (
		e                 core.LedgerEntry
		kind, date        string
		category, payment sql.NullString
	)
	err := s.Scan(&e.ID, &e.UserID, &kind, &e.Description, &e.Amount.Cents, &date, &category, &payment, &e.Notes)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.Kind = core.Kind(kind)
	e.CategoryID = category.String
	e.PaymentMethodID = payment.String
	if e.Date, err = parseStoredDate(date); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	return e, nil
}
