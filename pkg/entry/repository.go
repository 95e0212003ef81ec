package entry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Filter narrows a group listing. Zero values mean "no constraint".
type Filter struct {
	ProjectID uuid.UUID
	// Type keeps a group when any of its transactions matches the label
	// (legacy spellings accepted).
	Type string
	// From and To match against the effective date of any transaction in the
	// group (own date, else group date).
	From time.Time
	To   time.Time
}

type Repository interface {
	Create(ctx context.Context, group EntryGroup) (EntryGroup, error)
	FindByID(ctx context.Context, id uuid.UUID) (EntryGroup, error)
	FindForProject(ctx context.Context, projectID uuid.UUID) ([]EntryGroup, error)
	FindAll(ctx context.Context, filter Filter) ([]EntryGroup, error)
	// Save overwrites the group document if and only if the stored version
	// still equals group.Version. Returns ErrConflict otherwise.
	Save(ctx context.Context, group EntryGroup) (EntryGroup, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// DeleteVersioned removes the group if and only if the stored version
	// still equals version, so a delete decided on a stale read cannot
	// destroy a concurrent write. Returns ErrConflict otherwise.
	DeleteVersioned(ctx context.Context, id uuid.UUID, version int64) error
	DeleteForProject(ctx context.Context, projectID uuid.UUID) (int64, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// storedTransaction is the JSON shape of one element of the group document's
// transactions array. Field names follow the historical document format.
type storedTransaction struct {
	UID         string          `json:"uid,omitempty"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Cost        json.RawMessage `json:"cost"`
	Date        *int64          `json:"date,omitempty"`
	UpdatedAt   *int64          `json:"updateat,omitempty"`
}

func (r *RepositoryImpl) Create(ctx context.Context, group EntryGroup) (EntryGroup, error) {
	query := `INSERT INTO entry_group (
                    id,
                    project_id,
                    transactions,
                    group_date,
                    version,
                    created_at,
                    updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return EntryGroup{}, err
	}
	defer stmt.Close()

	doc, err := encodeTransactions(group.Transactions)
	if err != nil {
		log.Error(err)
		return EntryGroup{}, err
	}

	group.Version = 1
	_, err = stmt.ExecContext(ctx,
		group.ID.String(),
		group.ProjectID.String(),
		doc,
		group.Date.UnixMilli(),
		group.Version,
		group.CreatedAt.UnixMilli(),
		group.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return EntryGroup{}, err
	}

	return group, nil
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (EntryGroup, error) {
	query := `SELECT id, project_id, transactions, group_date, version, created_at, updated_at
				FROM entry_group WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id.String())

	group, err := scanGroup(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return EntryGroup{}, ErrGroupNotFound
		}
		err := fmt.Errorf("could not scan entry group: %w", err)
		log.Error(err)
		return EntryGroup{}, err
	}
	return group, nil
}

func (r *RepositoryImpl) FindForProject(ctx context.Context, projectID uuid.UUID) ([]EntryGroup, error) {
	query := `SELECT id, project_id, transactions, group_date, version, created_at, updated_at
				FROM entry_group WHERE project_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, projectID.String())
	if err != nil {
		err := fmt.Errorf("could not query entry groups: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	return collectGroups(rows)
}

func (r *RepositoryImpl) FindAll(ctx context.Context, filter Filter) ([]EntryGroup, error) {
	query := `SELECT id, project_id, transactions, group_date, version, created_at, updated_at
				FROM entry_group ORDER BY created_at DESC`
	args := []interface{}{}
	if filter.ProjectID != uuid.Nil {
		query = `SELECT id, project_id, transactions, group_date, version, created_at, updated_at
				FROM entry_group WHERE project_id = ? ORDER BY created_at DESC`
		args = append(args, filter.ProjectID.String())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query entry groups: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	groups, err := collectGroups(rows)
	if err != nil {
		return nil, err
	}

	// Type and date constraints apply to the document's nested transactions,
	// so they are evaluated on the decoded documents.
	filtered := make([]EntryGroup, 0, len(groups))
	for _, group := range groups {
		if matchesFilter(group, filter) {
			filtered = append(filtered, group)
		}
	}
	return filtered, nil
}

func (r *RepositoryImpl) Save(ctx context.Context, group EntryGroup) (EntryGroup, error) {
	query := `UPDATE entry_group SET
                  transactions = ?,
                  group_date = ?,
                  version = version + 1,
                  updated_at = ?
              WHERE id = ? AND version = ?`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return EntryGroup{}, err
	}
	defer stmt.Close()

	doc, err := encodeTransactions(group.Transactions)
	if err != nil {
		log.Error(err)
		return EntryGroup{}, err
	}

	result, err := stmt.ExecContext(ctx,
		doc,
		group.Date.UnixMilli(),
		group.UpdatedAt.UnixMilli(),
		group.ID.String(),
		group.Version,
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return EntryGroup{}, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return EntryGroup{}, err
	}
	if rowsAffected == 0 {
		// Either the group is gone or someone else wrote it first.
		if _, findErr := r.FindByID(ctx, group.ID); findErr != nil {
			return EntryGroup{}, findErr
		}
		return EntryGroup{}, ErrConflict
	}

	group.Version++
	return group, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := "DELETE FROM entry_group WHERE id = ?"
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return false, err
	}
	defer stmt.Close()
	result, err := stmt.ExecContext(ctx, id.String())
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *RepositoryImpl) DeleteVersioned(ctx context.Context, id uuid.UUID, version int64) error {
	query := "DELETE FROM entry_group WHERE id = ? AND version = ?"
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()
	result, err := stmt.ExecContext(ctx, id.String(), version)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return err
	}
	if rowsAffected == 0 {
		// Either the group is gone or someone else wrote it first.
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return findErr
		}
		return ErrConflict
	}
	return nil
}

func (r *RepositoryImpl) DeleteForProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	query := "DELETE FROM entry_group WHERE project_id = ?"
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return 0, err
	}
	defer stmt.Close()
	result, err := stmt.ExecContext(ctx, projectID.String())
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return 0, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return 0, err
	}
	return rowsAffected, nil
}

func collectGroups(rows *sql.Rows) ([]EntryGroup, error) {
	var groups []EntryGroup
	for rows.Next() {
		group, err := scanGroup(rows.Scan)
		if err != nil {
			err := fmt.Errorf("could not scan entry group: %w", err)
			log.Error(err)
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return groups, nil
}

func scanGroup(scan func(dest ...interface{}) error) (EntryGroup, error) {
	var group EntryGroup
	var idString, projectIdString, doc string
	var groupDate, createdAt, updatedAt int64
	if err := scan(
		&idString,
		&projectIdString,
		&doc,
		&groupDate,
		&group.Version,
		&createdAt,
		&updatedAt,
	); err != nil {
		return EntryGroup{}, err
	}

	id, err := uuid.Parse(idString)
	if err != nil {
		return EntryGroup{}, fmt.Errorf("invalid group id %q: %w", idString, err)
	}
	projectId, err := uuid.Parse(projectIdString)
	if err != nil {
		return EntryGroup{}, fmt.Errorf("invalid project id %q: %w", projectIdString, err)
	}
	group.ID = id
	group.ProjectID = projectId
	group.Date = time.UnixMilli(groupDate)
	group.CreatedAt = time.UnixMilli(createdAt)
	group.UpdatedAt = time.UnixMilli(updatedAt)

	group.Transactions, err = decodeTransactions(doc)
	if err != nil {
		return EntryGroup{}, err
	}
	return group, nil
}

func encodeTransactions(transactions []Transaction) (string, error) {
	stored := make([]storedTransaction, 0, len(transactions))
	for _, tx := range transactions {
		st := storedTransaction{
			Description: tx.Description,
			Type:        string(tx.Type),
		}
		if tx.UID != uuid.Nil {
			st.UID = tx.UID.String()
		}
		if tx.AmountValid {
			cost, err := json.Marshal(tx.Amount.String())
			if err != nil {
				return "", fmt.Errorf("could not encode amount: %w", err)
			}
			st.Cost = cost
		} else {
			// Keep the unparseable original instead of laundering it into a
			// valid-looking zero.
			cost, err := json.Marshal(tx.RawAmount)
			if err != nil {
				return "", fmt.Errorf("could not encode amount: %w", err)
			}
			st.Cost = cost
		}
		if !tx.Date.IsZero() {
			date := tx.Date.UnixMilli()
			st.Date = &date
		}
		if !tx.UpdatedAt.IsZero() {
			updatedAt := tx.UpdatedAt.UnixMilli()
			st.UpdatedAt = &updatedAt
		}
		stored = append(stored, st)
	}

	doc, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("could not encode transactions: %w", err)
	}
	return string(doc), nil
}

func decodeTransactions(doc string) ([]Transaction, error) {
	var stored []storedTransaction
	if err := json.Unmarshal([]byte(doc), &stored); err != nil {
		return nil, fmt.Errorf("could not decode transactions document: %w", err)
	}

	transactions := make([]Transaction, 0, len(stored))
	for _, st := range stored {
		tx := Transaction{
			Description: st.Description,
		}
		// Legacy labels are folded into the canonical form here, at the read
		// boundary; unrecognized labels pass through unchanged.
		tx.Type, _ = NormalizeType(st.Type)
		if st.UID != "" {
			if uid, err := uuid.Parse(st.UID); err == nil {
				tx.UID = uid
			}
		}
		tx.Amount, tx.RawAmount, tx.AmountValid = decodeAmount(st.Cost)
		if !tx.AmountValid {
			log.Warnf("unparseable amount %q in stored transaction %q", tx.RawAmount, st.Description)
		}
		if st.Date != nil {
			tx.Date = time.UnixMilli(*st.Date)
		}
		if st.UpdatedAt != nil {
			tx.UpdatedAt = time.UnixMilli(*st.UpdatedAt)
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

// decodeAmount accepts both JSON numbers and strings, since historical
// documents stored amounts either way. Unparseable values are preserved as raw
// text with AmountValid=false.
func decodeAmount(raw json.RawMessage) (decimal.Decimal, string, bool) {
	if len(raw) == 0 {
		return decimal.Zero, "", false
	}
	text := string(raw)
	var quoted string
	if err := json.Unmarshal(raw, &quoted); err == nil {
		text = quoted
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, text, false
	}
	return amount, "", true
}

func matchesFilter(group EntryGroup, filter Filter) bool {
	if filter.Type != "" {
		wanted, _ := NormalizeType(filter.Type)
		found := false
		for _, tx := range group.Transactions {
			if tx.Type == wanted {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if filter.From.IsZero() && filter.To.IsZero() {
		return true
	}
	for i := range group.Transactions {
		date := group.TransactionDate(i)
		if !filter.From.IsZero() && date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && date.After(filter.To) {
			continue
		}
		return true
	}
	return false
}
