package entry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerlark/ledgerlark/internal/utils"
	log "github.com/sirupsen/logrus"
)

// saveAttempts bounds the optimistic-concurrency retry loop. Every mutation is
// a read-mutate-write cycle guarded by the group's version counter; a conflict
// means another caller wrote the group first, so the cycle is re-run against
// the fresh document.
const saveAttempts = 3

// AppendResult reports where appended transactions landed.
type AppendResult struct {
	Group EntryGroup
	// AssignedIndices are the positional addresses of the new transactions,
	// in the order they were appended.
	AssignedIndices []int
	// Created is true when no group existed for the project yet and one was
	// created to hold the transactions.
	Created bool
}

// DeleteResult reports which of the two delete outcomes occurred.
type DeleteResult struct {
	// GroupDeleted is true when the removed transaction was the group's last
	// one and the whole group document was deleted with it.
	GroupDeleted bool
}

// ProjectExistsFunc reports whether a project exists. Wired to the project
// service so this package does not depend on it.
type ProjectExistsFunc func(ctx context.Context, id uuid.UUID) (bool, error)

type Service struct {
	repo          Repository
	clock         utils.Clock
	projectExists ProjectExistsFunc
}

func NewService(repo Repository, clock utils.Clock, projectExists ProjectExistsFunc) *Service {
	return &Service{repo: repo, clock: clock, projectExists: projectExists}
}

// CreateGroup creates a new entry group for a project with an initial sequence
// of transactions. All fields are validated before anything is written.
func (s *Service) CreateGroup(ctx context.Context, projectID uuid.UUID, items []TransactionFields, date time.Time) (EntryGroup, error) {
	if len(items) == 0 {
		return EntryGroup{}, &ValidationError{Field: "entries", Reason: "at least one entry item is required"}
	}
	if err := validateAll(items); err != nil {
		return EntryGroup{}, err
	}
	if err := s.checkProject(ctx, projectID); err != nil {
		return EntryGroup{}, err
	}

	now := s.clock.Now()
	if date.IsZero() {
		date = now
	}
	group := EntryGroup{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Transactions: buildTransactions(items, date, now),
		Date:         date,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.repo.Create(ctx, group)
}

func (s *Service) GetGroup(ctx context.Context, id uuid.UUID) (EntryGroup, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListGroups(ctx context.Context, filter Filter) ([]EntryGroup, error) {
	return s.repo.FindAll(ctx, filter)
}

// AppendTransactions adds transactions to the project's entry group, creating
// the group when the project has none. The returned indices equal
// [oldLength, oldLength+len(items)).
func (s *Service) AppendTransactions(ctx context.Context, projectID uuid.UUID, items []TransactionFields, date time.Time) (AppendResult, error) {
	if len(items) == 0 {
		return AppendResult{}, &ValidationError{Field: "entries", Reason: "at least one entry item is required"}
	}
	if err := validateAll(items); err != nil {
		return AppendResult{}, err
	}
	if err := s.checkProject(ctx, projectID); err != nil {
		return AppendResult{}, err
	}

	lastErr := error(nil)
	for attempt := 0; attempt < saveAttempts; attempt++ {
		groups, err := s.repo.FindForProject(ctx, projectID)
		if err != nil {
			return AppendResult{}, err
		}

		now := s.clock.Now()
		fallbackDate := date
		if fallbackDate.IsZero() {
			fallbackDate = now
		}

		if len(groups) == 0 {
			group := EntryGroup{
				ID:           uuid.New(),
				ProjectID:    projectID,
				Transactions: buildTransactions(items, fallbackDate, now),
				Date:         fallbackDate,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			created, err := s.repo.Create(ctx, group)
			if err != nil {
				return AppendResult{}, err
			}
			return AppendResult{
				Group:           created,
				AssignedIndices: indicesFrom(0, len(items)),
				Created:         true,
			}, nil
		}

		group := groups[0]
		oldLength := len(group.Transactions)
		group.Transactions = append(group.Transactions, buildTransactions(items, fallbackDate, now)...)
		group.UpdatedAt = now

		saved, err := s.repo.Save(ctx, group)
		if errors.Is(err, ErrConflict) {
			log.Debugf("append to group %s lost a write race, retrying", group.ID)
			lastErr = err
			continue
		}
		if err != nil {
			return AppendResult{}, err
		}
		return AppendResult{
			Group:           saved,
			AssignedIndices: indicesFrom(oldLength, len(items)),
		}, nil
	}
	return AppendResult{}, lastErr
}

// UpdateTransactionAt replaces the transaction at the given index in place.
// The sequence length and all other indices are unaffected; the element keeps
// its stable UID.
func (s *Service) UpdateTransactionAt(ctx context.Context, groupID uuid.UUID, index int, fields TransactionFields) (EntryGroup, error) {
	if err := fields.Validate(); err != nil {
		return EntryGroup{}, err
	}

	lastErr := error(nil)
	for attempt := 0; attempt < saveAttempts; attempt++ {
		group, err := s.repo.FindByID(ctx, groupID)
		if err != nil {
			return EntryGroup{}, err
		}
		if err := checkIndex(index, len(group.Transactions)); err != nil {
			return EntryGroup{}, err
		}

		now := s.clock.Now()
		replacement := fields.toTransaction(group.Transactions[index].UID, now)
		if replacement.UID == uuid.Nil {
			replacement.UID = uuid.New()
		}
		group.Transactions[index] = replacement
		group.UpdatedAt = now

		saved, err := s.repo.Save(ctx, group)
		if errors.Is(err, ErrConflict) {
			log.Debugf("update of group %s lost a write race, retrying", group.ID)
			lastErr = err
			continue
		}
		if err != nil {
			return EntryGroup{}, err
		}
		return saved, nil
	}
	return EntryGroup{}, lastErr
}

// ReplaceTransactions swaps the group's whole sequence for a new one. Every
// element is validated before any write, so a bad element leaves the stored
// sequence untouched; the replacement itself is a single document write.
func (s *Service) ReplaceTransactions(ctx context.Context, groupID uuid.UUID, items []TransactionFields) (EntryGroup, error) {
	if len(items) == 0 {
		return EntryGroup{}, &ValidationError{Field: "entries", Reason: "at least one entry item is required"}
	}
	if err := validateAll(items); err != nil {
		return EntryGroup{}, err
	}

	lastErr := error(nil)
	for attempt := 0; attempt < saveAttempts; attempt++ {
		group, err := s.repo.FindByID(ctx, groupID)
		if err != nil {
			return EntryGroup{}, err
		}

		now := s.clock.Now()
		group.Transactions = buildTransactions(items, group.Date, now)
		group.UpdatedAt = now

		saved, err := s.repo.Save(ctx, group)
		if errors.Is(err, ErrConflict) {
			log.Debugf("replace on group %s lost a write race, retrying", group.ID)
			lastErr = err
			continue
		}
		if err != nil {
			return EntryGroup{}, err
		}
		return saved, nil
	}
	return EntryGroup{}, lastErr
}

// DeleteTransactionAt removes the transaction at the given index. Later
// indices shift down by one, so any index a caller cached beyond the deleted
// one is stale afterwards. A group left empty is deleted entirely.
func (s *Service) DeleteTransactionAt(ctx context.Context, groupID uuid.UUID, index int) (DeleteResult, error) {
	lastErr := error(nil)
	for attempt := 0; attempt < saveAttempts; attempt++ {
		group, err := s.repo.FindByID(ctx, groupID)
		if err != nil {
			return DeleteResult{}, err
		}
		if err := checkIndex(index, len(group.Transactions)); err != nil {
			return DeleteResult{}, err
		}

		group.Transactions = append(group.Transactions[:index], group.Transactions[index+1:]...)

		if len(group.Transactions) == 0 {
			// The version guard applies to the delete as well: a group that
			// gained transactions since the read must not be dropped.
			err := s.repo.DeleteVersioned(ctx, group.ID, group.Version)
			if errors.Is(err, ErrConflict) {
				log.Debugf("delete of group %s lost a write race, retrying", group.ID)
				lastErr = err
				continue
			}
			if err != nil {
				return DeleteResult{}, err
			}
			return DeleteResult{GroupDeleted: true}, nil
		}

		group.UpdatedAt = s.clock.Now()
		_, err = s.repo.Save(ctx, group)
		if errors.Is(err, ErrConflict) {
			log.Debugf("delete in group %s lost a write race, retrying", group.ID)
			lastErr = err
			continue
		}
		if err != nil {
			return DeleteResult{}, err
		}
		return DeleteResult{}, nil
	}
	return DeleteResult{}, lastErr
}

// DeleteGroup removes the whole group document.
func (s *Service) DeleteGroup(ctx context.Context, groupID uuid.UUID) (bool, error) {
	deleted, err := s.repo.Delete(ctx, groupID)
	if err != nil {
		return false, err
	}
	if !deleted {
		log.Warnf("entry group not deleted, probably because it does not exist (%s)", groupID)
		return false, ErrGroupNotFound
	}
	return true, nil
}

func (s *Service) checkProject(ctx context.Context, projectID uuid.UUID) error {
	exists, err := s.projectExists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to check project %s: %w", projectID, err)
	}
	if !exists {
		return ErrProjectNotFound
	}
	return nil
}

func checkIndex(index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%w: index %d is out of bounds (max: %d)", ErrIndexOutOfRange, index, length-1)
	}
	return nil
}

func validateAll(items []TransactionFields) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func buildTransactions(items []TransactionFields, fallbackDate time.Time, now time.Time) []Transaction {
	transactions := make([]Transaction, 0, len(items))
	for _, item := range items {
		tx := item.toTransaction(uuid.New(), now)
		if tx.Date.IsZero() {
			tx.Date = fallbackDate
		}
		transactions = append(transactions, tx)
	}
	return transactions
}

func indicesFrom(start, count int) []int {
	indices := make([]int, 0, count)
	for i := 0; i < count; i++ {
		indices = append(indices, start+i)
	}
	return indices
}
