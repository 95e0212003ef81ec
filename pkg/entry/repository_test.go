package entry

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerlark/ledgerlark/internal/test_utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepositoryTest(t *testing.T) (*RepositoryImpl, *sql.DB) {
	db := test_utils.SetupTestDB(t)
	return NewRepository(db), db
}

// insertProject satisfies the foreign key on entry_group without pulling the
// project package into this one.
func insertProject(t *testing.T, db *sql.DB, id uuid.UUID) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO project (id, name, description, client, status, created_at) VALUES (?, ?, '', '', 'Planning', ?)`,
		id.String(), "Project "+id.String(), time.Now().UnixMilli(),
	)
	require.NoError(t, err)
}

func testGroup(projectID uuid.UUID, date time.Time) EntryGroup {
	return EntryGroup{
		ID:        uuid.New(),
		ProjectID: projectID,
		Transactions: []Transaction{
			{
				UID:         uuid.New(),
				Description: "Invoice #1",
				Type:        TypeIncome,
				Amount:      decimal.NewFromInt(1200),
				AmountValid: true,
				UpdatedAt:   date,
			},
			{
				UID:         uuid.New(),
				Description: "Hosting",
				Type:        TypeExpense,
				Amount:      decimal.RequireFromString("19.99"),
				AmountValid: true,
				Date:        date.AddDate(0, 0, 3),
				UpdatedAt:   date,
			},
		},
		Date:      date,
		CreatedAt: date,
		UpdatedAt: date,
	}
}

func TestRepository_CreateAndFindByID(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	insertProject(t, db, projectID)
	date := time.Date(2025, 4, 10, 9, 30, 0, 0, time.UTC)

	created, err := repo.Create(ctx, testGroup(projectID, date))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, projectID, found.ProjectID)
	assert.Equal(t, int64(1), found.Version)
	require.Len(t, found.Transactions, 2)
	assert.Equal(t, "Invoice #1", found.Transactions[0].Description)
	assert.Equal(t, TypeIncome, found.Transactions[0].Type)
	assert.True(t, found.Transactions[0].Amount.Equal(decimal.NewFromInt(1200)))
	assert.True(t, found.Transactions[0].AmountValid)
	assert.Equal(t, created.Transactions[0].UID, found.Transactions[0].UID)
	assert.True(t, found.Transactions[0].Date.IsZero())
	assert.Equal(t, date.AddDate(0, 0, 3).UnixMilli(), found.Transactions[1].Date.UnixMilli())
	assert.True(t, found.Transactions[1].Amount.Equal(decimal.RequireFromString("19.99")))
}

func TestRepository_FindByID_NotFound(t *testing.T) {
	repo, _ := setupRepositoryTest(t)

	_, err := repo.FindByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestRepository_Create_RejectsUnknownProject(t *testing.T) {
	repo, _ := setupRepositoryTest(t)

	_, err := repo.Create(context.Background(), testGroup(uuid.New(), time.Now()))

	assert.Error(t, err)
}

func TestRepository_FindForProject_OrdersNewestFirst(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	otherProjectID := uuid.New()
	insertProject(t, db, projectID)
	insertProject(t, db, otherProjectID)

	older := testGroup(projectID, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := testGroup(projectID, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	foreign := testGroup(otherProjectID, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	for _, g := range []EntryGroup{older, newer, foreign} {
		_, err := repo.Create(ctx, g)
		require.NoError(t, err)
	}

	groups, err := repo.FindForProject(ctx, projectID)

	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, newer.ID, groups[0].ID)
	assert.Equal(t, older.ID, groups[1].ID)
}

func TestRepository_Save_IncrementsVersion(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	insertProject(t, db, projectID)

	created, err := repo.Create(ctx, testGroup(projectID, time.Now()))
	require.NoError(t, err)

	created.Transactions[0].Description = "Invoice #1 (corrected)"
	saved, err := repo.Save(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.Version)
	assert.Equal(t, "Invoice #1 (corrected)", found.Transactions[0].Description)
}

func TestRepository_Save_StaleVersionConflicts(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	insertProject(t, db, projectID)

	created, err := repo.Create(ctx, testGroup(projectID, time.Now()))
	require.NoError(t, err)

	// Two readers of version 1; the second write must not clobber the first.
	first := created
	second := created

	first.Transactions[0].Description = "winner"
	_, err = repo.Save(ctx, first)
	require.NoError(t, err)

	second.Transactions[0].Description = "loser"
	_, err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, ErrConflict)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "winner", found.Transactions[0].Description)
}

func TestRepository_Save_MissingGroup(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	projectID := uuid.New()
	insertProject(t, db, projectID)

	_, err := repo.Save(context.Background(), testGroup(projectID, time.Now()))

	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestRepository_DecodesLegacyDocuments(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	insertProject(t, db, projectID)

	// A document as older writers produced it: drifted type labels, amounts
	// stored as numbers or strings, no UIDs.
	id := uuid.New()
	doc := `[
		{"description":"old income","type":"Income","cost":100},
		{"description":"old expense","type":"outbound","cost":"40.50"},
		{"description":"broken","type":"expenses","cost":"12abc"}
	]`
	now := time.Now().UnixMilli()
	_, err := db.Exec(
		`INSERT INTO entry_group (id, project_id, transactions, group_date, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		id.String(), projectID.String(), doc, now, now, now,
	)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, id)

	require.NoError(t, err)
	require.Len(t, found.Transactions, 3)
	assert.Equal(t, TypeIncome, found.Transactions[0].Type)
	assert.True(t, found.Transactions[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, found.Transactions[0].AmountValid)
	assert.Equal(t, TypeExpense, found.Transactions[1].Type)
	assert.True(t, found.Transactions[1].Amount.Equal(decimal.RequireFromString("40.50")))
	assert.True(t, found.Transactions[1].AmountValid)
	assert.False(t, found.Transactions[2].AmountValid)
	assert.Equal(t, "12abc", found.Transactions[2].RawAmount)
	assert.True(t, found.Transactions[2].Amount.IsZero())
}

func TestRepository_PreservesUnparseableAmountOnRewrite(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	insertProject(t, db, projectID)

	id := uuid.New()
	doc := `[{"description":"broken","type":"income","cost":"oops"}]`
	now := time.Now().UnixMilli()
	_, err := db.Exec(
		`INSERT INTO entry_group (id, project_id, transactions, group_date, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		id.String(), projectID.String(), doc, now, now, now,
	)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, id)
	require.NoError(t, err)

	_, err = repo.Save(ctx, found)
	require.NoError(t, err)

	reread, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, reread.Transactions, 1)
	assert.False(t, reread.Transactions[0].AmountValid)
	assert.Equal(t, "oops", reread.Transactions[0].RawAmount)
}

func TestRepository_FindAll_Filters(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	insertProject(t, db, projectID)

	incomeOnly := EntryGroup{
		ID:        uuid.New(),
		ProjectID: projectID,
		Transactions: []Transaction{
			{UID: uuid.New(), Description: "salary", Type: TypeIncome, Amount: decimal.NewFromInt(100), AmountValid: true},
		},
		Date:      time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	expenseOnly := EntryGroup{
		ID:        uuid.New(),
		ProjectID: projectID,
		Transactions: []Transaction{
			{UID: uuid.New(), Description: "rent", Type: TypeExpense, Amount: decimal.NewFromInt(50), AmountValid: true},
		},
		Date:      time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	for _, g := range []EntryGroup{incomeOnly, expenseOnly} {
		_, err := repo.Create(ctx, g)
		require.NoError(t, err)
	}

	byType, err := repo.FindAll(ctx, Filter{Type: "Income"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, incomeOnly.ID, byType[0].ID)

	byDate, err := repo.FindAll(ctx, Filter{
		From: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, expenseOnly.ID, byDate[0].ID)

	all, err := repo.FindAll(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRepository_DeleteVersioned_StaleVersionConflicts(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	insertProject(t, db, projectID)

	created, err := repo.Create(ctx, testGroup(projectID, time.Now()))
	require.NoError(t, err)

	// A second writer appends after the first reader took version 1.
	appended := created
	appended.Transactions = append(appended.Transactions, Transaction{
		UID:         uuid.New(),
		Description: "landed in between",
		Type:        TypeIncome,
		Amount:      decimal.NewFromInt(75),
		AmountValid: true,
	})
	_, err = repo.Save(ctx, appended)
	require.NoError(t, err)

	// The first reader's delete decision is now stale and must not win.
	err = repo.DeleteVersioned(ctx, created.ID, created.Version)
	assert.ErrorIs(t, err, ErrConflict)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, found.Transactions, 3)
	assert.Equal(t, "landed in between", found.Transactions[2].Description)

	// With the current version the delete goes through.
	require.NoError(t, repo.DeleteVersioned(ctx, created.ID, found.Version))
	_, err = repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestRepository_DeleteVersioned_MissingGroup(t *testing.T) {
	repo, _ := setupRepositoryTest(t)

	err := repo.DeleteVersioned(context.Background(), uuid.New(), 1)

	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestRepository_DeleteForProject(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	otherProjectID := uuid.New()
	insertProject(t, db, projectID)
	insertProject(t, db, otherProjectID)

	_, err := repo.Create(ctx, testGroup(projectID, time.Now()))
	require.NoError(t, err)
	_, err = repo.Create(ctx, testGroup(projectID, time.Now()))
	require.NoError(t, err)
	kept, err := repo.Create(ctx, testGroup(otherProjectID, time.Now()))
	require.NoError(t, err)

	deleted, err := repo.DeleteForProject(ctx, projectID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	remaining, err := repo.FindAll(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID, remaining[0].ID)
}

func TestRepository_Delete(t *testing.T) {
	repo, db := setupRepositoryTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	insertProject(t, db, projectID)

	created, err := repo.Create(ctx, testGroup(projectID, time.Now()))
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
