package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/domain"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(pgdriver.Open(connStr), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&domain.User{},
		&domain.Upload{},
		&domain.CheckoutRequest{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()

	user := &domain.User{
		Username: username,
		Email:    username + "@example.edu",
		APIToken: uuid.NewString(),
		Active:   true,
		PIName:   "Serap Aksoy",
		PIEmail:  "aksoy.lab@example.edu",
	}
	require.NoError(t, user.SetPassword("hunter22"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func newRequest(userID uuid.UUID, tube int) *domain.CheckoutRequest {
	return &domain.CheckoutRequest{
		UserID:          userID,
		ToProduce:       "DNA",
		VillageSymbol:   "OCA",
		CollectionMonth: 3,
		CollectionYear:  2014,
		TissueType:      "MIDGUT",
		TubeNumber:      tube,
		NewBuilding:     "OML",
		NewRoom:         "214",
		NewCryo:         "rack 4",
		DateOfRequest:   time.Now().UTC(),
	}
}

func TestUserRepository_UsernameExists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	createTestUser(t, db, "gdunn")

	exists, err := repo.UsernameExists(ctx, "gdunn")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.UsernameExists(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_UsernameExists_InactiveUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	user := createTestUser(t, db, "gdunn")
	require.NoError(t, db.Model(user).Update("active", false).Error)

	exists, err := repo.UsernameExists(ctx, "gdunn")
	require.NoError(t, err)
	assert.False(t, exists, "deactivated accounts cannot submit requests")
}

func TestUserRepository_FindByAPIToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	user := createTestUser(t, db, "gdunn")

	found, err := repo.FindByAPIToken(ctx, user.APIToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByAPIToken(ctx, "bogus-token")
	require.Error(t, err)
	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, appErr.Code)
}

func TestUserRepository_CreateAndActivate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	user := &domain.User{
		Username: "gdunn",
		Email:    "gdunn@example.edu",
		APIToken: uuid.NewString(),
		PIName:   "Serap Aksoy",
		PIEmail:  "aksoy.lab@example.edu",
	}
	require.NoError(t, user.SetPassword("hunter22"))
	require.NoError(t, repo.Create(ctx, user))

	// Until activation the token does not authenticate
	_, err := repo.FindByAPIToken(ctx, user.APIToken)
	require.Error(t, err)

	activated, err := repo.Activate(ctx, "gdunn")
	require.NoError(t, err)
	assert.True(t, activated.Active)

	found, err := repo.FindByAPIToken(ctx, user.APIToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	// Activating twice is a conflict
	_, err = repo.Activate(ctx, "gdunn")
	require.Error(t, err)
	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)
}

func TestUserRepository_Create_DuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	createTestUser(t, db, "gdunn")

	dup := &domain.User{
		Username: "gdunn",
		Email:    "gdunn.other@example.edu",
		APIToken: uuid.NewString(),
		PIName:   "Serap Aksoy",
		PIEmail:  "aksoy.lab@example.edu",
	}
	err := repo.Create(ctx, dup)
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)
}

func TestUserRepository_Activate_Unknown(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, nil)

	_, err := repo.Activate(context.Background(), "nobody")
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRecordNotFound, appErr.Code)
}

func TestCheckoutRequestRepository_TubeAvailable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckoutRequestRepository(db, nil)
	ctx := context.Background()

	user := createTestUser(t, db, "gdunn")

	available, err := repo.TubeAvailable(ctx, "OCA", 3, 2014, 103)
	require.NoError(t, err)
	assert.True(t, available)

	require.NoError(t, db.Create(newRequest(user.ID, 103)).Error)

	available, err = repo.TubeAvailable(ctx, "OCA", 3, 2014, 103)
	require.NoError(t, err)
	assert.False(t, available)

	// A neighboring tube from the same collection is untouched
	available, err = repo.TubeAvailable(ctx, "OCA", 3, 2014, 104)
	require.NoError(t, err)
	assert.True(t, available)
}

func TestCheckoutRequestRepository_TubeAvailable_ReturnedSample(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckoutRequestRepository(db, nil)
	ctx := context.Background()

	user := createTestUser(t, db, "gdunn")

	req := newRequest(user.ID, 103)
	require.NoError(t, db.Create(req).Error)
	require.NoError(t, db.Model(req).Update("sample_status", domain.SampleStatusReturned).Error)

	available, err := repo.TubeAvailable(ctx, "OCA", 3, 2014, 103)
	require.NoError(t, err)
	assert.True(t, available, "a returned sample can be requested again")
}

func TestCheckoutRequestRepository_InsertBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckoutRequestRepository(db, nil)
	ctx := context.Background()

	user := createTestUser(t, db, "gdunn")

	batch := []*domain.CheckoutRequest{
		newRequest(user.ID, 101),
		newRequest(user.ID, 102),
		newRequest(user.ID, 103),
	}
	require.NoError(t, repo.InsertBatch(ctx, batch))

	for _, req := range batch {
		assert.NotEqual(t, uuid.Nil, req.ID)
	}

	var count int64
	require.NoError(t, db.Model(&domain.CheckoutRequest{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestCheckoutRequestRepository_InsertBatch_ConflictRollsBackEverything(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckoutRequestRepository(db, nil)
	ctx := context.Background()

	user := createTestUser(t, db, "gdunn")
	require.NoError(t, db.Create(newRequest(user.ID, 102)).Error)

	batch := []*domain.CheckoutRequest{
		newRequest(user.ID, 101),
		newRequest(user.ID, 102), // already claimed
		newRequest(user.ID, 103),
	}
	err := repo.InsertBatch(ctx, batch)
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)

	var count int64
	require.NoError(t, db.Model(&domain.CheckoutRequest{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "only the pre-existing claim remains")
}

func TestCheckoutRequestRepository_Approve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckoutRequestRepository(db, nil)
	ctx := context.Background()

	user := createTestUser(t, db, "gdunn")
	req := newRequest(user.ID, 103)
	require.NoError(t, db.Create(req).Error)

	at := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	approved, err := repo.Approve(ctx, req.ID, at)
	require.NoError(t, err)
	require.NotNil(t, approved.DateApproved)

	// Approving twice is a conflict
	_, err = repo.Approve(ctx, req.ID, at.Add(time.Hour))
	require.Error(t, err)
	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)
}

func TestCheckoutRequestRepository_UpdateSampleStatus_ReleasesTube(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckoutRequestRepository(db, nil)
	ctx := context.Background()

	user := createTestUser(t, db, "gdunn")
	req := newRequest(user.ID, 103)
	require.NoError(t, db.Create(req).Error)

	available, err := repo.TubeAvailable(ctx, "OCA", 3, 2014, 103)
	require.NoError(t, err)
	require.False(t, available)

	updated, err := repo.UpdateSampleStatus(ctx, req.ID, domain.SampleStatusReturned)
	require.NoError(t, err)
	assert.Equal(t, domain.SampleStatusReturned, updated.SampleStatus)

	available, err = repo.TubeAvailable(ctx, "OCA", 3, 2014, 103)
	require.NoError(t, err)
	assert.True(t, available, "marking a sample returned frees its tube")
}

func TestCheckoutRequestRepository_UpdateSampleStatus_InvalidCode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckoutRequestRepository(db, nil)

	_, err := repo.UpdateSampleStatus(context.Background(), uuid.New(), 7)
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeBadRequest, appErr.Code)
}

func TestUploadRepository_DuplicateHash(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUploadRepository(db, nil)
	ctx := context.Background()

	user := createTestUser(t, db, "gdunn")

	upload := &domain.Upload{
		UserID:   user.ID,
		Filename: "checkouts.xlsx",
		FileHash: "abc123",
	}
	require.NoError(t, repo.Create(ctx, upload))

	dup := &domain.Upload{
		UserID:   user.ID,
		Filename: "checkouts_again.xlsx",
		FileHash: "abc123",
	}
	err := repo.Create(ctx, dup)
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDuplicateUpload, appErr.Code)
}

func TestUploadRepository_FindByHash(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUploadRepository(db, nil)
	ctx := context.Background()

	found, err := repo.FindByHash(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, found)

	user := createTestUser(t, db, "gdunn")
	upload := &domain.Upload{UserID: user.ID, Filename: "c.csv", FileHash: "abc123"}
	require.NoError(t, repo.Create(ctx, upload))

	found, err = repo.FindByHash(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, upload.ID, found.ID)
}

func TestUploadRepository_MarkProcessed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUploadRepository(db, nil)
	ctx := context.Background()

	user := createTestUser(t, db, "gdunn")
	upload := &domain.Upload{UserID: user.ID, Filename: "c.csv", FileHash: "abc123"}
	require.NoError(t, repo.Create(ctx, upload))

	require.NoError(t, repo.MarkProcessed(ctx, upload.ID, "completed", 12))

	var reloaded domain.Upload
	require.NoError(t, db.First(&reloaded, "id = ?", upload.ID).Error)
	assert.Equal(t, "completed", reloaded.Status)
	assert.Equal(t, 12, reloaded.TotalRows)
	assert.NotNil(t, reloaded.ProcessedAt)

	assert.Error(t, repo.MarkProcessed(ctx, upload.ID, "bogus", 0))
}
