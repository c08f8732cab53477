package chests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lombarde1/backtunder/internal/model"
	"github.com/lombarde1/backtunder/internal/store"
)

// memStore implements ChestStore and Ledger in memory with the same
// conditional-open semantics the SQL store provides.
type memStore struct {
	mu           sync.Mutex
	chests       map[uuid.UUID][]*model.RewardChest
	transactions []*model.Transaction
	users        map[uuid.UUID]*model.User
	deposits     map[uuid.UUID]bool
}

func newMemStore() *memStore {
	return &memStore{
		chests:   make(map[uuid.UUID][]*model.RewardChest),
		users:    make(map[uuid.UUID]*model.User),
		deposits: make(map[uuid.UUID]bool),
	}
}

func (m *memStore) addUser(balance float64) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = &model.User{ID: id, Balance: balance}
	return id
}

func (m *memStore) InitChests(ctx context.Context, userID uuid.UUID) ([]model.RewardChest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.chests[userID]) > 0 {
		return nil, store.ErrChestsInitialized
	}
	var out []model.RewardChest
	for n := 1; n <= model.ChestCount; n++ {
		chest := &model.RewardChest{ID: uuid.New(), UserID: userID, ChestNumber: n, CreatedAt: time.Now()}
		m.chests[userID] = append(m.chests[userID], chest)
		out = append(out, *chest)
	}
	return out, nil
}

func (m *memStore) ListChests(ctx context.Context, userID uuid.UUID) ([]model.RewardChest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RewardChest
	for _, chest := range m.chests[userID] {
		out = append(out, *chest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChestNumber < out[j].ChestNumber })
	return out, nil
}

func (m *memStore) GetChest(ctx context.Context, userID uuid.UUID, chestNumber int) (*model.RewardChest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chest := range m.chests[userID] {
		if chest.ChestNumber == chestNumber {
			copied := *chest
			return &copied, nil
		}
	}
	return nil, store.ErrChestNotFound
}

func (m *memStore) OpenChest(ctx context.Context, chest *model.RewardChest, tr *model.Transaction) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stored *model.RewardChest
	for _, c := range m.chests[chest.UserID] {
		if c.ChestNumber == chest.ChestNumber {
			stored = c
			break
		}
	}
	if stored == nil {
		return 0, store.ErrChestNotFound
	}
	if stored.Opened {
		return 0, store.ErrChestAlreadyOpened
	}

	user, ok := m.users[tr.UserID]
	if !ok {
		return 0, store.ErrUserNotFound
	}

	now := time.Now().UTC()
	stored.Opened = true
	stored.OpenedAt = &now
	trID := tr.ID
	stored.TransactionID = &trID

	m.transactions = append(m.transactions, tr)
	user.Balance += tr.Amount

	chest.Opened = true
	chest.OpenedAt = &now
	chest.TransactionID = &trID
	return user.Balance, nil
}

func (m *memStore) ChestCounts(ctx context.Context) ([]store.ChestCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byNumber := map[int]*store.ChestCount{}
	for _, chests := range m.chests {
		for _, chest := range chests {
			c, ok := byNumber[chest.ChestNumber]
			if !ok {
				c = &store.ChestCount{ChestNumber: chest.ChestNumber}
				byNumber[chest.ChestNumber] = c
			}
			c.Total++
			if chest.Opened {
				c.Opened++
			}
		}
	}
	var out []store.ChestCount
	for _, c := range byNumber {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChestNumber < out[j].ChestNumber })
	return out, nil
}

func (m *memStore) UsersWithChests(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, chests := range m.chests {
		if len(chests) > 0 {
			count++
		}
	}
	return count, nil
}

func (m *memStore) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) HasCompletedDeposit(ctx context.Context, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deposits[userID], nil
}

func (m *memStore) CountUsers(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func newTestService() (*Service, *memStore) {
	mem := newMemStore()
	return NewService(mem, mem), mem
}

func TestInitializeCreatesFixedSchedule(t *testing.T) {
	svc, mem := newTestService()
	userID := mem.addUser(0)

	views, err := svc.Initialize(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, views, 3)

	for i, view := range views {
		require.Equal(t, i+1, view.ChestNumber)
		require.False(t, view.Opened)
		require.EqualValues(t, 3, view.BonusAmount)
	}
	require.EqualValues(t, 0, views[0].ExtraAmount)
	require.EqualValues(t, 0, views[1].ExtraAmount)
	require.EqualValues(t, 500, views[2].ExtraAmount)
}

func TestInitializeTwiceConflicts(t *testing.T) {
	svc, mem := newTestService()
	userID := mem.addUser(0)

	_, err := svc.Initialize(context.Background(), userID)
	require.NoError(t, err)

	_, err = svc.Initialize(context.Background(), userID)
	require.ErrorIs(t, err, store.ErrChestsInitialized)

	chests, err := mem.ListChests(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, chests, 3)
}

func TestOpenInvalidChestNumber(t *testing.T) {
	svc, mem := newTestService()
	userID := mem.addUser(0)

	for _, n := range []int{0, 4, -1} {
		_, err := svc.Open(context.Background(), userID, n)
		require.ErrorIs(t, err, ErrInvalidChestNumber)
	}
}

func TestOpenRequiresDeposit(t *testing.T) {
	svc, mem := newTestService()
	userID := mem.addUser(50)
	_, err := svc.Initialize(context.Background(), userID)
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), userID, 1)
	require.ErrorIs(t, err, ErrDepositRequired)

	// No mutation happened.
	require.Empty(t, mem.transactions)
	user, _ := mem.GetUserByID(context.Background(), userID)
	require.EqualValues(t, 50, user.Balance)
	chest, _ := mem.GetChest(context.Background(), userID, 1)
	require.False(t, chest.Opened)
}

func TestOpenChestNotFound(t *testing.T) {
	svc, mem := newTestService()
	userID := mem.addUser(0)
	mem.deposits[userID] = true

	_, err := svc.Open(context.Background(), userID, 2)
	require.ErrorIs(t, err, store.ErrChestNotFound)
}

func TestOpenCreditsSchedule(t *testing.T) {
	svc, mem := newTestService()
	userID := mem.addUser(10)
	mem.deposits[userID] = true
	_, err := svc.Initialize(context.Background(), userID)
	require.NoError(t, err)

	res, err := svc.Open(context.Background(), userID, 1)
	require.NoError(t, err)
	require.EqualValues(t, 13, res.NewBalance)
	require.EqualValues(t, 3, res.Chest.TotalAmount)
	require.Equal(t, model.TypeBonus, res.Transaction.Type)

	res, err = svc.Open(context.Background(), userID, 3)
	require.NoError(t, err)
	require.EqualValues(t, 516, res.NewBalance)
	require.EqualValues(t, 503, res.Chest.TotalAmount)
	require.EqualValues(t, 503, res.Transaction.Amount)
	require.NotNil(t, res.Chest.OpenedAt)

	require.Len(t, mem.transactions, 2)
	require.Contains(t, mem.transactions[1].Metadata["description"], "Prêmio especial")
	require.Equal(t, model.StatusCompleted, mem.transactions[1].Status)
	require.Equal(t, model.MethodSystem, mem.transactions[1].PaymentMethod)
}

func TestOpenAlreadyOpenedIsRejected(t *testing.T) {
	svc, mem := newTestService()
	userID := mem.addUser(0)
	mem.deposits[userID] = true
	_, err := svc.Initialize(context.Background(), userID)
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), userID, 2)
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), userID, 2)
	require.ErrorIs(t, err, store.ErrChestAlreadyOpened)

	require.Len(t, mem.transactions, 1)
	user, _ := mem.GetUserByID(context.Background(), userID)
	require.EqualValues(t, 3, user.Balance)
}

func TestOpenUserMissing(t *testing.T) {
	svc, mem := newTestService()
	userID := uuid.New() // never added to the ledger
	mem.deposits[userID] = true
	_, err := mem.InitChests(context.Background(), userID)
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), userID, 1)
	require.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestConcurrentOpenPaysOnce(t *testing.T) {
	svc, mem := newTestService()
	userID := mem.addUser(0)
	mem.deposits[userID] = true
	_, err := svc.Initialize(context.Background(), userID)
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Open(context.Background(), userID, 3)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, conflicted int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrChestAlreadyOpened):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, conflicted)

	user, _ := mem.GetUserByID(context.Background(), userID)
	require.EqualValues(t, 503, user.Balance)
	require.Len(t, mem.transactions, 1)
}

func TestListLazyInitAndCanOpen(t *testing.T) {
	svc, mem := newTestService()
	userID := mem.addUser(0)

	res, err := svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.False(t, res.HasDeposit)
	require.Len(t, res.Chests, 3)
	for i, view := range res.Chests {
		require.Equal(t, i+1, view.ChestNumber)
		require.False(t, view.CanOpen)
	}

	mem.deposits[userID] = true
	_, err = svc.Open(context.Background(), userID, 1)
	require.NoError(t, err)

	res, err = svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, res.HasDeposit)
	require.False(t, res.Chests[0].CanOpen) // opened
	require.True(t, res.Chests[1].CanOpen)
	require.True(t, res.Chests[2].CanOpen)
}

// racingStore makes the first ListChests see an empty set even though the
// rows exist, the way a concurrent first read does before its initialize
// collides with the unique key.
type racingStore struct {
	*memStore
	stale bool
}

func (r *racingStore) ListChests(ctx context.Context, userID uuid.UUID) ([]model.RewardChest, error) {
	if r.stale {
		r.stale = false
		return nil, nil
	}
	return r.memStore.ListChests(ctx, userID)
}

func TestListRecoversFromInitializeRace(t *testing.T) {
	mem := newMemStore()
	userID := mem.addUser(0)
	_, err := mem.InitChests(context.Background(), userID)
	require.NoError(t, err)

	svc := NewService(&racingStore{memStore: mem, stale: true}, mem)

	res, err := svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, res.Chests, 3)
}

func TestStatsAggregation(t *testing.T) {
	svc, mem := newTestService()
	alice := mem.addUser(0)
	bob := mem.addUser(0)
	mem.deposits[alice] = true

	_, err := svc.Initialize(context.Background(), alice)
	require.NoError(t, err)
	_, err = svc.Initialize(context.Background(), bob)
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), alice, 1)
	require.NoError(t, err)

	report, err := svc.Stats(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, report.TotalUsers)
	require.Equal(t, 2, report.UsersWithChests)
	require.Len(t, report.ChestStats, 3)

	require.Equal(t, 1, report.ChestStats[0].ChestNumber)
	require.Equal(t, 2, report.ChestStats[0].TotalChests)
	require.Equal(t, 1, report.ChestStats[0].OpenedChests)
	require.EqualValues(t, 3, report.ChestStats[0].TotalBonusDistributed)

	require.Equal(t, 0, report.ChestStats[1].OpenedChests)
	require.EqualValues(t, 0, report.ChestStats[1].TotalBonusDistributed)

	require.Equal(t, 2, report.ChestStats[2].TotalChests)
	require.EqualValues(t, 0, report.ChestStats[2].TotalBonusDistributed)
}
