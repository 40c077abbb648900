package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phuocduongts/storefront/internal/models"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) List(ctx context.Context, userID int64) ([]models.LineItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]models.LineItem)
	return items, args.Error(1)
}

func (m *mockBackend) Add(ctx context.Context, userID, productID int64, qty int) error {
	return m.Called(ctx, userID, productID, qty).Error(0)
}

func (m *mockBackend) UpdateQuantity(ctx context.Context, lineID int64, qty int) (*models.LineItem, error) {
	args := m.Called(ctx, lineID, qty)
	item, _ := args.Get(0).(*models.LineItem)
	return item, args.Error(1)
}

func (m *mockBackend) Remove(ctx context.Context, lineID int64) error {
	return m.Called(ctx, lineID).Error(0)
}

func (m *mockBackend) Clear(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockBackend) Count(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// memBackend is a server-resident cart that never merges lines on its own.
type memBackend struct {
	nextID int64
	lines  []models.LineItem
	calls  int
}

func (b *memBackend) List(_ context.Context, _ int64) ([]models.LineItem, error) {
	b.calls++
	return append([]models.LineItem(nil), b.lines...), nil
}

func (b *memBackend) Add(_ context.Context, _ int64, productID int64, qty int) error {
	b.calls++
	b.nextID++
	b.lines = append(b.lines, models.LineItem{
		ID:       b.nextID,
		Product:  models.Product{ID: productID, Price: decimal.NewFromInt(1000)},
		Quantity: qty,
	})
	return nil
}

func (b *memBackend) UpdateQuantity(_ context.Context, lineID int64, qty int) (*models.LineItem, error) {
	b.calls++
	for i := range b.lines {
		if b.lines[i].ID == lineID {
			b.lines[i].Quantity = qty
			it := b.lines[i]
			return &it, nil
		}
	}
	return nil, errors.New("no such line")
}

func (b *memBackend) Remove(_ context.Context, lineID int64) error {
	b.calls++
	for i := range b.lines {
		if b.lines[i].ID == lineID {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (b *memBackend) Clear(_ context.Context, _ int64) error {
	b.calls++
	b.lines = nil
	return nil
}

func (b *memBackend) Count(_ context.Context, _ int64) (int, error) {
	b.calls++
	n := 0
	for _, l := range b.lines {
		n += l.Quantity
	}
	return n, nil
}

func countEvents(bus *Bus) *int {
	n := 0
	bus.Subscribe(func(CartChanged) { n++ })
	return &n
}

func TestAddMergesExistingLine(t *testing.T) {
	be := &memBackend{}
	bus := NewBus()
	events := countEvents(bus)
	s := NewStore(be, bus)
	ctx := context.Background()

	first, err := s.Add(ctx, 1, 55, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quantity)

	second, err := s.Add(ctx, 1, 55, 3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	items, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 2, *events)
}

func TestQuantityBelowOneMakesNoCall(t *testing.T) {
	be := &mockBackend{}
	bus := NewBus()
	events := countEvents(bus)
	s := NewStore(be, bus)

	_, err := s.UpdateQuantity(context.Background(), 1, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = s.Add(context.Background(), 1, 10, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	be.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
	be.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	assert.Zero(t, *events)
}

func TestAddRequiresUser(t *testing.T) {
	s := NewStore(&mockBackend{}, NewBus())

	_, err := s.Add(context.Background(), 0, 10, 1)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestFailedMutationPublishesNothing(t *testing.T) {
	be := &mockBackend{}
	boom := errors.New("boom")
	be.On("Remove", mock.Anything, int64(7)).Return(boom).Once()
	be.On("Clear", mock.Anything, int64(1)).Return(boom).Once()
	be.On("UpdateQuantity", mock.Anything, int64(7), 2).Return(nil, boom).Once()

	bus := NewBus()
	events := countEvents(bus)
	s := NewStore(be, bus)
	ctx := context.Background()

	assert.ErrorIs(t, s.Remove(ctx, 1, 7), boom)
	assert.ErrorIs(t, s.Clear(ctx, 1), boom)
	_, err := s.UpdateQuantity(ctx, 1, 7, 2)
	assert.ErrorIs(t, err, boom)

	assert.Zero(t, *events)
	be.AssertExpectations(t)
}

func TestEachMutationPublishesOnce(t *testing.T) {
	be := &mockBackend{}
	be.On("UpdateQuantity", mock.Anything, int64(7), 4).Return(&models.LineItem{ID: 7, Quantity: 4}, nil).Once()
	be.On("Remove", mock.Anything, int64(7)).Return(nil).Once()
	be.On("Clear", mock.Anything, int64(1)).Return(nil).Once()

	bus := NewBus()
	var got []CartChanged
	bus.Subscribe(func(e CartChanged) { got = append(got, e) })
	s := NewStore(be, bus)
	ctx := context.Background()

	_, err := s.UpdateQuantity(ctx, 1, 7, 4)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, 1, 7))
	require.NoError(t, s.Clear(ctx, 1))

	assert.Equal(t, []CartChanged{{UserID: 1}, {UserID: 1}, {UserID: 1}}, got)
	be.AssertExpectations(t)
}

func TestAddNewLineRelistsAfterCreate(t *testing.T) {
	be := &mockBackend{}
	created := models.LineItem{ID: 3, Product: models.Product{ID: 9}, Quantity: 1}
	be.On("List", mock.Anything, int64(1)).Return([]models.LineItem{}, nil).Once()
	be.On("Add", mock.Anything, int64(1), int64(9), 1).Return(nil).Once()
	be.On("List", mock.Anything, int64(1)).Return([]models.LineItem{created}, nil).Once()

	s := NewStore(be, NewBus())
	got, err := s.Add(context.Background(), 1, 9, 1)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	be.AssertExpectations(t)
}
