package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"smooth/internal/models"
	"smooth/internal/repositories"
	"smooth/internal/services"
	"smooth/internal/store"
	"smooth/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRecordRepository is a mock implementation of repositories.RecordRepository
type MockRecordRepository[T any] struct {
	mock.Mock
}

func (m *MockRecordRepository[T]) Create(ctx context.Context, record T) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

func (m *MockRecordRepository[T]) Update(ctx context.Context, key string, record T) error {
	args := m.Called(ctx, key, record)
	return args.Error(0)
}

func (m *MockRecordRepository[T]) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRecordRepository[T]) Subscribe(ctx context.Context, fn repositories.SnapshotFunc[T]) (func(), error) {
	args := m.Called(ctx, fn)
	return func() {}, args.Error(0)
}

func (m *MockRecordRepository[T]) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRecordRepository[T]) UpdateMode() repositories.UpdateMode {
	args := m.Called()
	return args.Get(0).(repositories.UpdateMode)
}

type recordedEvents struct {
	events []models.RecordEvent
	err    error
}

func (r *recordedEvents) PublishRecordEvent(event models.RecordEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func fixedClock(s string) func() time.Time {
	return func() time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return t
	}
}

func fillProduct(t *testing.T, form *services.Form[models.Product]) {
	t.Helper()
	require.NoError(t, form.SetAll(map[string]string{
		"name":            "Camisa Azul",
		"type":            "Camisa",
		"color":           "Azul",
		"price":           "1050",
		"characteristics": "Algodão",
	}))
}

func treeService[T any](t *testing.T, schema *services.Schema[T], events services.EventPublisher) (*services.FormService[T], *store.MemoryTree) {
	t.Helper()
	tree := store.NewMemoryTree()
	repo := repositories.NewTreeRepository[T](tree, schema.Collection, zap.NewNop())
	list := services.NewListBinder[T]()
	cancel, err := list.Bind(context.Background(), repo)
	require.NoError(t, err)
	t.Cleanup(cancel)

	return services.NewFormService(schema, repo, list, validation.New(), events, zap.NewNop()), tree
}

func TestForm_CreateProductCallsRepositoryOnceAndClears(t *testing.T) {
	repo := new(MockRecordRepository[models.Product])
	svc := services.NewFormService(services.ProductSchema(), repo, services.NewListBinder[models.Product](), validation.New(), nil, zap.NewNop())
	ctx := context.Background()

	want := models.Product{Name: "Camisa Azul", Type: "Camisa", Color: "Azul", Price: "10,50", Characteristics: "Algodão"}
	repo.On("Create", ctx, want).Return("k1", nil).Once()
	repo.On("UpdateMode").Return(repositories.PushDriven)

	form := svc.NewForm()
	fillProduct(t, form)
	assert.Equal(t, "10,50", form.State().Fields["price"])

	key, err := form.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k1", key)

	state := form.State()
	assert.Equal(t, "", state.Fields["name"])
	assert.Equal(t, "", state.Fields["price"])
	assert.Equal(t, "Camisa", state.Fields["type"])
	assert.Equal(t, "Preto", state.Fields["color"])
	assert.Empty(t, state.Errors)
	assert.Empty(t, state.EditKey)
	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestForm_CreateProductAppearsNewestFirst(t *testing.T) {
	svc, _ := treeService(t, services.ProductSchema(), nil)
	ctx := context.Background()
	require.True(t, svc.List().Loaded())
	require.Empty(t, svc.List().Items())

	form := svc.NewForm()
	fillProduct(t, form)
	first, err := form.Submit(ctx)
	require.NoError(t, err)

	require.NoError(t, form.SetAll(map[string]string{
		"name": "Calça Jeans", "type": "Calça", "color": "Azul", "price": "8990", "characteristics": "Jeans",
	}))
	second, err := form.Submit(ctx)
	require.NoError(t, err)

	items := svc.List().Items()
	require.Len(t, items, 2)
	assert.Equal(t, second, items[0].Key)
	assert.Equal(t, "89,90", items[0].Record.Price)
	assert.Equal(t, first, items[1].Key)
	assert.Equal(t, "Camisa Azul", items[1].Record.Name)
}

func TestForm_EditSupplierSendsEveryField(t *testing.T) {
	repo := new(MockRecordRepository[models.Supplier])
	list := services.NewListBinder[models.Supplier]()
	svc := services.NewFormService(services.SupplierSchema(), repo, list, validation.New(), nil, zap.NewNop())
	ctx := context.Background()

	stored := models.Supplier{CorporateName: "Tecidos SA", CNPJ: "12.345.678/0001-95", Email: "contato@tecidos.com", Phone: "(11) 98765-4321"}
	list.Replace([]models.Entry[models.Supplier]{{Key: "s1", Record: stored}})

	updated := stored
	updated.Phone = "(21) 91234-5678"
	repo.On("Update", ctx, "s1", updated).Return(nil).Once()
	repo.On("UpdateMode").Return(repositories.PushDriven)

	form := svc.NewForm()
	require.NoError(t, form.Edit("s1"))
	assert.Equal(t, "s1", form.State().EditKey)
	assert.Equal(t, "Tecidos SA", form.State().Fields["corporateName"])

	phone, err := form.Set("phone", "21912345678")
	require.NoError(t, err)
	assert.Equal(t, "(21) 91234-5678", phone)

	key, err := form.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", key)
	assert.Empty(t, form.State().EditKey)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestForm_EditSupplierUpdatesListInPlace(t *testing.T) {
	svc, _ := treeService(t, services.SupplierSchema(), nil)
	ctx := context.Background()

	form := svc.NewForm()
	require.NoError(t, form.SetAll(map[string]string{
		"corporateName": "Tecidos SA", "cnpj": "12345678000195", "email": "contato@tecidos.com", "phone": "11987654321",
	}))
	key, err := form.Submit(ctx)
	require.NoError(t, err)

	require.NoError(t, form.Edit(key))
	_, err = form.Set("phone", "21912345678")
	require.NoError(t, err)
	_, err = form.Submit(ctx)
	require.NoError(t, err)

	items := svc.List().Items()
	require.Len(t, items, 1)
	assert.Equal(t, key, items[0].Key)
	assert.Equal(t, "(21) 91234-5678", items[0].Record.Phone)
	assert.Equal(t, "12.345.678/0001-95", items[0].Record.CNPJ)
}

func TestFormService_DeleteRequiresConfirmation(t *testing.T) {
	repo := new(MockRecordRepository[models.Review])
	svc := services.NewFormService(services.ReviewSchema(), repo, services.NewListBinder[models.Review](), validation.New(), nil, zap.NewNop())
	ctx := context.Background()

	err := svc.Delete(ctx, "r1", false)
	assert.ErrorIs(t, err, services.ErrDeleteNotConfirmed)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	repo.On("Delete", ctx, "r1").Return(nil).Once()
	repo.On("UpdateMode").Return(repositories.Refetch)
	repo.On("Refresh", ctx).Return(nil).Once()
	require.NoError(t, svc.Delete(ctx, "r1", true))
	repo.AssertExpectations(t)
}

func TestFormService_DeleteFromTreeUpdatesList(t *testing.T) {
	svc, _ := treeService(t, services.ProductSchema(), nil)
	ctx := context.Background()

	form := svc.NewForm()
	fillProduct(t, form)
	key, err := form.Submit(ctx)
	require.NoError(t, err)
	require.Len(t, svc.List().Items(), 1)

	require.NoError(t, svc.Delete(ctx, key, true))
	assert.Empty(t, svc.List().Items())
}

func TestForm_InvalidInputNeverReachesRepository(t *testing.T) {
	repo := new(MockRecordRepository[models.Product])
	svc := services.NewFormService(services.ProductSchema(), repo, services.NewListBinder[models.Product](), validation.New(), nil, zap.NewNop())

	form := svc.NewForm()
	_, err := form.Set("name", "Camisa Azul")
	require.NoError(t, err)

	_, err = form.Submit(context.Background())
	var errs validation.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "Preço do produto é obrigatório", errs["price"])
	assert.Equal(t, "Características do produto são obrigatórias", errs["characteristics"])
	assert.NotContains(t, errs, "name")

	state := form.State()
	assert.Equal(t, "Camisa Azul", state.Fields["name"])
	assert.Equal(t, errs, state.Errors)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestForm_BackendFailureKeepsFormAndList(t *testing.T) {
	repo := new(MockRecordRepository[models.Product])
	list := services.NewListBinder[models.Product]()
	existing := []models.Entry[models.Product]{{Key: "p0", Record: models.Product{Name: "Boné"}}}
	list.Replace(existing)
	events := &recordedEvents{}
	svc := services.NewFormService(services.ProductSchema(), repo, list, validation.New(), events, zap.NewNop())

	boom := errors.New("permission denied")
	repo.On("Create", mock.Anything, mock.Anything).Return("", boom).Once()

	form := svc.NewForm()
	fillProduct(t, form)
	before := form.State()

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, form.State())
	assert.Equal(t, existing, list.Items())
	assert.Empty(t, events.events)
	repo.AssertNotCalled(t, "Refresh", mock.Anything)
}

func TestForm_RefetchRepositoryIsRefreshedAfterSave(t *testing.T) {
	repo := new(MockRecordRepository[models.Product])
	svc := services.NewFormService(services.ProductSchema(), repo, services.NewListBinder[models.Product](), validation.New(), nil, zap.NewNop())
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return("7", nil).Once()
	repo.On("UpdateMode").Return(repositories.Refetch)
	repo.On("Refresh", ctx).Return(errors.New("timeout")).Once()

	form := svc.NewForm()
	fillProduct(t, form)
	key, err := form.Submit(ctx)
	require.NoError(t, err, "a failed refresh does not fail the save")
	assert.Equal(t, "7", key)
	repo.AssertExpectations(t)
}

func TestForm_ReviewDateSetOnCreateOnly(t *testing.T) {
	svc, _ := treeService(t, services.ReviewSchema(), nil)
	ctx := context.Background()
	svc.SetClock(fixedClock("2026-10-19T10:00:00Z"))

	form := svc.NewForm()
	_, err := form.Set("reviewDate", "2020-01-01")
	assert.ErrorIs(t, err, services.ErrReadOnlyField)

	require.NoError(t, form.SetAll(map[string]string{
		"customerName": "Ana Souza",
		"grade":        "0",
		"comment":      "Entrega atrasou bastante",
		"image":        "https://example.com/pedido.png",
	}))
	key, err := form.Submit(ctx)
	require.NoError(t, err, "grade 0 is a valid grade")

	entry, ok := svc.List().Find(key)
	require.True(t, ok)
	assert.Equal(t, "2026-10-19", entry.Record.ReviewDate)
	assert.Equal(t, 0, entry.Record.GradeValue())

	svc.SetClock(fixedClock("2026-12-01T10:00:00Z"))
	require.NoError(t, form.Edit(key))
	_, err = form.Set("grade", "5")
	require.NoError(t, err)
	_, err = form.Submit(ctx)
	require.NoError(t, err)

	entry, ok = svc.List().Find(key)
	require.True(t, ok)
	assert.Equal(t, "5", entry.Record.Grade)
	assert.Equal(t, "2026-10-19", entry.Record.ReviewDate)
}

func TestForm_InputIsMasked(t *testing.T) {
	svc, _ := treeService(t, services.ReviewSchema(), nil)
	form := svc.NewForm()

	name, err := form.Set("customerName", "R2D2 Souza")
	require.NoError(t, err)
	assert.Equal(t, "RD Souza", name)

	grade, err := form.Set("grade", "9")
	require.NoError(t, err)
	assert.Equal(t, "", grade)

	_, err = form.Set("sku", "1")
	assert.ErrorIs(t, err, services.ErrUnknownField)

	err = form.SetAll(map[string]string{"comment": "Ótimo atendimento", "reviewDate": "2020-01-01"})
	assert.ErrorIs(t, err, services.ErrReadOnlyField)
	assert.Equal(t, "", form.State().Fields["comment"], "nothing is applied when one input is rejected")
}

func TestForm_EditUnknownKey(t *testing.T) {
	svc, _ := treeService(t, services.ProductSchema(), nil)
	assert.ErrorIs(t, svc.NewForm().Edit("missing"), services.ErrNotInList)
}

func TestForm_ClearLeavesEditMode(t *testing.T) {
	svc, _ := treeService(t, services.ProductSchema(), nil)
	form := svc.NewForm()
	fillProduct(t, form)
	key, err := form.Submit(context.Background())
	require.NoError(t, err)

	require.NoError(t, form.Edit(key))
	form.Clear()
	state := form.State()
	assert.Empty(t, state.EditKey)
	assert.Equal(t, "", state.Fields["name"])
	assert.Equal(t, "Camisa", state.Fields["type"])
}

func TestForm_PublishesConfirmedMutations(t *testing.T) {
	events := &recordedEvents{err: errors.New("broker down")}
	svc, _ := treeService(t, services.ProductSchema(), events)
	svc.SetClock(fixedClock("2026-10-19T10:00:00Z"))
	ctx := context.Background()

	form := svc.NewForm()
	fillProduct(t, form)
	key, err := form.Submit(ctx)
	require.NoError(t, err, "publish failures do not fail the save")
	require.NoError(t, svc.Delete(ctx, key, true))

	require.Len(t, events.events, 2)
	assert.Equal(t, "product.created", events.events[0].RoutingKey())
	assert.Equal(t, key, events.events[0].Key)
	assert.Equal(t, "10,50", events.events[0].Fields["price"])
	assert.Equal(t, "product.deleted", events.events[1].RoutingKey())
	assert.Nil(t, events.events[1].Fields)
}
