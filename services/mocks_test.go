package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gonzalo-olmedo/comicstore/models"
	"github.com/gonzalo-olmedo/comicstore/repository"
)

var testLogger = zap.NewNop()

// --- Mocks for Dependencies ---

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

// Transaction runs fn against the same mock.
func (m *MockUserRepository) Transaction(ctx context.Context, fn func(repo repository.UserRepository) error) error {
	return fn(m)
}

func (m *MockUserRepository) CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	args := m.Called(ctx, rt)
	return args.Error(0)
}

func (m *MockUserRepository) GetRefreshTokenByTokenID(ctx context.Context, tokenID string) (*models.RefreshToken, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *MockUserRepository) RevokeRefreshTokenByTokenID(ctx context.Context, tokenID string) (int64, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) RevokeAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockRoleRepository struct{ mock.Mock }

func (m *MockRoleRepository) FindAll(ctx context.Context) ([]models.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Role), args.Error(1)
}

func (m *MockRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockRoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockRoleRepository) Create(ctx context.Context, role *models.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) Update(ctx context.Context, role *models.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type MockCategoryRepo struct{ mock.Mock }

func (m *MockCategoryRepo) FindAll(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepo) Update(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type MockProductRepo struct{ mock.Mock }

func (m *MockProductRepo) FindAll(ctx context.Context, filter repository.ProductFilter, offset, limit int) ([]models.Product, int64, error) {
	args := m.Called(ctx, filter, offset, limit)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepo) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockProductRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// fakeOrderStore is an in-memory OrderRepository. Transaction snapshots stock
// and restores it when fn fails, like a database rollback.
type fakeOrderStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	orders   []models.Order
	lockedIn [][]uuid.UUID
	failOn   string
}

func newFakeOrderStore(products ...models.Product) *fakeOrderStore {
	s := &fakeOrderStore{products: map[uuid.UUID]*models.Product{}}
	for i := range products {
		p := products[i]
		s.products[p.ID] = &p
	}
	return s
}

func (s *fakeOrderStore) stock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *fakeOrderStore) Transaction(ctx context.Context, fn func(tx repository.OrderTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[uuid.UUID]int, len(s.products))
	for id, p := range s.products {
		snapshot[id] = p.Stock
	}
	orderCount := len(s.orders)

	if err := fn(&fakeOrderTx{store: s}); err != nil {
		for id, stock := range snapshot {
			s.products[id].Stock = stock
		}
		s.orders = s.orders[:orderCount]
		return err
	}
	return nil
}

func (s *fakeOrderStore) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mine []models.Order
	for _, o := range s.orders {
		if o.UserID != nil && *o.UserID == userID {
			mine = append(mine, o)
		}
	}
	total := int64(len(mine))
	if offset >= len(mine) {
		return []models.Order{}, total, nil
	}
	end := offset + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[offset:end], total, nil
}

func (s *fakeOrderStore) FindByIDAndUserID(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		o := s.orders[i]
		if o.ID == id && o.UserID != nil && *o.UserID == userID {
			return &o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeOrderTx struct {
	store *fakeOrderStore
}

func (t *fakeOrderTx) LockProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	t.store.lockedIn = append(t.store.lockedIn, append([]uuid.UUID(nil), ids...))
	var out []models.Product
	for _, id := range ids {
		if p, ok := t.store.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (t *fakeOrderTx) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	p, ok := t.store.products[productID]
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	return true, nil
}

func (t *fakeOrderTx) CreateOrder(ctx context.Context, order *models.Order) error {
	if t.store.failOn == "create" {
		return io.ErrUnexpectedEOF
	}
	order.ID = uuid.New()
	for i := range order.OrderItems {
		order.OrderItems[i].ID = uuid.New()
		order.OrderItems[i].OrderID = order.ID
	}
	t.store.orders = append(t.store.orders, *order)
	return nil
}

type mockSNS struct {
	mu            sync.Mutex
	publishedArn  string
	publishedType string
	publishedMsg  []byte
	err           error
}

func (m *mockSNS) Publish(ctx context.Context, topicArn, eventType string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedArn = topicArn
	m.publishedType = eventType
	m.publishedMsg = append([]byte(nil), message...)
	return m.err
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeMetrics) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[metricName]++
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
	bumps       int
}

func (f *fakeCache) Invalidate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bumps++
	return nil
}

func (f *fakeCache) InvalidateProduct(ctx context.Context, productID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bumps++
	f.invalidated = append(f.invalidated, productID)
}

type fakeUploader struct {
	calls int
	url   string
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

// newFileHeader builds a multipart header backed by an in-memory body of size bytes.
func newFileHeader(filename, contentType string, size int) *multipart.FileHeader {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, _ := w.CreatePart(h)
	_, _ = part.Write(bytes.Repeat([]byte{0xFF}, size))
	_ = w.Close()

	r := multipart.NewReader(&buf, w.Boundary())
	form, err := r.ReadForm(int64(size) + 1024)
	if err != nil {
		panic(err)
	}
	return form.File["image"][0]
}
