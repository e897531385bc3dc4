package services

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/mivine/essentials-backend-go/cache"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

// fakeCheckouts mirrors the conditional writes of the mongo repository.
type fakeCheckouts struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Checkout
}

func newFakeCheckouts() *fakeCheckouts {
	return &fakeCheckouts{items: map[primitive.ObjectID]models.Checkout{}}
}

func (f *fakeCheckouts) Create(_ context.Context, c *models.Checkout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	f.items[c.ID] = *c
	return nil
}

func (f *fakeCheckouts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f *fakeCheckouts) MarkPaid(_ context.Context, id primitive.ObjectID, details models.PaymentDetails, paidAt time.Time) (*models.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok || c.IsFinalized || (c.State != models.CheckoutStateCreated && c.State != models.CheckoutStatePaid) {
		return nil, repository.ErrStateChanged
	}
	if tx, ok := details["txHash"]; ok {
		for otherID, other := range f.items {
			if otherID != id && other.PaymentDetails != nil && other.PaymentDetails["txHash"] == tx {
				return nil, repository.ErrDuplicate
			}
		}
	}
	c.IsPaid = true
	c.PaymentStatus = models.PaymentStatusPaid
	c.State = models.CheckoutStatePaid
	c.PaymentDetails = details
	c.PaidAt = &paidAt
	c.UpdatedAt = paidAt
	f.items[id] = c
	return &c, nil
}

func (f *fakeCheckouts) ClaimFinalization(ctx context.Context, id, orderID primitive.ObjectID, now, staleBefore time.Time) (*models.Checkout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok || !c.IsPaid || c.IsFinalized {
		return nil, repository.ErrStateChanged
	}
	if c.State != models.CheckoutStatePaid && !c.ClaimIsStale(staleBefore) {
		return nil, repository.ErrStateChanged
	}
	c.State = models.CheckoutStateFinalizing
	c.FinalizingAt = &now
	c.OrderID = &orderID
	c.UpdatedAt = now
	f.items[id] = c
	return &c, nil
}

func (f *fakeCheckouts) ReleaseFinalization(ctx context.Context, id primitive.ObjectID, claimedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok || c.State != models.CheckoutStateFinalizing || c.FinalizingAt == nil || !c.FinalizingAt.Equal(claimedAt) {
		return repository.ErrStateChanged
	}
	c.State = models.CheckoutStatePaid
	c.FinalizingAt = nil
	f.items[id] = c
	return nil
}

func (f *fakeCheckouts) CompleteFinalization(ctx context.Context, id, orderID primitive.ObjectID, now time.Time) (*models.Checkout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok || c.State != models.CheckoutStateFinalizing || c.OrderID == nil || *c.OrderID != orderID {
		return nil, repository.ErrStateChanged
	}
	c.State = models.CheckoutStateFinalized
	c.IsFinalized = true
	c.FinalizedAt = &now
	c.FinalizingAt = nil
	c.UpdatedAt = now
	f.items[id] = c
	return &c, nil
}

func (f *fakeCheckouts) put(c models.Checkout) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[c.ID] = c
}

type fakeOrders struct {
	mu        sync.Mutex
	items     map[primitive.ObjectID]models.Order
	insertErr error
	listErr   error
	// beforeInsert runs ahead of every Insert, outside the lock
	beforeInsert func(ctx context.Context) error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{items: map[primitive.ObjectID]models.Order{}}
}

func (f *fakeOrders) Insert(ctx context.Context, o *models.Order) error {
	if f.beforeInsert != nil {
		if err := f.beforeInsert(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if _, ok := f.items[o.ID]; ok {
		return repository.ErrDuplicate
	}
	f.items[o.ID] = *o
	return nil
}

func (f *fakeOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return f.list(func(o models.Order) bool { return o.User == userID })
}

func (f *fakeOrders) ListAll(context.Context) ([]models.Order, error) {
	return f.list(func(models.Order) bool { return true })
}

func (f *fakeOrders) list(keep func(models.Order) bool) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	orders := []models.Order{}
	for _, o := range f.items {
		if keep(o) {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (f *fakeOrders) Summary(context.Context) (repository.SalesSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s repository.SalesSummary
	for _, o := range f.items {
		s.TotalOrders++
		s.TotalSales += o.TotalPrice
	}
	return s, nil
}

func (f *fakeOrders) SetStatus(_ context.Context, id primitive.ObjectID, status string, delivered bool, now time.Time) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Status = status
	if delivered {
		o.IsDelivered = true
		o.DeliveredAt = &now
	}
	o.UpdatedAt = now
	f.items[id] = o
	return &o, nil
}

func (f *fakeOrders) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeCarts struct {
	mu       sync.Mutex
	items    map[primitive.ObjectID]models.Cart
	clearErr error
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{items: map[primitive.ObjectID]models.Cart{}}
}

func (f *fakeCarts) Find(_ context.Context, owner models.CartOwner) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if owner.UserID != nil && c.User != nil && *c.User == *owner.UserID {
			return copyCart(c), nil
		}
		if owner.UserID == nil && c.GuestID == owner.GuestID {
			return copyCart(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCarts) Save(_ context.Context, c *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.items {
		if id == c.ID {
			continue
		}
		sameUser := c.User != nil && existing.User != nil && *c.User == *existing.User
		sameGuest := c.GuestID != "" && c.GuestID == existing.GuestID
		if sameUser || sameGuest {
			return repository.ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	f.items[c.ID] = *copyCart(*c)
	return nil
}

func (f *fakeCarts) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeCarts) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return 0, f.clearErr
	}
	var n int64
	for id, c := range f.items {
		if c.User != nil && *c.User == userID {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeCarts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func copyCart(c models.Cart) *models.Cart {
	c.Products = append([]models.LineItem(nil), c.Products...)
	return &c
}

type fakeProducts struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Product
}

func newFakeProducts(products ...models.Product) *fakeProducts {
	f := &fakeProducts{items: map[primitive.ObjectID]models.Product{}}
	for _, p := range products {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProducts) Insert(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.SKU == p.SKU {
			return repository.ErrDuplicate
		}
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	f.items[p.ID] = *p
	return nil
}

func (f *fakeProducts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// List honours the filter fields the services set themselves.
func (f *fakeProducts) List(_ context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	products := []models.Product{}
	for _, p := range f.items {
		if filter.Gender != "" && p.Gender != filter.Gender {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.ExcludeID != nil && p.ID == *filter.ExcludeID {
			continue
		}
		products = append(products, p)
	}
	switch filter.Sort {
	case repository.SortPopularity:
		sort.Slice(products, func(i, j int) bool { return products[i].Rating > products[j].Rating })
	case repository.SortNewest:
		sort.Slice(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
	}
	if filter.Limit > 0 && int64(len(products)) > filter.Limit {
		products = products[:filter.Limit]
	}
	return products, nil
}

func (f *fakeProducts) Update(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[p.ID]; !ok {
		return repository.ErrNotFound
	}
	f.items[p.ID] = *p
	return nil
}

func (f *fakeProducts) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{items: map[primitive.ObjectID]models.User{}}
}

func (f *fakeUsers) Insert(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.items[u.ID] = *u
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) Summaries(_ context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summaries := []models.UserSummary{}
	for _, id := range ids {
		if u, ok := f.items[id]; ok {
			summaries = append(summaries, models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email})
		}
	}
	return summaries, nil
}

func (f *fakeUsers) List(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := []models.User{}
	for _, u := range f.items {
		u.Password = ""
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeUsers) Update(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, existing := range f.items {
		if id != u.ID && existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	stored.Name, stored.Email, stored.Role = u.Name, u.Email, u.Role
	f.items[u.ID] = stored
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeCache struct {
	mu       sync.Mutex
	items    map[string]models.Cart
	versions map[string]int64
	getErr   error
	sets     int
	deleteFn func(owner models.CartOwner) error
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]models.Cart{}, versions: map[string]int64{}}
}

func (f *fakeCache) Get(_ context.Context, owner models.CartOwner) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.items[owner.Key()]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return copyCart(c), nil
}

func (f *fakeCache) Version(_ context.Context, owner models.CartOwner) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.versions[owner.Key()], nil
}

func (f *fakeCache) Set(_ context.Context, owner models.CartOwner, c *models.Cart, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.versions[owner.Key()] != version {
		return cache.ErrStaleVersion
	}
	f.sets++
	f.items[owner.Key()] = *copyCart(*c)
	return nil
}

func (f *fakeCache) Delete(_ context.Context, owners ...models.CartOwner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, owner := range owners {
		if f.deleteFn != nil {
			if err := f.deleteFn(owner); err != nil {
				return err
			}
		}
		f.versions[owner.Key()]++
		delete(f.items, owner.Key())
	}
	return nil
}

func (f *fakeCache) has(owner models.CartOwner) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[owner.Key()]
	return ok
}
