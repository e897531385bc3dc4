package services

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/repository"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

type CreateOrderInput struct {
	Items           []models.LineItem      `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	TotalPrice      float64                `json:"totalPrice"`
}

// OrderView is an order with its owner's name and email in place of the bare
// user id. User is nil when the account no longer exists.
type OrderView struct {
	models.Order
	User *models.UserSummary `json:"user"`
}

// MyOrders is the signed-in user's order history.
type MyOrders struct {
	Orders      []models.Order `json:"orders"`
	TotalOrders int64          `json:"totalOrders"`
}

// AdminOrderList is every order with the store-wide counters.
type AdminOrderList struct {
	Orders      []OrderView `json:"orders"`
	TotalOrders int64       `json:"totalOrders"`
	TotalSales  float64     `json:"totalSales"`
}

type OrderService struct {
	orders repository.OrderRepository
	users  repository.UserRepository
	logger echo.Logger
	now    func() time.Time
}

func NewOrderService(orders repository.OrderRepository, users repository.UserRepository, logger echo.Logger) *OrderService {
	return &OrderService{orders: orders, users: users, logger: logger, now: time.Now}
}

func (s *OrderService) ListMine(ctx context.Context, userID primitive.ObjectID) (*MyOrders, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fault(err, "list user orders")
	}
	return &MyOrders{Orders: orders, TotalOrders: int64(len(orders))}, nil
}

// Get returns an order to its owner or to an admin. Anyone else gets the same
// answer as for a missing order.
func (s *OrderService) Get(ctx context.Context, userID primitive.ObjectID, isAdmin bool, id primitive.ObjectID) (*OrderView, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.User != userID {
		return nil, notFound("Order not found")
	}
	views, err := s.withUsers(ctx, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Create stores an order placed without a checkout session. It is not marked
// paid.
func (s *OrderService) Create(ctx context.Context, userID primitive.ObjectID, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, invalid("No order items")
	}
	if err := validateLines(in.Items, in.TotalPrice); err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		ID:              primitive.NewObjectID(),
		User:            userID,
		OrderItems:      in.Items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		TotalPrice:      in.TotalPrice,
		PaymentStatus:   models.PaymentStatusPending,
		Status:          models.OrderStatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, fault(err, "create order")
	}

	s.logger.Infoj(log.JSON{"msg": "order created", "order": order.ID.Hex(), "user": userID.Hex(), "total": order.TotalPrice})
	return order, nil
}

// ListAll loads every order together with the sales summary.
func (s *OrderService) ListAll(ctx context.Context) (*AdminOrderList, error) {
	var (
		eg      errgroup.Group
		orders  []models.Order
		summary repository.SalesSummary
	)
	eg.Go(func() error {
		var err error
		orders, err = s.orders.ListAll(ctx)
		return err
	})
	eg.Go(func() error {
		var err error
		summary, err = s.orders.Summary(ctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fault(err, "list orders")
	}
	views, err := s.withUsers(ctx, orders)
	if err != nil {
		return nil, err
	}
	return &AdminOrderList{Orders: views, TotalOrders: summary.TotalOrders, TotalSales: summary.TotalSales}, nil
}

// UpdateStatus sets the order status. An empty status keeps the current one.
// Only "Delivered" has side effects: the order is flagged delivered and
// stamped.
func (s *OrderService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, error) {
	if status == "" {
		return s.find(ctx, id)
	}

	delivered := status == models.OrderStatusDelivered
	order, err := s.orders.SetStatus(ctx, id, status, delivered, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Order not found")
	}
	if err != nil {
		return nil, fault(err, "update order status")
	}

	s.logger.Infoj(log.JSON{"msg": "order status updated", "order": id.Hex(), "status": status})
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.orders.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("Order not found")
	}
	if err != nil {
		return fault(err, "delete order")
	}
	s.logger.Infoj(log.JSON{"msg": "order removed", "order": id.Hex()})
	return nil
}

func (s *OrderService) find(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Order not found")
	}
	if err != nil {
		return nil, fault(err, "get order")
	}
	return order, nil
}

// withUsers attaches owner summaries, loading each distinct user once.
func (s *OrderService) withUsers(ctx context.Context, orders []models.Order) ([]OrderView, error) {
	seen := make(map[primitive.ObjectID]bool, len(orders))
	ids := make([]primitive.ObjectID, 0, len(orders))
	for _, o := range orders {
		if !seen[o.User] {
			seen[o.User] = true
			ids = append(ids, o.User)
		}
	}

	summaries, err := s.users.Summaries(ctx, ids)
	if err != nil {
		return nil, fault(err, "load order owners")
	}
	byID := make(map[primitive.ObjectID]*models.UserSummary, len(summaries))
	for i := range summaries {
		byID[summaries[i].ID] = &summaries[i]
	}

	views := make([]OrderView, len(orders))
	for i, o := range orders {
		views[i] = OrderView{Order: o, User: byID[o.User]}
	}
	return views, nil
}
