package services

import (
	"context"
	"math"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/mivine/essentials-backend-go/metrics"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/payment"
	"github.com/mivine/essentials-backend-go/repository"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// priceTolerance absorbs float rounding when comparing a submitted total with
// the sum of its lines.
const priceTolerance = 0.01

// settleTimeout bounds the writes that settle a claim once the order insert
// has run. They run detached from the request so a client that goes away
// does not leave the session locked until the claim goes stale.
const settleTimeout = 5 * time.Second

// CartClearer empties every cart a user owns.
type CartClearer interface {
	ClearUser(ctx context.Context, userID primitive.ObjectID) error
}

type CreateCheckoutInput struct {
	Items           []models.LineItem      `json:"checkoutItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	TotalPrice      float64                `json:"totalPrice"`
}

// CheckoutService moves checkout sessions through created → paid → finalized
// and turns finalized sessions into orders.
type CheckoutService struct {
	checkouts repository.CheckoutRepository
	orders    repository.OrderRepository
	carts     CartClearer
	verifier  payment.Verifier
	metrics   *metrics.Metrics
	logger    echo.Logger
	claimTTL  time.Duration
	now       func() time.Time
}

func NewCheckoutService(
	checkouts repository.CheckoutRepository,
	orders repository.OrderRepository,
	carts CartClearer,
	verifier payment.Verifier,
	m *metrics.Metrics,
	logger echo.Logger,
	claimTTL time.Duration,
) *CheckoutService {
	return &CheckoutService{
		checkouts: checkouts,
		orders:    orders,
		carts:     carts,
		verifier:  verifier,
		metrics:   m,
		logger:    logger,
		claimTTL:  claimTTL,
		now:       time.Now,
	}
}

func (s *CheckoutService) Create(ctx context.Context, userID primitive.ObjectID, in CreateCheckoutInput) (c *models.Checkout, err error) {
	defer func() { s.observe("create", err) }()

	if len(in.Items) == 0 {
		return nil, invalid("no items in checkout")
	}
	if err := validateLines(in.Items, in.TotalPrice); err != nil {
		return nil, err
	}

	now := s.now()
	c = &models.Checkout{
		User:            userID,
		CheckoutItems:   in.Items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		TotalPrice:      in.TotalPrice,
		State:           models.CheckoutStateCreated,
		PaymentStatus:   models.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.checkouts.Create(ctx, c); err != nil {
		return nil, s.fail(fault(err, "create checkout"), c.ID)
	}

	s.logger.Infoj(log.JSON{"msg": "checkout created", "checkout": c.ID.Hex(), "user": userID.Hex(), "total": c.TotalPrice})
	return c, nil
}

func (s *CheckoutService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Checkout, error) {
	return s.load(ctx, userID, id)
}

// MarkPaid records a payment confirmation. The status must be "paid" and the
// configured verifier must accept the details; the caller's word alone is not
// enough.
func (s *CheckoutService) MarkPaid(ctx context.Context, userID, id primitive.ObjectID, status string, details models.PaymentDetails) (c *models.Checkout, err error) {
	defer func() { s.observe("pay", err) }()

	c, err = s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if status != string(models.PaymentStatusPaid) {
		return nil, invalid("Invalid payment Status")
	}
	if c.IsFinalized || c.State == models.CheckoutStateFinalizing {
		return nil, conflict("Checkout already finalized")
	}

	ok, err := s.verifier.Verify(ctx, c, details)
	if err != nil {
		return nil, s.fail(fault(err, "verify payment"), id)
	}
	if !ok {
		return nil, invalid("payment could not be verified")
	}

	updated, err := s.checkouts.MarkPaid(ctx, id, details, s.now())
	if errors.Is(err, repository.ErrStateChanged) {
		return nil, conflict("Checkout already finalized")
	}
	if errors.Is(err, repository.ErrDuplicate) {
		s.logger.Warnj(log.JSON{"msg": "payment proof reused", "checkout": id.Hex(), "user": userID.Hex()})
		return nil, conflict("Payment already used for another checkout")
	}
	if err != nil {
		return nil, s.fail(fault(err, "mark checkout paid"), id)
	}

	s.logger.Infoj(log.JSON{"msg": "checkout paid", "checkout": id.Hex(), "user": userID.Hex()})
	return updated, nil
}

// Finalize converts a paid session into an order exactly once and empties the
// owner's cart. The paid → finalizing step is a conditional write, so
// concurrent calls for one session cannot both create an order.
func (s *CheckoutService) Finalize(ctx context.Context, userID, id primitive.ObjectID) (order *models.Order, err error) {
	defer func() { s.observe("finalize", err) }()

	c, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	switch {
	case c.IsPaid && !c.IsFinalized:
	case c.IsFinalized:
		return nil, conflict("Checkout already finalized")
	default:
		return nil, invalid("Checkout is not paid")
	}

	now := s.now()
	staleBefore := now.Add(-s.claimTTL)
	if c.State == models.CheckoutStateFinalizing && !c.ClaimIsStale(staleBefore) {
		return nil, conflict("Checkout finalization in progress")
	}

	// a retry after a failed attempt keeps the order id reserved by it
	orderID := primitive.NewObjectID()
	if c.OrderID != nil {
		orderID = *c.OrderID
	}

	claimed, err := s.checkouts.ClaimFinalization(ctx, id, orderID, now, staleBefore)
	if errors.Is(err, repository.ErrStateChanged) {
		return nil, s.lostClaim(ctx, id)
	}
	if err != nil {
		return nil, s.fail(fault(err, "claim checkout"), id)
	}

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	order, err = s.materialize(ctx, claimed, orderID, now)
	if err != nil {
		// only this attempt's claim is released; a newer one is left alone
		if rerr := s.checkouts.ReleaseFinalization(settleCtx, id, *claimed.FinalizingAt); rerr != nil {
			s.logger.Errorj(log.JSON{"msg": "failed to release checkout claim", "checkout": id.Hex(), "error": rerr.Error()})
		}
		return nil, s.fail(fault(err, "create order"), id)
	}

	if _, err := s.checkouts.CompleteFinalization(settleCtx, id, orderID, s.now()); err != nil {
		return nil, s.fail(fault(err, "finalize checkout"), id)
	}

	if err := s.carts.ClearUser(settleCtx, claimed.User); err != nil {
		return nil, s.fail(fault(err, "clear cart"), id)
	}

	s.logger.Infoj(log.JSON{"msg": "checkout finalized", "checkout": id.Hex(), "order": order.ID.Hex(), "user": claimed.User.Hex()})
	return order, nil
}

// materialize inserts the order for a claimed session. An order already stored
// under the reserved id belongs to an earlier attempt and is reused.
func (s *CheckoutService) materialize(ctx context.Context, c *models.Checkout, orderID primitive.ObjectID, now time.Time) (*models.Order, error) {
	order := models.OrderFromCheckout(orderID, c, now)
	err := s.orders.Insert(ctx, order)
	if errors.Is(err, repository.ErrDuplicate) {
		return s.orders.FindByID(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// lostClaim explains why a claim found the session in another state.
func (s *CheckoutService) lostClaim(ctx context.Context, id primitive.ObjectID) error {
	current, err := s.checkouts.FindByID(ctx, id)
	if err != nil {
		return s.fail(fault(err, "reload checkout"), id)
	}
	if current.IsFinalized {
		return conflict("Checkout already finalized")
	}
	return conflict("Checkout finalization in progress")
}

func (s *CheckoutService) load(ctx context.Context, userID, id primitive.ObjectID) (*models.Checkout, error) {
	c, err := s.checkouts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Checkout not found")
	}
	if err != nil {
		return nil, s.fail(fault(err, "get checkout"), id)
	}
	if c.User != userID {
		return nil, notFound("Checkout not found")
	}
	return c, nil
}

func (s *CheckoutService) fail(err error, id primitive.ObjectID) error {
	s.logger.Errorj(log.JSON{"msg": "checkout operation failed", "checkout": id.Hex(), "error": err.Error()})
	return err
}

func (s *CheckoutService) observe(transition string, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	s.metrics.Transition(transition, result)
}

// validateLines checks quantities and prices and that total matches the lines.
func validateLines(items []models.LineItem, total float64) error {
	for _, item := range items {
		if item.ProductID.IsZero() {
			return invalid("item is missing a product")
		}
		if item.Quantity < 1 {
			return invalid("item quantity must be at least 1")
		}
		if item.Price < 0 {
			return invalid("item price cannot be negative")
		}
	}
	if math.Abs(models.ItemsTotal(items)-total) > priceTolerance {
		return invalid("total price does not match items")
	}
	return nil
}
