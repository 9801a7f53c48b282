package services

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
	"github.com/gonzalo-olmedo/comicstore/models"
	aws_pkg "github.com/gonzalo-olmedo/comicstore/pkg/aws"
	"github.com/gonzalo-olmedo/comicstore/repository"
)

const EventOrderPlaced = "order_placed"

type OrderLineInput struct {
	Product  uuid.UUID `json:"product" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1,max=1000"`
}

// MaxLineQuantity caps the quantity of one product in a single order, after
// repeated lines are merged.
const MaxLineQuantity = 1000

// PlaceOrderInput is the checkout request. Metadata left empty gets the store
// defaults; any client supplied total is not part of the contract.
type PlaceOrderInput struct {
	OrderItems     []OrderLineInput `json:"order_items" binding:"required,dive"`
	State          string           `json:"state" binding:"max=45"`
	PaymentMethod  string           `json:"payment_method" binding:"max=45"`
	ShippingMethod string           `json:"shipping_method" binding:"max=45"`
	PaymentStatus  string           `json:"payment_status" binding:"max=45"`
}

type OrderItemView struct {
	ID        uuid.UUID  `json:"id"`
	ProductID *uuid.UUID `json:"product_id"`
	Product   string     `json:"product"`
	Quantity  int        `json:"quantity"`
	UnitPrice string     `json:"unit_price"`
	Subtotal  string     `json:"subtotal"`
}

type OrderView struct {
	ID             uuid.UUID       `json:"id"`
	User           string          `json:"user"`
	State          string          `json:"state"`
	OrderDate      string          `json:"order_date"`
	PaymentMethod  string          `json:"payment_method"`
	ShippingMethod string          `json:"shipping_method"`
	PaymentStatus  string          `json:"payment_status"`
	TotalAmount    string          `json:"total_amount"`
	CreatedAt      time.Time       `json:"created_at"`
	OrderItems     []OrderItemView `json:"order_items"`
}

// NewOrderView renders an order the way order history shows it.
func NewOrderView(o *models.Order) OrderView {
	view := OrderView{
		ID:             o.ID,
		State:          o.State,
		OrderDate:      o.OrderDate.Format("2006-01-02"),
		PaymentMethod:  o.PaymentMethod,
		ShippingMethod: o.ShippingMethod,
		PaymentStatus:  o.PaymentStatus,
		TotalAmount:    o.TotalAmount.StringFixed(2),
		CreatedAt:      o.CreatedAt,
		OrderItems:     make([]OrderItemView, 0, len(o.OrderItems)),
	}
	if o.User != nil {
		view.User = o.User.Email
	}
	for i := range o.OrderItems {
		item := &o.OrderItems[i]
		view.OrderItems = append(view.OrderItems, OrderItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Product:   item.ProductLabel(),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal().StringFixed(2),
		})
	}
	return view
}

type OrderListResponse struct {
	Orders []OrderView `json:"orders"`
	Meta   MetaData    `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderPlacedEvent is published after a successful checkout.
type OrderPlacedEvent struct {
	EventType   string            `json:"event_type"`
	OrderID     string            `json:"order_id"`
	UserID      string            `json:"user_id"`
	TotalAmount string            `json:"total_amount"`
	Items       []OrderPlacedItem `json:"items"`
	Timestamp   time.Time         `json:"timestamp"`
}

type OrderPlacedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*OrderView, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) (*OrderListResponse, error)
	GetUserOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error)
}

type orderServiceImpl struct {
	repo        repository.OrderRepository
	snsClient   aws_pkg.SNSPublisher
	snsTopicArn string
	metrics     MetricsRecorder
	cache       CatalogCache
	logger      *zap.Logger
}

func NewOrderService(
	repo repository.OrderRepository,
	snsClient aws_pkg.SNSPublisher,
	snsTopicArn string,
	metrics MetricsRecorder,
	cache CatalogCache,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		repo:        repo,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		metrics:     metrics,
		cache:       cache,
		logger:      logger,
	}
}

type orderLine struct {
	productID uuid.UUID
	quantity  int
}

// aggregateLines merges repeated products so stock is checked against the
// combined quantity. Lines keep the order of first appearance.
func aggregateLines(items []OrderLineInput) ([]orderLine, error) {
	if len(items) == 0 {
		return nil, apperrors.Validation(apperrors.ErrInvalidOrder.Message, map[string]string{
			"order_items": "at least one item is required",
		})
	}
	index := make(map[uuid.UUID]int, len(items))
	lines := make([]orderLine, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, apperrors.Validation(apperrors.ErrInvalidOrder.Message, map[string]string{
				"order_items": "quantity must be at least 1",
			})
		}
		if item.Quantity > MaxLineQuantity {
			return nil, quantityTooLarge()
		}
		if i, ok := index[item.Product]; ok {
			if lines[i].quantity > MaxLineQuantity-item.Quantity {
				return nil, quantityTooLarge()
			}
			lines[i].quantity += item.Quantity
			continue
		}
		index[item.Product] = len(lines)
		lines = append(lines, orderLine{productID: item.Product, quantity: item.Quantity})
	}
	return lines, nil
}

func quantityTooLarge() error {
	return apperrors.Validation(apperrors.ErrInvalidOrder.Message, map[string]string{
		"order_items": fmt.Sprintf("quantity must be at most %d per product", MaxLineQuantity),
	})
}

func insufficientStock(names []string) error {
	msgs := make([]string, 0, len(names))
	for _, n := range names {
		msgs = append(msgs, fmt.Sprintf("not enough stock for %s", n))
	}
	return apperrors.Validation(apperrors.ErrInsufficientStock.Message, map[string]string{
		"order_items": strings.Join(msgs, "; "),
	})
}

func withDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func (s *orderServiceImpl) PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*OrderView, error) {
	lines, err := aggregateLines(in.OrderItems)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.repo.Transaction(ctx, func(tx repository.OrderTx) error {
		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.productID)
		}
		sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

		locked, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*models.Product, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}

		var missing, short []string
		for _, l := range lines {
			p, ok := byID[l.productID]
			if !ok {
				missing = append(missing, l.productID.String())
				continue
			}
			if p.Stock < l.quantity {
				short = append(short, p.Name)
			}
		}
		if len(missing) > 0 {
			return apperrors.Validation(apperrors.ErrInvalidOrder.Message, map[string]string{
				"order_items": "unknown product: " + strings.Join(missing, ", "),
			})
		}
		if len(short) > 0 {
			return insufficientStock(short)
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(lines))
		for _, l := range lines {
			p := byID[l.productID]
			pid := p.ID
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
			items = append(items, models.OrderItem{
				ProductID: &pid,
				Product:   p,
				Quantity:  l.quantity,
				UnitPrice: p.Price,
			})
		}

		for _, l := range lines {
			ok, err := tx.DecrementStock(ctx, l.productID, l.quantity)
			if err != nil {
				return err
			}
			if !ok {
				return insufficientStock([]string{byID[l.productID].Name})
			}
		}

		uid := userID
		order = &models.Order{
			UserID:         &uid,
			State:          withDefault(in.State, models.DefaultOrderState),
			OrderDate:      timeNow().UTC().Truncate(24 * time.Hour),
			PaymentMethod:  withDefault(in.PaymentMethod, models.DefaultPaymentMethod),
			ShippingMethod: withDefault(in.ShippingMethod, models.DefaultShippingMethod),
			PaymentStatus:  withDefault(in.PaymentStatus, models.DefaultPaymentStatus),
			TotalAmount:    total.Round(2),
			OrderItems:     items,
		}
		return tx.CreateOrder(ctx, order)
	})
	if err != nil {
		s.recordCount(ctx, aws_pkg.MetricOrdersFailed)
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		s.logger.Error("Order placement failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	s.recordCount(ctx, aws_pkg.MetricOrdersCreated)
	s.publishOrderPlaced(ctx, order)
	if s.cache != nil {
		for _, l := range lines {
			s.cache.InvalidateProduct(ctx, l.productID.String())
		}
	}

	if stored, err := s.repo.FindByIDAndUserID(ctx, order.ID, userID); err == nil {
		order = stored
	} else {
		s.logger.Warn("Reloading placed order failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
	view := NewOrderView(order)
	return &view, nil
}

func (s *orderServiceImpl) ListUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) (*OrderListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	orders, total, err := s.repo.FindByUserID(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		s.logger.Error("Failed to fetch orders", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, NewOrderView(&orders[i]))
	}
	return &OrderListResponse{
		Orders: views,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  calculateTotalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}, nil
}

// GetUserOrder answers 404 for orders owned by someone else.
func (s *orderServiceImpl) GetUserOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.repo.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrNotFound, "order not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	view := NewOrderView(order)
	return &view, nil
}

func (s *orderServiceImpl) recordCount(ctx context.Context, metric string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordCount(ctx, metric, nil); err != nil {
		s.logger.Warn("Metric publish failed", zap.String("metric", metric), zap.Error(err))
	}
}

func (s *orderServiceImpl) publishOrderPlaced(ctx context.Context, order *models.Order) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		return
	}
	event := OrderPlacedEvent{
		EventType:   EventOrderPlaced,
		OrderID:     order.ID.String(),
		TotalAmount: order.TotalAmount.StringFixed(2),
		Timestamp:   timeNow().UTC(),
	}
	if order.UserID != nil {
		event.UserID = order.UserID.String()
	}
	for _, item := range order.OrderItems {
		pi := OrderPlacedItem{Quantity: item.Quantity, UnitPrice: item.UnitPrice.StringFixed(2)}
		if item.ProductID != nil {
			pi.ProductID = item.ProductID.String()
		}
		event.Items = append(event.Items, pi)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal order event", zap.Error(err))
		return
	}
	if err := s.snsClient.Publish(ctx, s.snsTopicArn, EventOrderPlaced, payload); err != nil {
		s.logger.Warn("SNS publish failed", zap.String("order_id", event.OrderID), zap.Error(err))
	}
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
