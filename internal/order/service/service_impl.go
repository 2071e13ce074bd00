package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/opticore/opticore/internal/billing/domain"
	"github.com/opticore/opticore/internal/branchctx"
	"github.com/opticore/opticore/internal/clock"
	customerdomain "github.com/opticore/opticore/internal/customer/domain"
	"github.com/opticore/opticore/internal/observability/metrics"
	"github.com/opticore/opticore/internal/order/domain"
	productdomain "github.com/opticore/opticore/internal/product/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// taxRateBps is the Chilean IVA in basis points.
const taxRateBps = 1900

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	ProductRepo  productdomain.Repository
	Billing      billingdomain.Adapter
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	productRepo  productdomain.Repository
	billing      billingdomain.Adapter
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("order.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		productRepo:  p.ProductRepo,
		billing:      p.Billing,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Order{}, domain.ErrInvalidBranch
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.Order{}, domain.ErrInvalidCustomer
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, branchID, customerID)
	if err != nil {
		return domain.Order{}, err
	}
	if customer == nil {
		return domain.Order{}, domain.ErrInvalidCustomer
	}

	if len(req.Items) == 0 {
		return domain.Order{}, domain.ErrInvalidItems
	}

	orderID := s.genID.Generate()
	now := s.clock.Now()

	var subtotal int64
	currency := ""
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return domain.Order{}, domain.ErrInvalidQuantity
		}

		productID, err := snowflake.ParseString(strings.TrimSpace(line.ProductID))
		if err != nil || productID == 0 {
			return domain.Order{}, domain.ErrInvalidItems
		}

		product, err := s.productRepo.FindByID(ctx, s.db, branchID, productID)
		if err != nil {
			return domain.Order{}, err
		}
		if product == nil || product.Archived {
			return domain.Order{}, domain.ErrInvalidItems
		}

		if currency == "" {
			currency = product.Currency
		}

		lineTotal := product.Price * int64(line.Quantity)
		subtotal += lineTotal
		items = append(items, domain.OrderItem{
			ID:          s.genID.Generate(),
			OrderID:     orderID,
			ProductID:   product.ID,
			Description: product.Name,
			Category:    product.Category,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			Total:       lineTotal,
			CreatedAt:   now,
		})
	}

	seq, err := s.repo.NextNumber(ctx, s.db, branchID)
	if err != nil {
		return domain.Order{}, err
	}

	tax := subtotal * taxRateBps / 10000
	order := domain.Order{
		ID:             orderID,
		BranchID:       branchID,
		CustomerID:     customerID,
		Number:         fmt.Sprintf("ORD-%06d", seq),
		Status:         domain.StatusPending,
		CustomerName:   customer.Name,
		CustomerTaxID:  customer.TaxID,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		Total:          subtotal + tax,
		Currency:       currency,
		SIIInvoiceType: strings.TrimSpace(req.SIIInvoiceType),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, &order); err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.InsertItems(ctx, s.db, items); err != nil {
		return domain.Order{}, err
	}

	order.Items = items
	return order, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrderRequest) (domain.ListOrderResponse, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.ListOrderResponse{}, domain.ErrInvalidBranch
	}

	filter := domain.ListOrderFilter{
		Status:      req.Status,
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	}
	if trimmed := strings.TrimSpace(req.CustomerID); trimmed != "" {
		customerID, err := snowflake.ParseString(trimmed)
		if err != nil || customerID == 0 {
			return domain.ListOrderResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = customerID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, branchID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListOrderResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(order *domain.Order) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        order.ID.String(),
			CreatedAt: order.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}

	resp := domain.ListOrderResponse{Orders: orders}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Order, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Order{}, domain.ErrInvalidBranch
	}

	order, err := s.findWithItems(ctx, branchID, id)
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) Complete(ctx context.Context, id string) (domain.CompleteOrderResponse, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.CompleteOrderResponse{}, domain.ErrInvalidBranch
	}

	order, err := s.findWithItems(ctx, branchID, id)
	if err != nil {
		return domain.CompleteOrderResponse{}, err
	}

	switch order.Status {
	case domain.StatusCompleted:
		return domain.CompleteOrderResponse{}, domain.ErrAlreadyCompleted
	case domain.StatusCancelled:
		return domain.CompleteOrderResponse{}, domain.ErrOrderCancelled
	}

	result, err := s.billing.EmitDocument(ctx, billingOrder(order))
	if err != nil {
		// The order stays pending: a sale without its document is worse
		// than a retried completion.
		return domain.CompleteOrderResponse{}, err
	}

	completedAt := s.clock.Now()
	if err := s.repo.UpdateStatus(ctx, s.db, branchID, order.ID, domain.StatusCompleted, &completedAt); err != nil {
		return domain.CompleteOrderResponse{}, err
	}

	for _, item := range order.Items {
		if err := s.productRepo.AdjustStock(ctx, s.db, branchID, item.ProductID, -item.Quantity); err != nil {
			s.log.Warn("stock not decremented",
				zap.String("order_number", order.Number),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err),
			)
		}
	}

	s.metrics.RecordOrderCompleted(ctx, branchID.String())

	order.Status = domain.StatusCompleted
	order.CompletedAt = &completedAt
	order.BillingFolio = result.Folio
	order.BillingType = result.Type
	order.BillingPDFURL = result.PDFURL

	return domain.CompleteOrderResponse{Order: *order, Billing: result}, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (domain.Order, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Order{}, domain.ErrInvalidBranch
	}

	order, err := s.findWithItems(ctx, branchID, id)
	if err != nil {
		return domain.Order{}, err
	}

	if order.Status != domain.StatusPending {
		return domain.Order{}, domain.ErrNotPending
	}

	if err := s.repo.UpdateStatus(ctx, s.db, branchID, order.ID, domain.StatusCancelled, nil); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.StatusCancelled
	return *order, nil
}

func (s *Service) findWithItems(ctx context.Context, branchID snowflake.ID, id string) (*domain.Order, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return nil, domain.ErrInvalidID
	}

	order, err := s.repo.FindByID(ctx, s.db, branchID, parsed)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	items, err := s.repo.FindItems(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func billingOrder(order *domain.Order) billingdomain.Order {
	items := make([]billingdomain.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, billingdomain.OrderLine{
			ProductID:   item.ProductID,
			Description: item.Description,
			Category:    billingdomain.LineItemCategory(item.Category),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}

	return billingdomain.Order{
		ID:             order.ID,
		Number:         order.Number,
		BranchID:       order.BranchID,
		CustomerID:     order.CustomerID,
		CustomerName:   order.CustomerName,
		CustomerTaxID:  order.CustomerTaxID,
		Subtotal:       order.Subtotal,
		TaxAmount:      order.TaxAmount,
		Total:          order.Total,
		Currency:       order.Currency,
		SIIInvoiceType: order.SIIInvoiceType,
		Items:          items,
	}
}
