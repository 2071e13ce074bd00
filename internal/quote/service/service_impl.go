package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/branchctx"
	"github.com/opticore/opticore/internal/clock"
	customerdomain "github.com/opticore/opticore/internal/customer/domain"
	productdomain "github.com/opticore/opticore/internal/product/domain"
	"github.com/opticore/opticore/internal/quote/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	taxRateBps       = 1900
	defaultValidDays = 15
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	ProductRepo  productdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	productRepo  productdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("quote.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		productRepo:  p.ProductRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateQuoteRequest) (domain.Quote, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Quote{}, domain.ErrInvalidBranch
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.Quote{}, domain.ErrInvalidCustomer
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, branchID, customerID)
	if err != nil {
		return domain.Quote{}, err
	}
	if customer == nil {
		return domain.Quote{}, domain.ErrInvalidCustomer
	}

	if len(req.Items) == 0 {
		return domain.Quote{}, domain.ErrInvalidItems
	}

	quoteID := s.genID.Generate()
	now := s.clock.Now()

	var subtotal int64
	currency := ""
	items := make([]domain.QuoteItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return domain.Quote{}, domain.ErrInvalidItems
		}

		productID, err := snowflake.ParseString(strings.TrimSpace(line.ProductID))
		if err != nil || productID == 0 {
			return domain.Quote{}, domain.ErrInvalidItems
		}

		product, err := s.productRepo.FindByID(ctx, s.db, branchID, productID)
		if err != nil {
			return domain.Quote{}, err
		}
		if product == nil || product.Archived {
			return domain.Quote{}, domain.ErrInvalidItems
		}

		if currency == "" {
			currency = product.Currency
		}

		lineTotal := product.Price * int64(line.Quantity)
		subtotal += lineTotal
		items = append(items, domain.QuoteItem{
			ID:          s.genID.Generate(),
			QuoteID:     quoteID,
			ProductID:   product.ID,
			Description: product.Name,
			Category:    product.Category,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			Total:       lineTotal,
			CreatedAt:   now,
		})
	}

	validDays := req.ValidDays
	if validDays <= 0 {
		validDays = defaultValidDays
	}

	tax := subtotal * taxRateBps / 10000
	quote := domain.Quote{
		ID:           quoteID,
		BranchID:     branchID,
		CustomerID:   customerID,
		Status:       domain.StatusPending,
		CustomerName: customer.Name,
		Subtotal:     subtotal,
		TaxAmount:    tax,
		Total:        subtotal + tax,
		Currency:     currency,
		Notes:        strings.TrimSpace(req.Notes),
		ExpiresAt:    now.AddDate(0, 0, validDays),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &quote); err != nil {
		return domain.Quote{}, err
	}
	if err := s.repo.InsertItems(ctx, s.db, items); err != nil {
		return domain.Quote{}, err
	}

	quote.Items = items
	return quote, nil
}

func (s *Service) List(ctx context.Context, req domain.ListQuoteRequest) (domain.ListQuoteResponse, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.ListQuoteResponse{}, domain.ErrInvalidBranch
	}

	filter := domain.ListQuoteFilter{Status: req.Status}
	if trimmed := strings.TrimSpace(req.CustomerID); trimmed != "" {
		customerID, err := snowflake.ParseString(trimmed)
		if err != nil || customerID == 0 {
			return domain.ListQuoteResponse{}, domain.ErrInvalidCustomer
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
		return domain.ListQuoteResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(quote *domain.Quote) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        quote.ID.String(),
			CreatedAt: quote.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	quotes := make([]domain.Quote, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		quotes = append(quotes, *item)
	}

	resp := domain.ListQuoteResponse{Quotes: quotes}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Quote, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Quote{}, domain.ErrInvalidBranch
	}

	quote, err := s.findWithItems(ctx, branchID, id)
	if err != nil {
		return domain.Quote{}, err
	}
	return *quote, nil
}

func (s *Service) Accept(ctx context.Context, id string) (domain.Quote, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Quote{}, domain.ErrInvalidBranch
	}

	quote, err := s.findWithItems(ctx, branchID, id)
	if err != nil {
		return domain.Quote{}, err
	}

	if quote.Status != domain.StatusPending {
		return domain.Quote{}, domain.ErrNotPending
	}

	now := s.clock.Now()
	if quote.ExpiresAt.Before(now) {
		// Flip it on read rather than waiting for the sweep.
		if err := s.repo.UpdateStatus(ctx, s.db, branchID, quote.ID, domain.StatusExpired, nil); err != nil {
			return domain.Quote{}, err
		}
		return domain.Quote{}, domain.ErrQuoteExpired
	}

	if err := s.repo.UpdateStatus(ctx, s.db, branchID, quote.ID, domain.StatusAccepted, &now); err != nil {
		return domain.Quote{}, err
	}

	quote.Status = domain.StatusAccepted
	quote.AcceptedAt = &now
	return *quote, nil
}

func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireOverdue(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.log.Info("quotes expired", zap.Int64("count", expired))
	}
	return expired, nil
}

func (s *Service) findWithItems(ctx context.Context, branchID snowflake.ID, id string) (*domain.Quote, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return nil, domain.ErrInvalidID
	}

	quote, err := s.repo.FindByID(ctx, s.db, branchID, parsed)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, domain.ErrNotFound
	}

	items, err := s.repo.FindItems(ctx, s.db, quote.ID)
	if err != nil {
		return nil, err
	}
	quote.Items = items
	return quote, nil
}
