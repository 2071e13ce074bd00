package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/branchctx"
	"github.com/opticore/opticore/internal/product/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Product{}, domain.ErrInvalidBranch
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}

	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	if sku == "" {
		return domain.Product{}, domain.ErrInvalidSKU
	}

	if !domain.ValidCategory(req.Category) {
		return domain.Product{}, domain.ErrInvalidCategory
	}

	if req.Price < 0 {
		return domain.Product{}, domain.ErrInvalidPrice
	}

	existing, err := s.repo.FindBySKU(ctx, s.db, branchID, sku)
	if err != nil {
		return domain.Product{}, err
	}
	if existing != nil {
		return domain.Product{}, domain.ErrSKUExists
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "CLP"
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:          s.genID.Generate(),
		BranchID:    branchID,
		SKU:         sku,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Brand:       strings.TrimSpace(req.Brand),
		Price:       req.Price,
		Currency:    currency,
		Stock:       req.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		return domain.Product{}, err
	}

	return product, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) (domain.ListProductResponse, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.ListProductResponse{}, domain.ErrInvalidBranch
	}

	if req.Category != "" && !domain.ValidCategory(req.Category) {
		return domain.ListProductResponse{}, domain.ErrInvalidCategory
	}

	filter := domain.ListProductFilter{
		Category: req.Category,
		Brand:    strings.TrimSpace(req.Brand),
		Search:   strings.TrimSpace(req.Search),
		Archived: req.Archived,
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
		return domain.ListProductResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(product *domain.Product) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        product.ID.String(),
			CreatedAt: product.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}

	resp := domain.ListProductResponse{Products: products}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetProductRequest) (domain.Product, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Product{}, domain.ErrInvalidBranch
	}

	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Product{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, branchID, id)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Archive(ctx context.Context, id string) (domain.Product, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Product{}, domain.ErrInvalidBranch
	}

	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return domain.Product{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, branchID, parsed)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	if err := s.repo.SetArchived(ctx, s.db, branchID, parsed, true); err != nil {
		return domain.Product{}, err
	}

	item.Archived = true
	return *item, nil
}
