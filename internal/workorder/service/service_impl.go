package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/branchctx"
	"github.com/opticore/opticore/internal/clock"
	customerdomain "github.com/opticore/opticore/internal/customer/domain"
	"github.com/opticore/opticore/internal/workorder/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("workorder.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateWorkOrderRequest) (domain.WorkOrder, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.WorkOrder{}, domain.ErrInvalidBranch
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.WorkOrder{}, domain.ErrInvalidCustomer
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, branchID, customerID)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if customer == nil {
		return domain.WorkOrder{}, domain.ErrInvalidCustomer
	}

	var orderID snowflake.ID
	if trimmed := strings.TrimSpace(req.OrderID); trimmed != "" {
		orderID, err = snowflake.ParseString(trimmed)
		if err != nil || orderID == 0 {
			return domain.WorkOrder{}, domain.ErrInvalidID
		}
	}

	now := s.clock.Now()
	wo := domain.WorkOrder{
		ID:           s.genID.Generate(),
		BranchID:     branchID,
		CustomerID:   customerID,
		OrderID:      orderID,
		Status:       domain.StatusReceived,
		CustomerName: customer.Name,
		Prescription: strings.TrimSpace(req.Prescription),
		LabNotes:     strings.TrimSpace(req.LabNotes),
		DueAt:        req.DueAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &wo); err != nil {
		return domain.WorkOrder{}, err
	}

	return wo, nil
}

func (s *Service) List(ctx context.Context, req domain.ListWorkOrderRequest) (domain.ListWorkOrderResponse, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.ListWorkOrderResponse{}, domain.ErrInvalidBranch
	}

	filter := domain.ListWorkOrderFilter{Status: req.Status}
	if trimmed := strings.TrimSpace(req.CustomerID); trimmed != "" {
		customerID, err := snowflake.ParseString(trimmed)
		if err != nil || customerID == 0 {
			return domain.ListWorkOrderResponse{}, domain.ErrInvalidCustomer
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
		return domain.ListWorkOrderResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(wo *domain.WorkOrder) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        wo.ID.String(),
			CreatedAt: wo.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	workOrders := make([]domain.WorkOrder, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		workOrders = append(workOrders, *item)
	}

	resp := domain.ListWorkOrderResponse{WorkOrders: workOrders}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.WorkOrder, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.WorkOrder{}, domain.ErrInvalidBranch
	}

	wo, err := s.find(ctx, branchID, id)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	return *wo, nil
}

func (s *Service) Advance(ctx context.Context, id string) (domain.WorkOrder, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.WorkOrder{}, domain.ErrInvalidBranch
	}

	wo, err := s.find(ctx, branchID, id)
	if err != nil {
		return domain.WorkOrder{}, err
	}

	if domain.Terminal(wo.Status) {
		return domain.WorkOrder{}, domain.ErrTerminalState
	}

	next := domain.NextStatus(wo.Status)
	if next == "" {
		return domain.WorkOrder{}, domain.ErrInvalidTransition
	}

	var deliveredAt *time.Time
	if next == domain.StatusDelivered {
		now := s.clock.Now()
		deliveredAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, s.db, branchID, wo.ID, next, deliveredAt); err != nil {
		return domain.WorkOrder{}, err
	}

	s.log.Info("work order advanced",
		zap.String("work_order_id", wo.ID.String()),
		zap.String("from", string(wo.Status)),
		zap.String("to", string(next)),
	)

	wo.Status = next
	wo.DeliveredAt = deliveredAt
	return *wo, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (domain.WorkOrder, error) {
	branchID, ok := branchctx.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.WorkOrder{}, domain.ErrInvalidBranch
	}

	wo, err := s.find(ctx, branchID, id)
	if err != nil {
		return domain.WorkOrder{}, err
	}

	if domain.Terminal(wo.Status) {
		return domain.WorkOrder{}, domain.ErrTerminalState
	}

	if err := s.repo.UpdateStatus(ctx, s.db, branchID, wo.ID, domain.StatusCancelled, nil); err != nil {
		return domain.WorkOrder{}, err
	}

	wo.Status = domain.StatusCancelled
	return *wo, nil
}

func (s *Service) find(ctx context.Context, branchID snowflake.ID, id string) (*domain.WorkOrder, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return nil, domain.ErrInvalidID
	}

	wo, err := s.repo.FindByID(ctx, s.db, branchID, parsed)
	if err != nil {
		return nil, err
	}
	if wo == nil {
		return nil, domain.ErrNotFound
	}
	return wo, nil
}
