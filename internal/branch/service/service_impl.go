package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/branch/domain"
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
		log:   p.Log.Named("branch.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBranchRequest) (domain.Branch, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Branch{}, domain.ErrInvalidName
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return domain.Branch{}, domain.ErrInvalidCode
	}

	existing, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.Branch{}, err
	}
	if existing != nil {
		return domain.Branch{}, domain.ErrCodeExists
	}

	now := time.Now().UTC()
	branch := domain.Branch{
		ID:        s.genID.Generate(),
		Name:      name,
		Code:      code,
		Address:   strings.TrimSpace(req.Address),
		Phone:     strings.TrimSpace(req.Phone),
		Timezone:  strings.TrimSpace(req.Timezone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if branch.Timezone == "" {
		branch.Timezone = "America/Santiago"
	}

	if err := s.repo.Insert(ctx, s.db, &branch); err != nil {
		return domain.Branch{}, err
	}

	s.log.Info("branch created",
		zap.String("branch_id", branch.ID.String()),
		zap.String("code", branch.Code),
	)
	return branch, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Branch, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Branch, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return domain.Branch{}, domain.ErrInvalidID
	}

	branch, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Branch{}, err
	}
	if branch == nil {
		return domain.Branch{}, domain.ErrNotFound
	}
	return *branch, nil
}
