package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opticore/opticore/internal/workorder/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, wo *domain.WorkOrder) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO work_orders (
			id, branch_id, customer_id, order_id, status, customer_name,
			prescription, lab_notes, due_at, delivered_at, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wo.ID,
		wo.BranchID,
		wo.CustomerID,
		wo.OrderID,
		wo.Status,
		wo.CustomerName,
		wo.Prescription,
		wo.LabNotes,
		wo.DueAt,
		wo.DeliveredAt,
		wo.CreatedAt,
		wo.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*domain.WorkOrder, error) {
	var wo domain.WorkOrder
	err := db.WithContext(ctx).Raw(
		`SELECT id, branch_id, customer_id, order_id, status, customer_name,
			prescription, lab_notes, due_at, delivered_at, created_at, updated_at
		 FROM work_orders WHERE branch_id = ? AND id = ?`,
		branchID,
		id,
	).Scan(&wo).Error
	if err != nil {
		return nil, err
	}
	if wo.ID == 0 {
		return nil, nil
	}
	return &wo, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter domain.ListWorkOrderFilter, page pagination.Pagination) ([]*domain.WorkOrder, error) {
	var workOrders []*domain.WorkOrder
	stmt := db.WithContext(ctx).
		Model(&domain.WorkOrder{}).
		Where("branch_id = ?", branchID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	stmt = pagination.Apply(stmt, page)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&workOrders).Error
	if err != nil {
		return nil, err
	}
	return workOrders, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID, status domain.Status, deliveredAt *time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE work_orders SET status = ?, delivered_at = ?, updated_at = ? WHERE branch_id = ? AND id = ?`,
		status,
		deliveredAt,
		time.Now().UTC(),
		branchID,
		id,
	).Error
}
