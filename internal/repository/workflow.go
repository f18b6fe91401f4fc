package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bookline/bot-server-go/internal/model"
)

type WorkflowRepository interface {
	// FindPublishedByBotID returns published workflows in stored position
	// order; trigger matching walks them in this order and the first match
	// wins.
	FindPublishedByBotID(ctx context.Context, botID string) ([]model.WorkflowDefinition, error)
	FindByID(ctx context.Context, id string) (*model.WorkflowDefinition, error)
}

type workflowRepo struct {
	db *sqlx.DB
}

func NewWorkflowRepository(db *sqlx.DB) WorkflowRepository {
	return &workflowRepo{db: db}
}

func (r *workflowRepo) FindPublishedByBotID(ctx context.Context, botID string) ([]model.WorkflowDefinition, error) {
	var workflows []model.WorkflowDefinition
	err := r.db.SelectContext(ctx, &workflows, `
		SELECT * FROM workflow_definitions
		WHERE bot_id = $1 AND published
		ORDER BY position, name
	`, botID)
	return workflows, err
}

func (r *workflowRepo) FindByID(ctx context.Context, id string) (*model.WorkflowDefinition, error) {
	var workflow model.WorkflowDefinition
	err := r.db.GetContext(ctx, &workflow, `SELECT * FROM workflow_definitions WHERE id = $1`, id)
	return HandleNotFound(&workflow, err)
}
