/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the hierarchy model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Session:
    SessionDTO, CreateSessionRequest, UpdateBudgetRequest

  Catalog:
    ImportRequest, ImportResponse, ColumnDTO

  Allocation:
    TreeResponse, NodeDTO, GroupWarningDTO,
    SetAllocationRequest, DistributeRequest, PeriodsResponse

VALIDATION:
  Request types carry go-playground/validator tags; handlers call
  validate.Struct after decoding. Percentages arrive as JSON numbers or
  strings and decode straight into decimal.Decimal.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/catalog.go: ImportSpec
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/sku-allocator/factory"
	"github.com/warp/sku-allocator/hierarchy"
)

// =============================================================================
// SESSIONS
// =============================================================================

// SessionDTO represents a planning session in API responses.
type SessionDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TotalBudget int64  `json:"total_budget"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	TotalBudget int64  `json:"total_budget" validate:"gt=0"`
}

// UpdateBudgetRequest is the request body for changing the total budget.
type UpdateBudgetRequest struct {
	TotalBudget int64 `json:"total_budget" validate:"gt=0"`
}

// =============================================================================
// CATALOG
// =============================================================================

// ImportRequest is the JSON form of a catalog import. CSV and XLSX uploads
// carry the same spec as query parameters instead.
type ImportRequest struct {
	factory.ImportSpec
	Header []string   `json:"header" validate:"required,min=1"`
	Rows   [][]string `json:"rows"`
}

// ColumnDTO represents one hierarchy level.
type ColumnDTO struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
}

// ImportResponse summarizes an import.
type ImportResponse struct {
	Columns  []ColumnDTO `json:"columns"`
	Skus     int         `json:"skus"`
	Warnings []string    `json:"warnings"`
}

// =============================================================================
// ALLOCATION
// =============================================================================

// NodeDTO is one node of the allocation tree.
type NodeDTO struct {
	Path       string          `json:"path"`
	Name       string          `json:"name"`
	Level      int             `json:"level"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     int64           `json:"amount"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  *int64          `json:"unit_price,omitempty"`
	Children   []NodeDTO       `json:"children,omitempty"`
}

// GroupWarningDTO flags a sibling group that does not sum to 100%.
type GroupWarningDTO struct {
	ParentPath string          `json:"parent_path"`
	Level      int             `json:"level"`
	Siblings   int             `json:"siblings"`
	Sum        decimal.Decimal `json:"sum"`
	Unset      bool            `json:"unset"`
}

// TreeResponse is the full state of one period.
type TreeResponse struct {
	Session  SessionDTO        `json:"session"`
	Period   string            `json:"period"`
	Columns  []ColumnDTO       `json:"columns"`
	Tree     []NodeDTO         `json:"tree"`
	Warnings []GroupWarningDTO `json:"warnings"`
}

// SetAllocationRequest assigns a percentage to one node. Percentage is a
// pointer so a missing field is rejected instead of clearing the node.
type SetAllocationRequest struct {
	Path       string           `json:"path" validate:"required"`
	Percentage *decimal.Decimal `json:"percentage" validate:"required"`
}

// DistributeRequest splits 100% equally across a parent's children.
// An empty parent_path targets the root level; level 0 means the level
// directly below the parent.
type DistributeRequest struct {
	ParentPath string `json:"parent_path"`
	Level      int    `json:"level" validate:"gte=0"`
}

// PeriodsResponse lists the periods of a session. "" is the default period.
type PeriodsResponse struct {
	Periods []string `json:"periods"`
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toSessionDTO(s hierarchy.Session) SessionDTO {
	return SessionDTO{
		ID:          s.ID,
		Name:        s.Name,
		TotalBudget: s.TotalBudget,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.Format(time.RFC3339),
	}
}

func toColumnDTOs(columns []hierarchy.Column) []ColumnDTO {
	dtos := make([]ColumnDTO, len(columns))
	for i, c := range columns {
		dtos[i] = ColumnDTO{Level: c.Level, Name: c.Name}
	}
	return dtos
}

func toNodeDTOs(nodes []*hierarchy.Node) []NodeDTO {
	dtos := make([]NodeDTO, 0, len(nodes))
	for _, n := range nodes {
		dto := NodeDTO{
			Path:       n.Path,
			Name:       n.Name,
			Level:      n.Level,
			Percentage: n.Percentage,
			Amount:     n.Amount,
			Quantity:   n.Quantity,
			UnitPrice:  n.UnitPrice,
		}
		if len(n.Children) > 0 {
			dto.Children = toNodeDTOs(n.Children)
		}
		dtos = append(dtos, dto)
	}
	return dtos
}

func toWarningDTOs(warnings []hierarchy.GroupWarning) []GroupWarningDTO {
	dtos := make([]GroupWarningDTO, len(warnings))
	for i, w := range warnings {
		dtos[i] = GroupWarningDTO{
			ParentPath: w.ParentPath,
			Level:      w.Level,
			Siblings:   w.Siblings,
			Sum:        w.Sum,
			Unset:      w.Unset(),
		}
	}
	return dtos
}
