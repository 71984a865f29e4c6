package dto

import (
	"encoding/json"
	"time"

	"scale_backend/internal/models"

	"gorm.io/datatypes"
)

// =======================
// Project DTOs
// =======================

type CreateProjectRequest struct {
	Name              string                 `json:"name" validate:"required,max=255"`
	Description       string                 `json:"description" validate:"required,max=300"`
	RepositoryName    *string                `json:"repository_name" validate:"omitempty,max=255"`
	AITools           []string               `json:"ai_tools" validate:"omitempty,dive,required,max=50"`
	OutputType        models.OutputType      `json:"output_type" validate:"is-output-type"`
	ExpectedOutputs   map[string]interface{} `json:"expected_outputs"`
	FrontendFramework string                 `json:"frontend_framework" validate:"max=50"`
	Styling           string                 `json:"styling" validate:"max=50"`
	BackendFramework  string                 `json:"backend_framework" validate:"max=50"`
	Database          string                 `json:"database" validate:"max=50"`
	Language          string                 `json:"language" validate:"max=50"`
	Content           string                 `json:"content"`
	// Пустое значение означает active.
	Status models.ProjectStatus `json:"status" validate:"omitempty,is-project-status"`
}

// UpdateProjectRequest - частичное обновление: nil-поля не трогаются.
type UpdateProjectRequest struct {
	Name              *string                `json:"name" validate:"omitempty,min=1,max=255"`
	Description       *string                `json:"description" validate:"omitempty,max=300"`
	RepositoryName    *string                `json:"repository_name" validate:"omitempty,max=255"`
	AITools           []string               `json:"ai_tools" validate:"omitempty,dive,required,max=50"`
	OutputType        *models.OutputType     `json:"output_type" validate:"omitempty,is-output-type"`
	ExpectedOutputs   map[string]interface{} `json:"expected_outputs"`
	FrontendFramework *string                `json:"frontend_framework" validate:"omitempty,max=50"`
	Styling           *string                `json:"styling" validate:"omitempty,max=50"`
	BackendFramework  *string                `json:"backend_framework" validate:"omitempty,max=50"`
	Database          *string                `json:"database" validate:"omitempty,max=50"`
	Language          *string                `json:"language" validate:"omitempty,max=50"`
	Content           *string                `json:"content"`
	Status            *models.ProjectStatus  `json:"status" validate:"omitempty,is-project-status"`
}

// ToModel собирает новую запись для владельца userID.
func (r *CreateProjectRequest) ToModel(userID string) (*models.Project, error) {
	tools, err := jsonOrDefault(r.AITools, "[]")
	if err != nil {
		return nil, err
	}
	outputs, err := jsonOrDefault(r.ExpectedOutputs, "{}")
	if err != nil {
		return nil, err
	}
	status := r.Status
	if status == "" {
		status = models.ProjectStatusActive
	}
	return &models.Project{
		UserID:            userID,
		Name:              r.Name,
		Description:       r.Description,
		RepositoryName:    r.RepositoryName,
		AITools:           tools,
		OutputType:        r.OutputType,
		ExpectedOutputs:   outputs,
		FrontendFramework: r.FrontendFramework,
		Styling:           r.Styling,
		BackendFramework:  r.BackendFramework,
		Database:          r.Database,
		Language:          r.Language,
		Content:           r.Content,
		Status:            status,
	}, nil
}

// ToUpdates превращает запрос в карту колонок для gorm.
func (r *UpdateProjectRequest) ToUpdates() (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	if r.Name != nil {
		updates["name"] = *r.Name
	}
	if r.Description != nil {
		updates["description"] = *r.Description
	}
	if r.RepositoryName != nil {
		updates["repository_name"] = *r.RepositoryName
	}
	if r.AITools != nil {
		tools, err := jsonOrDefault(r.AITools, "[]")
		if err != nil {
			return nil, err
		}
		updates["ai_tools"] = tools
	}
	if r.OutputType != nil {
		updates["output_type"] = *r.OutputType
	}
	if r.ExpectedOutputs != nil {
		outputs, err := jsonOrDefault(r.ExpectedOutputs, "{}")
		if err != nil {
			return nil, err
		}
		updates["expected_outputs"] = outputs
	}
	if r.FrontendFramework != nil {
		updates["frontend_framework"] = *r.FrontendFramework
	}
	if r.Styling != nil {
		updates["styling"] = *r.Styling
	}
	if r.BackendFramework != nil {
		updates["backend_framework"] = *r.BackendFramework
	}
	if r.Database != nil {
		updates["database"] = *r.Database
	}
	if r.Language != nil {
		updates["language"] = *r.Language
	}
	if r.Content != nil {
		updates["content"] = *r.Content
	}
	if r.Status != nil {
		updates["status"] = *r.Status
	}
	return updates, nil
}

func jsonOrDefault(v interface{}, fallback string) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return datatypes.JSON(fallback), nil
	}
	return datatypes.JSON(raw), nil
}

// ProjectListItem - укороченное представление для списка.
type ProjectListItem struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	RepositoryName *string              `json:"repository_name"`
	AITools        []string             `json:"ai_tools"`
	OutputType     models.OutputType    `json:"output_type"`
	Status         models.ProjectStatus `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type ProjectListResponse struct {
	Projects []ProjectListItem `json:"projects"`
	Total    int               `json:"total"`
}

type ProjectResponse struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	Description       string                 `json:"description"`
	RepositoryName    *string                `json:"repository_name"`
	AITools           []string               `json:"ai_tools"`
	OutputType        models.OutputType      `json:"output_type"`
	ExpectedOutputs   map[string]interface{} `json:"expected_outputs"`
	FrontendFramework string                 `json:"frontend_framework"`
	Styling           string                 `json:"styling"`
	BackendFramework  string                 `json:"backend_framework"`
	Database          string                 `json:"database"`
	Language          string                 `json:"language"`
	Content           string                 `json:"content"`
	Status            models.ProjectStatus   `json:"status"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func NewProjectListItem(p *models.Project) ProjectListItem {
	return ProjectListItem{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		RepositoryName: p.RepositoryName,
		AITools:        p.ToolList(),
		OutputType:     p.OutputType,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func NewProjectResponse(p *models.Project) ProjectResponse {
	return ProjectResponse{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		RepositoryName:    p.RepositoryName,
		AITools:           p.ToolList(),
		OutputType:        p.OutputType,
		ExpectedOutputs:   p.Outputs(),
		FrontendFramework: p.FrontendFramework,
		Styling:           p.Styling,
		BackendFramework:  p.BackendFramework,
		Database:          p.Database,
		Language:          p.Language,
		Content:           p.Content,
		Status:            p.Status,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
