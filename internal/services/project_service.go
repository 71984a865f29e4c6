package services

import (
	"context"

	"scale_backend/internal/logger"
	"scale_backend/internal/models"
	"scale_backend/internal/repositories"
	"scale_backend/internal/services/dto"
	"scale_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// ProjectQuery - параметры списка из query string.
type ProjectQuery struct {
	Search     string
	Status     string
	OutputType string
}

// ProjectService - проекты пользователя. Проекты со статусом deleted
// невидимы для всех операций.
type ProjectService interface {
	ListProjects(ctx context.Context, db *gorm.DB, userID string, query ProjectQuery) (*dto.ProjectListResponse, error)
	GetProject(ctx context.Context, db *gorm.DB, userID, projectID string) (*dto.ProjectResponse, error)
	CreateProject(ctx context.Context, db *gorm.DB, userID string, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	UpdateProject(ctx context.Context, db *gorm.DB, userID, projectID string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error)
	DeleteProject(ctx context.Context, db *gorm.DB, userID, projectID string) error
}

type ProjectServiceImpl struct {
	projectRepo repositories.ProjectRepository
}

func NewProjectService(projectRepo repositories.ProjectRepository) ProjectService {
	return &ProjectServiceImpl{projectRepo: projectRepo}
}

func (s *ProjectServiceImpl) ListProjects(ctx context.Context, db *gorm.DB, userID string, query ProjectQuery) (*dto.ProjectListResponse, error) {
	filter := repositories.ProjectFilter{
		Search:     query.Search,
		Status:     models.ProjectStatus(query.Status),
		OutputType: models.OutputType(query.OutputType),
	}
	fields := map[string]string{}
	if filter.Status != "" && !filter.Status.IsValid() {
		fields["status"] = "Must be one of: active, archived, deleted"
	}
	if !filter.OutputType.IsValid() {
		fields["output_type"] = "Must be one of: single_component, page, multi_page_app, api_only, full_project"
	}
	if len(fields) > 0 {
		return nil, apperrors.ValidationError(fields)
	}

	projects, err := s.projectRepo.List(db.WithContext(ctx), userID, filter)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.ProjectListItem, 0, len(projects))
	for i := range projects {
		items = append(items, dto.NewProjectListItem(&projects[i]))
	}
	return &dto.ProjectListResponse{Projects: items, Total: len(items)}, nil
}

func (s *ProjectServiceImpl) GetProject(ctx context.Context, db *gorm.DB, userID, projectID string) (*dto.ProjectResponse, error) {
	if !isUUID(projectID) {
		return nil, apperrors.ErrProjectNotFound
	}
	project, err := s.projectRepo.FindForUser(db.WithContext(ctx), userID, projectID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	resp := dto.NewProjectResponse(project)
	return &resp, nil
}

func (s *ProjectServiceImpl) CreateProject(ctx context.Context, db *gorm.DB, userID string, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	project, err := req.ToModel(userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.projectRepo.Create(db.WithContext(ctx), project); err != nil {
		return nil, translateRepoError(err)
	}

	logger.CtxInfo(ctx, "Project created", "user_id", userID, "project_id", project.ID)
	resp := dto.NewProjectResponse(project)
	return &resp, nil
}

func (s *ProjectServiceImpl) UpdateProject(ctx context.Context, db *gorm.DB, userID, projectID string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	if !isUUID(projectID) {
		return nil, apperrors.ErrProjectNotFound
	}
	updates, err := req.ToUpdates()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	project, err := s.projectRepo.Update(db.WithContext(ctx), userID, projectID, updates)
	if err != nil {
		return nil, translateRepoError(err)
	}

	resp := dto.NewProjectResponse(project)
	return &resp, nil
}

func (s *ProjectServiceImpl) DeleteProject(ctx context.Context, db *gorm.DB, userID, projectID string) error {
	if !isUUID(projectID) {
		return apperrors.ErrProjectNotFound
	}
	if err := s.projectRepo.Delete(db.WithContext(ctx), userID, projectID); err != nil {
		return translateRepoError(err)
	}
	logger.CtxInfo(ctx, "Project deleted", "user_id", userID, "project_id", projectID)
	return nil
}
