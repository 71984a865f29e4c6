package repositories

import (
	"errors"
	"fmt"
	"strings"

	"scale_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectFilter - параметры списка проектов. Пустые поля не фильтруют.
type ProjectFilter struct {
	Search     string
	Status     models.ProjectStatus
	OutputType models.OutputType
}

type ProjectRepository interface {
	Create(db *gorm.DB, project *models.Project) error
	// FindForUser ищет только среди видимых проектов владельца.
	FindForUser(db *gorm.DB, userID, projectID string) (*models.Project, error)
	List(db *gorm.DB, userID string, filter ProjectFilter) ([]models.Project, error)
	// Update возвращает запись после изменения, даже если она стала невидимой (status=deleted).
	Update(db *gorm.DB, userID, projectID string, updates map[string]interface{}) (*models.Project, error)
	Delete(db *gorm.DB, userID, projectID string) error
}

type ProjectRepositoryImpl struct{}

func NewProjectRepository() ProjectRepository {
	return &ProjectRepositoryImpl{}
}

var visibleProjectStatuses = []models.ProjectStatus{models.ProjectStatusActive, models.ProjectStatusArchived}

func (r *ProjectRepositoryImpl) owned(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&models.Project{}).
		Where("user_id = ? AND status IN ?", userID, visibleProjectStatuses)
}

func (r *ProjectRepositoryImpl) Create(db *gorm.DB, project *models.Project) error {
	if err := db.Omit(clause.Associations).Create(project).Error; err != nil {
		if IsForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepositoryImpl) FindForUser(db *gorm.DB, userID, projectID string) (*models.Project, error) {
	var project models.Project
	if err := r.owned(db, userID).Where("id = ?", projectID).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &project, nil
}

func (r *ProjectRepositoryImpl) List(db *gorm.DB, userID string, filter ProjectFilter) ([]models.Project, error) {
	query := r.owned(db, userID)

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OutputType != "" {
		query = query.Where("output_type = ?", filter.OutputType)
	}

	var projects []models.Project
	err := query.
		Order("updated_at DESC").
		Order("id DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepositoryImpl) Update(db *gorm.DB, userID, projectID string, updates map[string]interface{}) (*models.Project, error) {
	if len(updates) == 0 {
		return r.FindForUser(db, userID, projectID)
	}
	result := r.owned(db, userID).Where("id = ?", projectID).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("update project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrProjectNotFound
	}

	var project models.Project
	if err := db.First(&project, "id = ? AND user_id = ?", projectID, userID).Error; err != nil {
		return nil, fmt.Errorf("reload project: %w", err)
	}
	return &project, nil
}

func (r *ProjectRepositoryImpl) Delete(db *gorm.DB, userID, projectID string) error {
	result := db.Where("id = ? AND user_id = ? AND status IN ?", projectID, userID, visibleProjectStatuses).
		Delete(&models.Project{})
	if result.Error != nil {
		return fmt.Errorf("delete project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// escapeLike экранирует метасимволы LIKE, чтобы поиск шел по подстроке как есть.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
