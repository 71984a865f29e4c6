package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Project struct {
	BaseModel
	UserID          string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Name            string         `gorm:"size:255;not null" json:"name"`
	Description     string         `gorm:"size:300;not null;default:''" json:"description"`
	RepositoryName  *string        `gorm:"size:255" json:"repository_name"`
	AITools         datatypes.JSON `gorm:"type:jsonb" json:"ai_tools"` // ["v0", "claude", ...]
	OutputType      OutputType     `gorm:"type:varchar(20);not null;default:''" json:"output_type"`
	ExpectedOutputs datatypes.JSON `gorm:"type:jsonb" json:"expected_outputs"` // {"pages": 3, ...}

	FrontendFramework string `gorm:"size:50;not null;default:''" json:"frontend_framework"`
	Styling           string `gorm:"size:50;not null;default:''" json:"styling"`
	BackendFramework  string `gorm:"size:50;not null;default:''" json:"backend_framework"`
	Database          string `gorm:"size:50;not null;default:''" json:"database"`
	Language          string `gorm:"size:50;not null;default:''" json:"language"`
	Content           string `gorm:"type:text;not null;default:''" json:"content"`

	Status ProjectStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate перекрывает хук BaseModel, поэтому ID выдается здесь же.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if len(p.AITools) == 0 {
		p.AITools = datatypes.JSON("[]")
	}
	if len(p.ExpectedOutputs) == 0 {
		p.ExpectedOutputs = datatypes.JSON("{}")
	}
	if p.Status == "" {
		p.Status = ProjectStatusActive
	}
	return nil
}

// ToolList декодирует JSON-список AI-инструментов.
func (p *Project) ToolList() []string {
	var tools []string
	if len(p.AITools) == 0 {
		return []string{}
	}
	if err := json.Unmarshal(p.AITools, &tools); err != nil || tools == nil {
		return []string{}
	}
	return tools
}

// Outputs декодирует JSON-объект ожидаемых результатов.
func (p *Project) Outputs() map[string]interface{} {
	outputs := map[string]interface{}{}
	if len(p.ExpectedOutputs) == 0 {
		return outputs
	}
	if err := json.Unmarshal(p.ExpectedOutputs, &outputs); err != nil || outputs == nil {
		return map[string]interface{}{}
	}
	return outputs
}
