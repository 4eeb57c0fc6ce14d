package model

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project statuses.
const (
	ProjectStatusDraft = "draft"
)

// Project is a presentation being generated.
type Project struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	ProjectID             string         `gorm:"column:project_id;size:36;uniqueIndex:ix_projects_project_id" json:"project_id"`
	Title                 string         `gorm:"size:255;not null" json:"title"`
	Scenario              string         `gorm:"size:100;not null" json:"scenario"`
	Topic                 string         `gorm:"size:255;not null" json:"topic"`
	Requirements          *string        `gorm:"type:text" json:"requirements,omitempty"`
	Status                string         `gorm:"size:50;default:draft" json:"status"`
	Outline               datatypes.JSON `json:"outline,omitempty"`
	SlidesHTML            *string        `gorm:"column:slides_html;type:text" json:"slides_html,omitempty"`
	SlidesData            datatypes.JSON `json:"slides_data,omitempty"`
	ConfirmedRequirements datatypes.JSON `json:"confirmed_requirements,omitempty"`
	ProjectMetadata       datatypes.JSON `json:"project_metadata,omitempty"`
	Version               int            `gorm:"default:1" json:"version"`
	ShareToken            *string        `gorm:"size:64;uniqueIndex:ix_projects_share_token" json:"share_token,omitempty"`
	ShareEnabled          bool           `gorm:"default:false" json:"share_enabled"`
	Timestamps
}

func (Project) TableName() string {
	return "projects"
}

// BeforeCreate assigns a UUID when the project has no identifier yet.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ProjectID == "" {
		p.ProjectID = uuid.NewString()
	}
	return nil
}

// ProjectVersion is a snapshot of a project.
type ProjectVersion struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ProjectID   string         `gorm:"column:project_id;size:36" json:"project_id"`
	Version     int            `gorm:"not null" json:"version"`
	Timestamp   float64        `json:"timestamp"`
	Data        datatypes.JSON `gorm:"not null" json:"data"`
	Description string         `gorm:"size:500;not null" json:"description"`

	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"-"`
}

func (ProjectVersion) TableName() string {
	return "project_versions"
}

// BeforeCreate stamps the snapshot time.
func (v *ProjectVersion) BeforeCreate(tx *gorm.DB) error {
	if v.Timestamp == 0 {
		v.Timestamp = Now()
	}
	return nil
}
