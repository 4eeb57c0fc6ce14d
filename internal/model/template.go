package model

import "gorm.io/datatypes"

// SlideData is one rendered slide of a project.
type SlideData struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ProjectID     string         `gorm:"column:project_id;size:36" json:"project_id"`
	SlideIndex    int            `gorm:"not null" json:"slide_index"`
	SlideID       string         `gorm:"column:slide_id;size:100;not null" json:"slide_id"`
	Title         string         `gorm:"size:255;not null" json:"title"`
	ContentType   string         `gorm:"size:50;not null" json:"content_type"`
	HTMLContent   string         `gorm:"column:html_content;type:text;not null" json:"html_content"`
	SlideMetadata datatypes.JSON `json:"slide_metadata,omitempty"`
	TemplateID    *uint          `gorm:"column:template_id" json:"template_id,omitempty"`
	IsUserEdited  bool           `gorm:"not null;default:false" json:"is_user_edited"`
	Timestamps

	Project  *Project     `gorm:"foreignKey:ProjectID;references:ProjectID" json:"-"`
	Template *PPTTemplate `gorm:"foreignKey:TemplateID" json:"-"`
}

func (SlideData) TableName() string {
	return "slide_data"
}

// PPTTemplate is a master template generated for one project.
type PPTTemplate struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	ProjectID           string         `gorm:"column:project_id;size:36" json:"project_id"`
	TemplateType        string         `gorm:"size:50;not null;index:ix_ppt_templates_template_type" json:"template_type"` // title, content, chart, image, summary
	TemplateName        string         `gorm:"size:255;not null" json:"template_name"`
	Description         *string        `gorm:"type:text" json:"description,omitempty"`
	HTMLTemplate        string         `gorm:"column:html_template;type:text;not null" json:"html_template"`
	ApplicableScenarios datatypes.JSON `json:"applicable_scenarios,omitempty"`
	StyleConfig         datatypes.JSON `json:"style_config,omitempty"`
	UsageCount          int            `gorm:"default:0" json:"usage_count"`
	Timestamps

	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"-"`
}

func (PPTTemplate) TableName() string {
	return "ppt_templates"
}

// GlobalMasterTemplate is a reusable template shared across projects.
type GlobalMasterTemplate struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	TemplateName string         `gorm:"size:255;not null;unique" json:"template_name"`
	Description  *string        `gorm:"type:text" json:"description,omitempty"`
	HTMLTemplate string         `gorm:"column:html_template;type:text;not null" json:"html_template"`
	PreviewImage *string        `gorm:"type:text" json:"preview_image,omitempty"` // base64
	StyleConfig  datatypes.JSON `json:"style_config,omitempty"`
	Tags         datatypes.JSON `json:"tags,omitempty"`
	IsDefault    bool           `gorm:"default:false" json:"is_default"`
	IsActive     *bool          `gorm:"default:true" json:"is_active"`
	UsageCount   int            `gorm:"default:0" json:"usage_count"`
	CreatedBy    *string        `gorm:"size:100" json:"created_by,omitempty"`
	Timestamps
}

func (GlobalMasterTemplate) TableName() string {
	return "global_master_templates"
}
