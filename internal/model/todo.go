package model

import "gorm.io/datatypes"

// Stage statuses.
const (
	StageStatusPending = "pending"
)

// TodoBoard tracks the generation workflow of one project.
type TodoBoard struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	ProjectID         string  `gorm:"column:project_id;size:36;unique" json:"project_id"`
	CurrentStageIndex int     `gorm:"default:0" json:"current_stage_index"`
	OverallProgress   float64 `gorm:"default:0" json:"overall_progress"` // 0..1
	Timestamps

	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"-"`
}

func (TodoBoard) TableName() string {
	return "todo_boards"
}

// TodoStage is one step of a board; StageIndex orders stages within the board.
type TodoStage struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TodoBoardID uint           `gorm:"column:todo_board_id" json:"todo_board_id"`
	ProjectID   string         `gorm:"column:project_id;size:36;index:ix_todo_stages_project_id" json:"project_id"`
	StageID     string         `gorm:"column:stage_id;size:100;not null;index:ix_todo_stages_stage_id" json:"stage_id"`
	StageIndex  int            `gorm:"not null" json:"stage_index"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Status      string         `gorm:"size:50;default:pending;index:ix_todo_stages_status" json:"status"`
	Progress    float64        `gorm:"default:0" json:"progress"`
	Result      datatypes.JSON `json:"result,omitempty"`
	Timestamps

	TodoBoard *TodoBoard `gorm:"foreignKey:TodoBoardID" json:"-"`
	Project   *Project   `gorm:"foreignKey:ProjectID;references:ProjectID" json:"-"`
}

func (TodoStage) TableName() string {
	return "todo_stages"
}
