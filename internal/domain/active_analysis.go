package domain

import "time"

// ActiveAnalysis is an advisory single-row marker held while a batch is
// being analyzed. Presence of the row means the pipeline is busy; it is
// not a hard lock and concurrent writers can still race on creation.
type ActiveAnalysis struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	StartedAt time.Time `gorm:"column:started_at;not null" json:"started_at"`
}

func (ActiveAnalysis) TableName() string { return "active_analysis" }

// ActiveAnalysisRowID is the fixed primary key of the only row ever written.
const ActiveAnalysisRowID = 1
