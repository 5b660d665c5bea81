package model

import "time"

// QuestionLog is an audit record of one answered legal question, persisted
// asynchronously through the question-log queue.
type QuestionLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Question     string    `gorm:"type:text;not null" json:"question"`
	SearchQuery  string    `gorm:"size:512" json:"search_query"`
	Intent       string    `gorm:"size:64" json:"intent"`
	LegalArea    string    `gorm:"size:64" json:"legal_area"`
	TotalResults int       `gorm:"not null" json:"total_results"`
	Answer       string    `gorm:"type:text" json:"answer"`
	CreatedAt    time.Time `json:"created_at"`
}
