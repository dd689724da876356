package models

import "time"

// User is the subset of a portal account needed for search visibility and download quotas.
type User struct {
	ID                 string    `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	Admin              bool      `db:"admin" json:"admin"`
	DailyDownloadQuota int64     `db:"daily_download_quota" json:"daily_download_quota"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
