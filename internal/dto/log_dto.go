package dto

import "github.com/onedaybetter/tracker/internal/models"

type SystemLogListResponse struct {
	Logs  []models.SystemLog `json:"logs"`
	Total int64              `json:"total"`
	Limit int                `json:"limit"`
	Page  int                `json:"page"`
}
