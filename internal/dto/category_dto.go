package dto

import "github.com/onedaybetter/tracker/internal/models"

type CategoryResponse struct {
	Name models.Category `json:"name"`
	Icon string          `json:"icon"`
}
