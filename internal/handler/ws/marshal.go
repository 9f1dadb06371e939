package ws

import (
	"encoding/json"

	"LoanServe/internal/domain/models"
)

type feedEvent struct {
	Type string                   `json:"type"`
	Data *models.PredictionRecord `json:"data"`
}

func marshalRecord(rec *models.PredictionRecord) ([]byte, error) {
	return json.Marshal(feedEvent{Type: "prediction", Data: rec})
}
