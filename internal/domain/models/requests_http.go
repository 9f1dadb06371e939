package models

// Requests for HTTP endpoints with a fixed schema. The /predict body is
// shape-polymorphic and goes through the normalizer instead.

type RecentPredictionsRequest struct {
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	Label string `query:"label" json:"label" validate:"omitempty,oneof=approved denied"`
}
