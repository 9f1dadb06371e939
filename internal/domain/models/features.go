package models

// FeatureNames is the fixed feature order used for positional (array) inputs
// and for the metadata schema. The trained artifact uses the same order.
var FeatureNames = []string{"age", "income", "education", "experience", "credit_score"}

// FeatureVector holds the five loan-application features, all numeric.
type FeatureVector struct {
	Age         float64 `json:"age"`
	Income      float64 `json:"income"`
	Education   float64 `json:"education"`
	Experience  float64 `json:"experience"`
	CreditScore float64 `json:"credit_score"`
}

// Values returns the features in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{f.Age, f.Income, f.Education, f.Experience, f.CreditScore}
}

// Map returns the features keyed by name, for echoing the input back.
func (f FeatureVector) Map() map[string]float64 {
	return map[string]float64{
		"age":          f.Age,
		"income":       f.Income,
		"education":    f.Education,
		"experience":   f.Experience,
		"credit_score": f.CreditScore,
	}
}

// FromValues builds a FeatureVector from values in FeatureNames order.
func FromValues(values []float64) FeatureVector {
	return FeatureVector{
		Age:         values[0],
		Income:      values[1],
		Education:   values[2],
		Experience:  values[3],
		CreditScore: values[4],
	}
}
