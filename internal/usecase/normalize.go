package usecase

import (
	"LoanServe/internal/domain/models"
	"LoanServe/pkg/util"
)

// requestShape tags the recognized /predict body layouts. Exactly one shape is
// chosen per request by an ordered match on key presence.
type requestShape int

const (
	shapeDirect requestShape = iota
	shapeInstances
	shapeNdArrayNested
	shapeNdArrayFlat
	shapeInvalid
)

// classifyShape resolves the body layout:
//  1. neither "instances" nor "data" present: the body is the feature map
//  2. "instances" present: batch-of-one, first element is the feature map
//  3. "data" holding an object with "ndarray": first row, positional
//  4. "data" holding a flat array: positional
//  5. anything else: invalid
func classifyShape(body map[string]interface{}) requestShape {
	_, hasInstances := body["instances"]
	data, hasData := body["data"]

	switch {
	case !hasInstances && !hasData:
		return shapeDirect
	case hasInstances:
		return shapeInstances
	default:
		switch d := data.(type) {
		case map[string]interface{}:
			if _, ok := d["ndarray"]; ok {
				return shapeNdArrayNested
			}
			return shapeInvalid
		case []interface{}:
			return shapeNdArrayFlat
		default:
			return shapeInvalid
		}
	}
}

// normalize reduces any recognized body layout to a FeatureVector. All five
// features must be present and numeric; the classifier is never invoked for a
// body that fails here.
func normalize(body map[string]interface{}) (models.FeatureVector, *Error) {
	var zero models.FeatureVector

	var instance map[string]interface{}
	switch classifyShape(body) {
	case shapeDirect:
		instance = body

	case shapeInstances:
		instances, ok := body["instances"].([]interface{})
		if !ok || len(instances) == 0 {
			return zero, invalidFormat("instances must be a non-empty array")
		}
		first, ok := instances[0].(map[string]interface{})
		if !ok {
			return zero, invalidFormat("instances[0] must be an object")
		}
		instance = first

	case shapeNdArrayNested:
		data := body["data"].(map[string]interface{})
		rows, ok := data["ndarray"].([]interface{})
		if !ok || len(rows) == 0 {
			return zero, invalidFormat("data.ndarray must be a non-empty array")
		}
		row, ok := rows[0].([]interface{})
		if !ok {
			return zero, invalidFormat("data.ndarray[0] must be an array")
		}
		return fromRow(row)

	case shapeNdArrayFlat:
		return fromRow(body["data"].([]interface{}))

	default:
		return zero, invalidFormat("unrecognized request format")
	}

	var missing []string
	for _, name := range models.FeatureNames {
		if _, ok := instance[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return zero, missingFeatures(missing)
	}

	values := make([]float64, len(models.FeatureNames))
	for i, name := range models.FeatureNames {
		v, err := util.ToFloat(instance[name])
		if err != nil {
			return zero, coercionFailure(name, err)
		}
		values[i] = v
	}
	return models.FromValues(values), nil
}

// fromRow zips a positional row against the fixed feature order.
func fromRow(row []interface{}) (models.FeatureVector, *Error) {
	var zero models.FeatureVector

	if len(row) < len(models.FeatureNames) {
		return zero, missingFeatures(models.FeatureNames[len(row):])
	}

	values := make([]float64, len(models.FeatureNames))
	for i, name := range models.FeatureNames {
		v, err := util.ToFloat(row[i])
		if err != nil {
			return zero, coercionFailure(name, err)
		}
		values[i] = v
	}
	return models.FromValues(values), nil
}
