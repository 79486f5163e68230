package data

// HouseData is one row of a house sales dataset.
type HouseData struct {
	Label        float64 `json:"price"`
	Bedrooms     float64 `json:"bedrooms"`
	Bathrooms    float64 `json:"bathrooms"`
	LivingArea   float64 `json:"sqft_living"`
	LotArea      float64 `json:"sqft_lot"`
	Floors       float64 `json:"floors"`
	Waterfront   float64 `json:"waterfront"`
	View         float64 `json:"view"`
	Condition    float64 `json:"condition"`
	Grade        float64 `json:"grade"`
	HighFeet     float64 `json:"sqft_above"`
	BasementFeet float64 `json:"sqft_basement"`
}

// HousePrediction is the model output for one row.
type HousePrediction struct {
	SoldPrice float64 `json:"SoldPrice"`
}

// fields returns pointers to the fields in HouseDataSchema order.
func (h *HouseData) fields() []*float64 {
	return []*float64{
		&h.Label,
		&h.Bedrooms,
		&h.Bathrooms,
		&h.LivingArea,
		&h.LotArea,
		&h.Floors,
		&h.Waterfront,
		&h.View,
		&h.Condition,
		&h.Grade,
		&h.HighFeet,
		&h.BasementFeet,
	}
}

// Values returns the row in HouseDataSchema order.
func (h HouseData) Values() []float64 {
	ptrs := h.fields()
	out := make([]float64, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}
