package hospitals

// Facility represents a hospital or clinic candidate for ambulance dispatch
type Facility struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Distance string `json:"distance"` // free text, e.g. "2.5 km"
}
