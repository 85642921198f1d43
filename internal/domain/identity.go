package domain

// Identity is the verified caller passed explicitly into every engine
// operation. It is never read from shared state.
type Identity struct {
	Email    string
	Role     Role
	District *string
}

// DistrictValue returns the registered district or empty.
func (id Identity) DistrictValue() string {
	if id.District == nil {
		return ""
	}
	return *id.District
}
