package customers

// UpdateCustomerRequest changes contact and prescription metadata. Nil fields are left as they are.
type UpdateCustomerRequest struct {
	Name               *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone              *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email              *string `json:"email,omitempty" validate:"omitempty,email"`
	Address            *string `json:"address,omitempty" validate:"omitempty,max=500"`
	DoctorName         *string `json:"doctor_name,omitempty" validate:"omitempty,max=200"`
	PrescriptionNumber *string `json:"prescription_number,omitempty" validate:"omitempty,max=100"`
	IsActive           *bool   `json:"is_active,omitempty"`
}

// ListCustomersRequest filters the customer directory.
type ListCustomersRequest struct {
	Search   string
	IsActive *bool
	Limit    int `validate:"gte=0,lte=200"`
	Offset   int `validate:"gte=0"`
}
