package dto

type VerifyUserRequest struct {
	UserID           string `json:"userId" validate:"required"`
	Action           string `json:"action" validate:"required,action"`
	RepresentativeID string `json:"representativeId,omitempty"`
}

func (r *VerifyUserRequest) Validate() error {
	trim(&r.UserID, &r.Action, &r.RepresentativeID)
	return validateStruct(r)
}

type AssignRepresentativeRequest struct {
	UserID           string `json:"userId" validate:"required"`
	RepresentativeID string `json:"representativeId" validate:"required"`
}

func (r *AssignRepresentativeRequest) Validate() error {
	trim(&r.UserID, &r.RepresentativeID)
	return validateStruct(r)
}
