package transport

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleRequest carries either the id token from the Google popup or the
// error code the popup reported.
type GoogleRequest struct {
	IDToken   string `json:"id_token"`
	ErrorCode string `json:"error_code"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type DecisionRequest struct {
	Confirm bool   `json:"confirm"`
	Reason  string `json:"reason"`
}

type PermissionRequest struct {
	Permission string `json:"permission" validate:"required"`
}

// DraftFields is a partial update of the product draft; nil fields are left
// unchanged.
type DraftFields struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	Gender      *string `json:"gender"`
	Featured    *bool   `json:"featured"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

type SizeRequest struct {
	Size string `json:"size" validate:"required"`
}

type ImageRequest struct {
	URL string `json:"url" validate:"required"`
}
