package user

type CreateUserReq struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     string  `json:"role" validate:"required"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

type UpdateUserReq struct {
	Name    string  `json:"name" validate:"required"`
	Email   string  `json:"email" validate:"required,email"`
	Role    string  `json:"role" validate:"required"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}
