package dto

type UpdatePasswordInput struct {
	NewPassword string `json:"new_password" validate:"required"`
}

type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required"`
}

type ResetCodeOutput struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expires_in"`
}
