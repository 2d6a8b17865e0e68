package auth

type RegisterInput struct {
	Username string `json:"username" binding:"required,notblank,min=3,max=64"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
