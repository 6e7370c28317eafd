package dto

type CreateUserRequest struct {
	Name         string   `json:"name" form:"name" validate:"required"`
	Email        string   `json:"email" form:"email" validate:"required"`
	PendingTasks []string `json:"pendingTasks" form:"pendingTasks"`
}

func (CreateUserRequest) FieldMessages() map[string]string {
	return map[string]string{
		"name":  "Name and email are required.",
		"email": "Name and email are required.",
	}
}

// UpdateUserRequest leaves absent fields nil. A PendingTasks slice that is
// present but empty clears the list.
type UpdateUserRequest struct {
	Name         *string  `json:"name" form:"name"`
	Email        *string  `json:"email" form:"email"`
	PendingTasks []string `json:"pendingTasks" form:"pendingTasks"`
}
