package dto

type CreateTaskRequest struct {
	Name             string     `json:"name" form:"name" validate:"required"`
	Description      string     `json:"description" form:"description"`
	Deadline         *Timestamp `json:"deadline" form:"deadline" validate:"required"`
	Completed        bool       `json:"completed" form:"completed"`
	AssignedUser     string     `json:"assignedUser" form:"assignedUser"`
	AssignedUserName *string    `json:"assignedUserName" form:"assignedUserName"`
}

func (CreateTaskRequest) FieldMessages() map[string]string {
	return map[string]string{
		"name":     "Task name is required.",
		"deadline": "Deadline is required.",
	}
}

// UpdateTaskRequest leaves absent fields nil so that they keep their stored
// value.
type UpdateTaskRequest struct {
	Name             *string    `json:"name" form:"name"`
	Description      *string    `json:"description" form:"description"`
	Deadline         *Timestamp `json:"deadline" form:"deadline"`
	Completed        *bool      `json:"completed" form:"completed"`
	AssignedUser     *string    `json:"assignedUser" form:"assignedUser"`
	AssignedUserName *string    `json:"assignedUserName" form:"assignedUserName"`
}
