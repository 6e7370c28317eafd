package repository

import "task-assignment-api.com/task-assignment-api/internal/query"

var TaskSchema = query.Schema{Fields: map[string]query.Field{
	"_id":              {Column: "id", Kind: query.KindString},
	"name":             {Column: "name", Kind: query.KindString},
	"description":      {Column: "description", Kind: query.KindString},
	"deadline":         {Column: "deadline", Kind: query.KindTime},
	"completed":        {Column: "completed", Kind: query.KindBool},
	"assignedUser":     {Column: "assigned_user", Kind: query.KindString},
	"assignedUserName": {Column: "assigned_user_name", Kind: query.KindString},
	"dateCreated":      {Column: "date_created", Kind: query.KindTime},
	"__v":              {Column: "version", Kind: query.KindInt},
}}

var UserSchema = query.Schema{Fields: map[string]query.Field{
	"_id":   {Column: "id", Kind: query.KindString},
	"name":  {Column: "name", Kind: query.KindString},
	"email": {Column: "email", Kind: query.KindString},
	"pendingTasks": {
		Column: "pending_tasks",
		Kind:   query.KindStringSet,
		Member: "EXISTS (SELECT 1 FROM user_pending_tasks upt WHERE upt.user_id = users.id AND upt.task_id %s)",
	},
	"dateCreated": {Column: "date_created", Kind: query.KindTime},
}}
