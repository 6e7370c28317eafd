package main

import "task-assignment-api.com/task-assignment-api/cmd"

func main() {
	cmd.Execute()
}
