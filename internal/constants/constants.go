package constants

const (
	UnassignedUserName = "unassigned"

	DefaultTaskLimit = 100

	ConsistencyWarningHeader = "X-Consistency-Warning"
)
