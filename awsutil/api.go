package awsutil

import "github.com/mongodb/grip/message"

// MakeAPILogMessage creates a message to log information about an AWS API
// call. Inputs never carry credential material, so they are safe to log.
func MakeAPILogMessage(operation string, in any) message.Fields {
	return message.Fields{
		"message":   "AWS API call",
		"operation": operation,
		"input":     in,
	}
}
