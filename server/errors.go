package server

import "fmt"

// FailReply is a handler's explicit, expected failure: it becomes
// "!name[mid] fail <message>" without being logged as an error (spec
// section 7). Use Fail to construct one.
type FailReply struct {
	Message string
}

func (e *FailReply) Error() string {
	return e.Message
}

// Fail builds a FailReply with a formatted message.
func Fail(format string, args ...interface{}) error {
	return &FailReply{Message: fmt.Sprintf(format, args...)}
}
