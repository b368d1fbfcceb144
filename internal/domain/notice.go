package domain

// NoticeKind classifies a user-facing notice
type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

// Notice is a message meant for the person using the client
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Info builds an informational notice
func Info(msg string) Notice {
	return Notice{Kind: NoticeInfo, Message: msg}
}

// Failure builds an error notice
func Failure(msg string) Notice {
	return Notice{Kind: NoticeError, Message: msg}
}
