package proto

import (
	"fmt"
	"strings"
)

// ServerName is the sender name used on frames originating from the server.
const ServerName = "server"

// PayloadSeparator joins compound text payloads (register credentials,
// history entries, the two halves of the userlist snapshot).
const PayloadSeparator = "||"

// Request types accepted from clients. The set is closed; anything else is
// answered with an error frame.
const (
	TypeRegister       = "register"
	TypeLogin          = "login"
	TypeMessage        = "message"
	TypeHistoryRequest = "history_request"
	TypeExit           = "exit"
)

// Response types emitted by the server.
const (
	TypeInfo            = "info"
	TypeError           = "error"
	TypeHistoryResponse = "history_response"
	TypeUserList        = "userlist"
)

// Message is the single frame shape for both directions: one JSON object per
// newline-terminated line. To and Text are nullable depending on type and are
// omitted when empty.
type Message struct {
	Type string `json:"type"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Text string `json:"text,omitempty"`
}

// Info builds a server info frame addressed to a user ("" for pre-auth
// connections).
func Info(to, text string) Message {
	return Message{Type: TypeInfo, From: ServerName, To: to, Text: text}
}

// Error builds a server error frame addressed to a user.
func Error(to, text string) Message {
	return Message{Type: TypeError, From: ServerName, To: to, Text: text}
}

// SplitRegisterPayload parses the register command's text field, which carries
// "email||password".
func SplitRegisterPayload(text string) (email, password string, err error) {
	email, password, ok := strings.Cut(text, PayloadSeparator)
	if !ok || email == "" || password == "" {
		return "", "", fmt.Errorf("register payload must be email%spassword", PayloadSeparator)
	}
	return email, password, nil
}

// JoinHistory encodes an ordered list of "sender: text" entries into a single
// history_response text payload. An empty history encodes to "".
func JoinHistory(entries []string) string {
	return strings.Join(entries, PayloadSeparator)
}

// UserListPayload encodes the combined snapshot of all registered usernames
// and the currently online usernames.
func UserListPayload(all, online []string) string {
	return strings.Join(all, ",") + PayloadSeparator + strings.Join(online, ",")
}
