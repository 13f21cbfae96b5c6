// Package events holds the socket event names for the two conversation
// namespaces. Direct and group chats speak the same protocol; group events
// carry a GC_ prefix and add membership management.
package events

// Namespace is the full event vocabulary of one conversation kind.
// Fields left empty (membership events on the direct namespace) are
// simply never subscribed or emitted.
type Namespace struct {
	// Outbound
	JoinRoom         string
	CreateRoom       string
	SendMessage      string
	EditMessage      string
	DeleteMessage    string
	ReactToMessage   string
	UnreactToMessage string
	Typing           string
	StopTyping       string
	MarkAsRead       string
	LoadMoreMessages string
	MakeAdmin        string
	RemoveAdmin      string
	AddMember        string
	RemoveMember     string
	EditRoom         string

	// Inbound
	Messages          string
	NewMessage        string
	MessagesRead      string
	MessageEdited     string
	MessageDeleted    string
	MessageReacted    string
	MessageUnreacted  string
	UserTyping        string
	UserStoppedTyping string
	AdminUpdated      string
	MemberUpdated     string
	RoomEdited        string
}

// Direct is the 1:1 chat namespace.
var Direct = Namespace{
	JoinRoom:         "JOIN_ROOM",
	CreateRoom:       "CREATE_ROOM",
	SendMessage:      "SEND_MESSAGE",
	EditMessage:      "EDIT_MESSAGE",
	DeleteMessage:    "DELETE_MESSAGE",
	ReactToMessage:   "REACT_TO_MESSAGE",
	UnreactToMessage: "UNREACT_TO_MESSAGE",
	Typing:           "TYPING",
	StopTyping:       "STOP_TYPING",
	MarkAsRead:       "MARK_AS_READ",
	LoadMoreMessages: "LOAD_MORE_MESSAGES",

	Messages:          "MESSAGES",
	NewMessage:        "NEW_MESSAGE",
	MessagesRead:      "MESSAGES_READ",
	MessageEdited:     "MESSAGE_EDITED",
	MessageDeleted:    "MESSAGE_DELETED",
	MessageReacted:    "MESSAGE_REACTED",
	MessageUnreacted:  "MESSAGE_UNREACTED",
	UserTyping:        "USER_TYPING",
	UserStoppedTyping: "USER_STOPPED_TYPING",
}

// Group is the group chat namespace. Identical semantics to Direct plus
// membership-change events.
var Group = Namespace{
	JoinRoom:         "GC_JOIN_ROOM",
	CreateRoom:       "GC_CREATE_ROOM",
	SendMessage:      "GC_SEND_MESSAGE",
	EditMessage:      "GC_EDIT_MESSAGE",
	DeleteMessage:    "GC_DELETE_MESSAGE",
	ReactToMessage:   "GC_REACT_TO_MESSAGE",
	UnreactToMessage: "GC_UNREACT_TO_MESSAGE",
	Typing:           "GC_TYPING",
	StopTyping:       "GC_STOP_TYPING",
	MarkAsRead:       "GC_MARK_AS_READ",
	LoadMoreMessages: "GC_LOAD_MORE_MESSAGES",
	MakeAdmin:        "GC_MAKE_ADMIN",
	RemoveAdmin:      "GC_REMOVE_ADMIN",
	AddMember:        "GC_ADD_MEMBER",
	RemoveMember:     "GC_REMOVE_MEMBER",
	EditRoom:         "GC_EDIT_GROUPCHAT",

	Messages:          "GC_MESSAGES",
	NewMessage:        "GC_NEW_MESSAGE",
	MessagesRead:      "GC_MESSAGES_READ",
	MessageEdited:     "GC_MESSAGE_EDITED",
	MessageDeleted:    "GC_MESSAGE_DELETED",
	MessageReacted:    "GC_MESSAGE_REACTED",
	MessageUnreacted:  "GC_MESSAGE_UNREACTED",
	UserTyping:        "GC_USER_TYPING",
	UserStoppedTyping: "GC_USER_STOPPED_TYPING",
	AdminUpdated:      "GC_ADMIN_UPDATED",
	MemberUpdated:     "GC_MEMBER_UPDATED",
	RoomEdited:        "GC_GROUPCHAT_EDITED",
}

// ForKind returns the namespace for a conversation kind.
func ForKind(group bool) Namespace {
	if group {
		return Group
	}
	return Direct
}
