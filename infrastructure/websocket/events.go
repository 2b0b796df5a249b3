package websocket

// Inbound events (client -> server).
const (
	ChatJoin     = "chat:join"
	ChatLeave    = "chat:leave"
	ChatTyping   = "chat:typing"
	ChatMarkRead = "chat:markRead"
	EventJoin    = "event:join"
	EventLeave   = "event:leave"
)

// Outbound events (server -> client).
const (
	ChatNewMessage         = "chat:newMessage"
	ChatTypingBroadcast    = "chat:typing"
	ChatMessageRead        = "chat:messageRead"
	MatchNew               = "match:new"
	EventUserJoined        = "event:userJoined"
	ChatConversationUpdate = "chat:conversationUpdate"
)
