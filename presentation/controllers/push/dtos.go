package push

import "encoding/json"

type EmitToIdentityRequest struct {
	Event   string          `json:"event" binding:"required,min=1,max=64"`
	Payload json.RawMessage `json:"payload"`
}

type NewMessageRequest struct {
	SenderID int64           `json:"senderId" binding:"required,gt=0"`
	Message  json.RawMessage `json:"message" binding:"required"`
}

type NewMatchRequest struct {
	UserIDs []int64         `json:"userIds" binding:"required,len=2,dive,gt=0"`
	Match   json.RawMessage `json:"match" binding:"required"`
}

type UserJoinedEventRequest struct {
	Participant json.RawMessage `json:"participant" binding:"required"`
}

type ConversationUpdateRequest struct {
	Conversation json.RawMessage `json:"conversation" binding:"required"`
}

type AcceptedResponse struct {
	Status string `json:"status"`
}
