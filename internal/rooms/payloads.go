package rooms

import "pixelchat/internal/models"

type joinPayload struct {
	Room int64  `json:"room"`
	Name string `json:"name"`
}

type createPayload struct {
	ReceiverID int64  `json:"receiverId"`
	Name       string `json:"name"`
}

type memberPayload struct {
	RoomID int64 `json:"roomId"`
	UserID int64 `json:"userId"`
}

type editRoomPayload struct {
	RoomID int64  `json:"roomId"`
	Name   string `json:"name,omitempty"`
	Photo  string `json:"photo,omitempty"`
}

type memberUpdate struct {
	Member models.Member       `json:"member"`
	Status models.MemberChange `json:"status"`
}
