package domain

import (
	"context"
)

type RoomInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

type RoomUseCase interface {
	Join(session *Session, room string) (previous string)
	Leave(session *Session) (room string)
	Members(room string) []*Session
	Rooms() []RoomInfo
	SessionCount() int
	Broadcast(ctx context.Context, sender *Session, text string) (delivered int)
}

type ChatUseCase interface {
	Handle(ctx context.Context, conn Conn) error
}
