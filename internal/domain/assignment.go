package domain

import (
	"time"
)

type Assignment struct {
	Room       string    `json:"room"`
	EndpointID int       `json:"endpoint_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type AssignmentUseCase interface {
	Resolve(room string) (Endpoint, error)
	Invalidate(endpointID int) (removed int)
	Assignments() []Assignment
	Counts() map[int]int
}
