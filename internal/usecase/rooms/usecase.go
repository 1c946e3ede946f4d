package rooms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kiryu-dev/roomchat/internal/domain"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type useCase struct {
	rooms        map[string]map[string]*domain.Session
	echoToSender bool
	sessions     *atomic.Int64
	mu           *sync.RWMutex
	logger       *zap.Logger
}

// New creates an empty room registry. echoToSender decides whether a
// sender receives its own broadcasts.
func New(echoToSender bool, logger *zap.Logger) *useCase {
	return &useCase{
		rooms:        make(map[string]map[string]*domain.Session),
		echoToSender: echoToSender,
		sessions:     atomic.NewInt64(0),
		mu:           &sync.RWMutex{},
		logger:       logger,
	}
}

// Join puts session into room, moving it out of the room it was in.
func (u *useCase) Join(session *domain.Session, room string) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	previous := session.Room()
	if previous == room {
		return previous
	}
	if previous != "" {
		u.removeLocked(session, previous)
	} else {
		u.sessions.Inc()
	}
	members, ok := u.rooms[room]
	if !ok {
		members = make(map[string]*domain.Session)
		u.rooms[room] = members
	}
	members[session.Id()] = session
	session.SetRoom(room)
	u.logger.Info("joined room", zap.String("session", session.Id()),
		zap.String("name", session.Name()), zap.String("room", room), zap.String("previous", previous))
	return previous
}

// Leave removes session from its room. Leaving twice is a no-op.
func (u *useCase) Leave(session *domain.Session) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	room := session.Room()
	if room == "" {
		return ""
	}
	u.removeLocked(session, room)
	session.SetRoom("")
	u.sessions.Dec()
	u.logger.Info("left room", zap.String("session", session.Id()),
		zap.String("name", session.Name()), zap.String("room", room))
	return room
}

func (u *useCase) removeLocked(session *domain.Session, room string) {
	members, ok := u.rooms[room]
	if !ok {
		return
	}
	delete(members, session.Id())
	if len(members) == 0 {
		delete(u.rooms, room)
	}
}

// Members returns a snapshot of the room's sessions.
func (u *useCase) Members(room string) []*domain.Session {
	u.mu.RLock()
	defer u.mu.RUnlock()
	members := u.rooms[room]
	result := make([]*domain.Session, 0, len(members))
	for _, s := range members {
		result = append(result, s)
	}
	return result
}

func (u *useCase) Rooms() []domain.RoomInfo {
	u.mu.RLock()
	defer u.mu.RUnlock()
	result := make([]domain.RoomInfo, 0, len(u.rooms))
	for name, members := range u.rooms {
		result = append(result, domain.RoomInfo{Name: name, Members: len(members)})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

func (u *useCase) SessionCount() int {
	return int(u.sessions.Load())
}

// Broadcast writes "<sender>: <text>" to every member of the sender's room.
// The lock is only held to snapshot the members; writes run in parallel and
// Broadcast returns once all of them finished, which keeps one sender's
// messages in order. A recipient whose write fails is dropped from its room
// and closed, the remaining recipients are unaffected.
func (u *useCase) Broadcast(ctx context.Context, sender *domain.Session, text string) int {
	room := sender.Room()
	if room == "" {
		return 0
	}
	line := FormatLine(sender.Name(), text)
	delivered := atomic.NewInt64(0)
	errGroup := new(errgroup.Group)
	for _, member := range u.Members(room) {
		if member.Id() == sender.Id() && !u.echoToSender {
			continue
		}
		member := member
		errGroup.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := member.Send(line); err != nil {
				u.logger.Warn("dropping unreachable member", zap.String("room", room),
					zap.String("session", member.Id()), zap.Error(err))
				u.drop(member, room)
				return nil
			}
			delivered.Inc()
			return nil
		})
	}
	_ = errGroup.Wait()
	return int(delivered.Load())
}

// drop removes member only if it still belongs to room; it may have
// switched rooms while the write was failing.
func (u *useCase) drop(member *domain.Session, room string) {
	u.mu.Lock()
	if member.Room() == room {
		u.removeLocked(member, room)
		member.SetRoom("")
		u.sessions.Dec()
	}
	u.mu.Unlock()
	member.Close()
}

func FormatLine(name, text string) string {
	return fmt.Sprintf("%s: %s\n", name, text)
}
