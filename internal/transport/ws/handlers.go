package ws

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/kiryu-dev/roomchat/internal/domain"
	"go.uber.org/zap"
)

type healthResponse struct {
	Status   string            `json:"status"`
	Sessions int               `json:"sessions"`
	Rooms    []domain.RoomInfo `json:"rooms"`
}

func (s *server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(err.Error())
		return
	}
	s.logger.Info("new websocket connection", zap.String("addr", conn.RemoteAddr().String()))
	if err := s.chat.Handle(s.ctx, newClient(conn, s.writeTimeout)); err != nil {
		s.logger.Info(err.Error())
	}
}

func (s *server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Sessions: s.rooms.SessionCount(),
		Rooms:    s.rooms.Rooms(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := jsoniter.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		s.logger.Warn(err.Error())
	}
}
