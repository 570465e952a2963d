// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"devlink/internal/models"
	"devlink/internal/notifications"
)

const wsTicketTTL = 30 * time.Second

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set an
// Authorization header on a websocket upgrade, so authenticated clients trade
// their JWT for a short-lived single-use ticket passed as a query parameter.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(fmt.Errorf("websocket tickets unavailable")))
	}

	ticket := uuid.New().String()
	key := fmt.Sprintf("ws_ticket:%s", ticket)
	if err := s.redis.Set(c.Context(), key, fmt.Sprintf("%d", userID), wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// WebsocketHandler returns a websocket handler that registers connections with the Hub.
// Authentication is handled by route middleware and userID is read from connection locals.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}
		uid, ok := userIDVal.(uint)
		if !ok {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		// Register connection with scaling guardrails
		client, err := s.hub.Register(uid, conn)
		if err != nil {
			log.Printf("WebSocket: failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		client.IncomingHandler = s.handleClientMessage

		defer s.hub.UnregisterClient(client)

		// Presence logic
		s.notifyFriendsPresence(uid, "online")
		s.sendFriendsOnlineSnapshot(conn, uid)

		// Start pumps
		go client.WritePump()
		client.ReadPump()

		// After ReadPump returns, client is disconnected
		if !s.hub.IsOnline(uid) {
			s.notifyFriendsPresence(uid, "offline")
		}
	})
}

// handleClientMessage processes messages sent by the client over the
// notification socket. The only client-initiated actions are joining and
// leaving post rooms, which subscribe the connection to a post's live
// like/comment/repost counters.
func (s *Server) handleClientMessage(client *notifications.Client, data []byte) {
	var msg struct {
		Type   string `json:"type"`
		PostID uint   `json:"post_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		client.TrySend([]byte(`{"type":"error","payload":{"reason":"invalid_message"}}`))
		return
	}

	switch msg.Type {
	case "join_post":
		if msg.PostID == 0 {
			client.TrySend([]byte(`{"type":"error","payload":{"reason":"post_id_required"}}`))
			return
		}
		s.hub.JoinPost(client, msg.PostID)
	case "leave_post":
		if msg.PostID == 0 {
			return
		}
		s.hub.LeavePost(client, msg.PostID)
	case "ping":
		client.TrySend([]byte(`{"type":"pong"}`))
	default:
		client.TrySend([]byte(`{"type":"error","payload":{"reason":"unknown_message_type"}}`))
	}
}

func (s *Server) notifyFriendsPresence(userID uint, status string) {
	if s.friendRepo == nil {
		return
	}
	friendIDs, err := s.friendRepo.GetFriendIDs(context.Background(), userID)
	if err != nil {
		log.Printf("failed to load friends for presence event: %v", err)
		return
	}
	user, err := s.userRepo.GetByID(context.Background(), userID)
	if err != nil {
		log.Printf("failed to load user for presence event: %v", err)
		return
	}
	for _, friendID := range friendIDs {
		s.publishUserEvent(friendID, EventFriendPresenceChanged, map[string]interface{}{
			"user_id":    user.ID,
			"full_name":  user.FullName,
			"avatar":     user.Avatar,
			"status":     status,
			"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

func (s *Server) sendFriendsOnlineSnapshot(conn *websocket.Conn, userID uint) {
	if s.friendRepo == nil || s.hub == nil {
		return
	}
	friendIDs, err := s.friendRepo.GetFriendIDs(context.Background(), userID)
	if err != nil {
		log.Printf("failed to load friends for online snapshot: %v", err)
		return
	}
	onlineFriendIDs := make([]uint, 0, len(friendIDs))
	for _, friendID := range friendIDs {
		if s.hub.IsOnline(friendID) {
			onlineFriendIDs = append(onlineFriendIDs, friendID)
		}
	}
	msg, err := json.Marshal(map[string]interface{}{
		"type": "friends_online_snapshot",
		"payload": map[string]interface{}{
			"user_ids": onlineFriendIDs,
		},
	})
	if err != nil {
		log.Printf("failed to marshal friends online snapshot: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Printf("failed to write friends online snapshot: %v", err)
	}
}
