package server

import (
	"context"
	"encoding/json"
	"log"

	"devlink/internal/models"
)

// Event type constants prevent typos in event names.
const (
	EventFriendRequestReceived  = "friend_request_received"
	EventFriendRequestSent      = "friend_request_sent"
	EventFriendRequestAccepted  = "friend_request_accepted"
	EventFriendAdded            = "friend_added"
	EventFriendRequestRejected  = "friend_request_rejected"
	EventFriendRequestCancelled = "friend_request_cancelled"
	EventFriendRemoved          = "friend_removed"
	EventFriendPresenceChanged  = "friend_presence_changed"
	EventSystemAnnouncement     = "system_announcement"
)

// marshalEvent wraps payload in the {type, payload} envelope all websocket
// clients expect. An empty string means the event could not be encoded.
func marshalEvent(eventType string, payload map[string]interface{}) string {
	data, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		log.Printf("failed to marshal %s event: %v", eventType, err)
		return ""
	}
	return string(data)
}

// publishUserEvent delivers an event to every connection the user holds on
// this instance, then republishes through Redis for the other instances.
func (s *Server) publishUserEvent(userID uint, eventType string, payload map[string]interface{}) {
	message := marshalEvent(eventType, payload)
	if message == "" {
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(userID, message)
	}
	if s.notifier != nil {
		if err := s.notifier.PublishUser(context.Background(), userID, message); err != nil {
			log.Printf("failed to publish %s event to user %d: %v", eventType, userID, err)
		}
	}
}

// publishBroadcastEvent delivers an event to every connected client across
// all instances.
func (s *Server) publishBroadcastEvent(eventType string, payload map[string]interface{}) {
	message := marshalEvent(eventType, payload)
	if message == "" {
		return
	}
	if s.hub != nil {
		s.hub.BroadcastAll(message)
	}
	if s.notifier != nil {
		if err := s.notifier.PublishBroadcast(context.Background(), message); err != nil {
			log.Printf("failed to publish %s broadcast event: %v", eventType, err)
		}
	}
}

// userSummary is the compact user shape embedded in realtime payloads.
func userSummary(user models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":        user.ID,
		"full_name": user.FullName,
		"avatar":    user.Avatar,
		"headline":  user.Headline,
	}
}

func userSummaryPtr(user *models.User) map[string]interface{} {
	if user == nil {
		return nil
	}
	return userSummary(*user)
}
