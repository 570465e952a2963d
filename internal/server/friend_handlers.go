// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"time"

	"devlink/internal/cache"
	"devlink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequest handles POST /api/friends/requests/:userId
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetUserID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	friendship, err := s.friendService.SendFriendRequest(c.Context(), userID, targetUserID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	// Notify both users so UI updates immediately.
	s.publishUserEvent(friendship.AddresseeID, EventFriendRequestReceived, map[string]interface{}{
		"request_id": friendship.ID,
		"from_user":  userSummary(friendship.Requester),
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	s.publishUserEvent(friendship.RequesterID, EventFriendRequestSent, map[string]interface{}{
		"request_id": friendship.ID,
		"to_user":    userSummary(friendship.Addressee),
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})

	return c.Status(fiber.StatusCreated).JSON(friendship)
}

// GetPendingRequests handles GET /api/friends/requests
func (s *Server) GetPendingRequests(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	requests, err := s.friendService.GetPendingRequests(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(requests)
}

// GetSentRequests handles GET /api/friends/requests/sent
func (s *Server) GetSentRequests(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	requests, err := s.friendService.GetSentRequests(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(requests)
}

// AcceptFriendRequest handles POST /api/friends/requests/:requestId/accept
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}

	friendship, err := s.friendService.AcceptFriendRequest(c.Context(), userID, requestID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishUserEvent(friendship.RequesterID, EventFriendRequestAccepted, map[string]interface{}{
		"request_id":  friendship.ID,
		"friend_user": userSummary(friendship.Addressee),
		"created_at":  time.Now().UTC().Format(time.RFC3339Nano),
	})
	s.publishUserEvent(friendship.AddresseeID, EventFriendAdded, map[string]interface{}{
		"request_id":  friendship.ID,
		"friend_user": userSummary(friendship.Requester),
		"created_at":  time.Now().UTC().Format(time.RFC3339Nano),
	})

	return c.JSON(friendship)
}

// RejectFriendRequest handles POST /api/friends/requests/:requestId/reject
func (s *Server) RejectFriendRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}

	friendship, err := s.friendService.RejectFriendRequest(c.Context(), userID, requestID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	rejectedAt := time.Now().UTC().Format(time.RFC3339Nano)
	s.publishUserEvent(friendship.RequesterID, EventFriendRequestRejected, map[string]interface{}{
		"request_id":  friendship.ID,
		"by_user_id":  userID,
		"rejected_at": rejectedAt,
	})
	s.publishUserEvent(friendship.AddresseeID, EventFriendRequestRejected, map[string]interface{}{
		"request_id":  friendship.ID,
		"by_user_id":  userID,
		"rejected_at": rejectedAt,
	})

	return c.SendStatus(fiber.StatusNoContent)
}

// CancelFriendRequest handles DELETE /api/friends/requests/:requestId
func (s *Server) CancelFriendRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}

	friendship, err := s.friendService.CancelFriendRequest(c.Context(), userID, requestID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	cancelledAt := time.Now().UTC().Format(time.RFC3339Nano)
	s.publishUserEvent(friendship.RequesterID, EventFriendRequestCancelled, map[string]interface{}{
		"request_id":   friendship.ID,
		"by_user_id":   userID,
		"cancelled_at": cancelledAt,
	})
	s.publishUserEvent(friendship.AddresseeID, EventFriendRequestCancelled, map[string]interface{}{
		"request_id":   friendship.ID,
		"by_user_id":   userID,
		"cancelled_at": cancelledAt,
	})

	return c.SendStatus(fiber.StatusNoContent)
}

// GetFriends handles GET /api/friends
func (s *Server) GetFriends(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	friends, err := s.friendService.GetFriends(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(friends)
}

// GetFriendSuggestions handles GET /api/friends/suggestions
func (s *Server) GetFriendSuggestions(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	p := parsePagination(c, 10)

	// Behind a flag so the ordering can be rolled out gradually.
	random := s.featureFlags.Enabled("random_suggestions", userID)

	// The default first page is cacheable; random samples and deep pages are
	// not. Relationship changes invalidate through cache.InvalidateUser.
	if !random && p.Offset == 0 {
		var suggestions []models.User
		err := cache.Aside(c.Context(), cache.SuggestionKey(userID), &suggestions, cache.SuggestionTTL, func() error {
			fetched, fetchErr := s.friendService.GetSuggestions(c.Context(), userID, p.Limit, p.Offset, random)
			if fetchErr != nil {
				return fetchErr
			}
			suggestions = fetched
			return nil
		})
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		return c.JSON(suggestions)
	}

	suggestions, err := s.friendService.GetSuggestions(c.Context(), userID, p.Limit, p.Offset, random)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(suggestions)
}

// GetFriendshipStatus handles GET /api/friends/status/:userId
func (s *Server) GetFriendshipStatus(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetUserID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	status, requestID, friendship, err := s.friendService.GetFriendshipStatus(c.Context(), userID, targetUserID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"status":     status,
		"request_id": requestID,
		"friendship": friendship,
	})
}

// RemoveFriend handles DELETE /api/friends/:userId
func (s *Server) RemoveFriend(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetUserID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if _, err := s.friendService.RemoveFriend(c.Context(), userID, targetUserID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	removedAt := time.Now().UTC().Format(time.RFC3339Nano)
	s.publishUserEvent(userID, EventFriendRemoved, map[string]interface{}{
		"user_id":    targetUserID,
		"removed_at": removedAt,
	})
	s.publishUserEvent(targetUserID, EventFriendRemoved, map[string]interface{}{
		"user_id":    userID,
		"removed_at": removedAt,
	})

	return c.SendStatus(fiber.StatusOK)
}
