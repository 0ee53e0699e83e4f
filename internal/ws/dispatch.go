package ws

import (
	"context"

	"zipchat/internal/models"
	"zipchat/internal/registry"
	"zipchat/pkg/apperrors"
	"zipchat/pkg/logger"
)

// handleFrame runs on the read pump goroutine, so join state needs no lock.
// Malformed frames get an error reply and the connection stays open.
func (c *Client) handleFrame(raw []byte) {
	cf, err := models.DecodeClientFrame(raw)
	if err != nil {
		c.sendError(err)
		return
	}

	ctx := context.Background()
	switch cf.Type {
	case models.FrameJoin:
		c.handleJoin(ctx, cf.Join)
	case models.FrameMessage:
		c.handleMessage(ctx, cf.Message)
	case models.FramePrivateMessage:
		c.handlePrivateMessage(ctx, cf.Private)
	case models.FrameGetPrivateMessages:
		c.handleHistory(ctx, cf.History)
	case models.FramePing:
		c.handlePing(ctx)
	case models.FramePresence:
		c.handlePresence(ctx)
	}
}

func (c *Client) handleJoin(ctx context.Context, p *models.JoinPayload) {
	if c.joined {
		// A retried join changes no state; the client just gets a fresh
		// snapshot of the room it is already bound to.
		c.sendJoined(ctx)
		return
	}

	ok := c.deps.Registry.Join(&registry.Binding{
		ConnectionID: c.connectionID,
		UserID:       c.userID,
		Username:     c.username,
		Zipcode:      p.Zipcode,
		Sink:         c,
	})
	if !ok {
		return
	}
	c.joined = true
	c.zipcode = p.Zipcode

	if err := c.deps.Presence.Touch(ctx, c.userID, c.username, c.zipcode); err != nil {
		logger.Error("Presence touch on join failed for %s: %v", c.userID, err)
	}

	c.sendJoined(ctx)
	c.deps.Broadcaster.NotifyUserJoined(c.zipcode, c.userID, c.username, c.connectionID)
	c.deps.Broadcaster.BroadcastUserList(ctx, c.zipcode)
	logger.Info("User %s joined room %s", c.username, c.zipcode)
}

// sendJoined replies with the room snapshot: the bounded backlog plus the
// current active-user list.
func (c *Client) sendJoined(ctx context.Context) {
	recent, err := c.deps.Messages.RecentRoomMessages(ctx, c.zipcode, c.deps.BacklogLimit)
	if err != nil {
		logger.Error("Error loading backlog for %s: %v", c.zipcode, err)
	}
	users, err := c.deps.Presence.ActiveUsers(ctx, c.zipcode)
	if err != nil {
		logger.Error("Error loading active users for %s: %v", c.zipcode, err)
	}

	c.reply(models.FrameJoined, models.JoinedPayload{
		UserID:         c.userID,
		Username:       c.username,
		Zipcode:        c.zipcode,
		RecentMessages: recent,
		ActiveUsers:    users,
	})
}

func (c *Client) handleMessage(ctx context.Context, p *models.MessagePayload) {
	if !c.joined {
		c.sendError(apperrors.NotJoined("join a room before sending messages"))
		return
	}
	if !models.ValidateContent(p.Content) {
		c.sendError(apperrors.InvalidArg("content must be non-empty and at most 500 characters"))
		return
	}

	if _, err := c.deps.Broadcaster.BroadcastMessage(ctx, c.zipcode, c.userID, c.username, p.Content); err != nil {
		logger.Error("Room send failed for %s: %v", c.userID, err)
		c.sendError(err)
		return
	}
	c.touch(ctx)
}

func (c *Client) handlePrivateMessage(ctx context.Context, p *models.PrivateMessagePayload) {
	if !c.joined {
		c.sendError(apperrors.NotJoined("join before sending private messages"))
		return
	}
	if !models.ValidateContent(p.Content) {
		c.sendError(apperrors.InvalidArg("content must be non-empty and at most 500 characters"))
		return
	}

	if _, err := c.deps.Router.SendPrivate(ctx, c.userID, c.username, p.RecipientID, p.Content); err != nil {
		logger.Error("Private send failed for %s: %v", c.userID, err)
		c.sendError(err)
		return
	}
	c.touch(ctx)
}

func (c *Client) handleHistory(ctx context.Context, p *models.GetPrivateMessagesPayload) {
	if !c.joined {
		c.sendError(apperrors.NotJoined("join before fetching history"))
		return
	}

	limit := p.Limit
	if limit <= 0 || limit > c.deps.HistoryLimit {
		limit = c.deps.HistoryLimit
	}
	msgs, err := c.deps.Router.FetchHistory(ctx, c.userID, p.WithUserID, limit)
	if err != nil {
		c.sendError(err)
		return
	}
	c.reply(models.FramePrivateMessagesHistory, models.PrivateMessagesHistoryPayload{
		WithUserID: p.WithUserID,
		Messages:   msgs,
	})
}

func (c *Client) handlePing(ctx context.Context) {
	if c.joined {
		c.touch(ctx)
	}
	c.reply(models.FramePong, nil)
}

func (c *Client) handlePresence(ctx context.Context) {
	if !c.joined {
		c.sendError(apperrors.NotJoined("join before requesting presence"))
		return
	}
	users, err := c.deps.Presence.ActiveUsers(ctx, c.zipcode)
	if err != nil {
		c.sendError(err)
		return
	}
	c.reply(models.FrameUsersUpdated, models.UsersUpdatedPayload{
		Zipcode: c.zipcode,
		Users:   users,
	})
}

func (c *Client) touch(ctx context.Context) {
	if err := c.deps.Presence.Touch(ctx, c.userID, c.username, c.zipcode); err != nil {
		logger.Error("Presence touch failed for %s: %v", c.userID, err)
	}
}

func (c *Client) reply(t models.FrameType, data interface{}) {
	frame, err := models.EncodeFrame(t, data)
	if err != nil {
		logger.Error("Error encoding %s frame: %v", t, err)
		return
	}
	c.Enqueue(frame)
}

func (c *Client) sendError(err error) {
	c.Enqueue(models.ErrorFrame(err))
}
