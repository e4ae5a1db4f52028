package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

var errBadPayload = errors.New("bad payload")

func decode(message *Message, into any) error {
	if len(message.Payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(message.Payload, into); err != nil {
		return fmt.Errorf("%w: %w", errBadPayload, err)
	}

	return nil
}

func (that *Server) handleJoinRoom(ctx context.Context, client *Client, message *Message) error {
	var request JoinRoomRequest
	if err := decode(message, &request); err != nil {
		that.reply(client, message.Action, message.ID, Ack{Error: errBadPayload.Error()})
		return err
	}

	snapshot, err := that.manager.JoinRoom(ctx, request.Code, client.id, request.Name)
	if err != nil {
		that.replyError(client, message, err)
		return nil
	}

	that.reply(client, message.Action, message.ID, Ack{OK: true, Match: &snapshot})

	return nil
}

func (that *Server) handleQuickJoin(ctx context.Context, client *Client, message *Message) error {
	var request QuickJoinRequest
	if err := decode(message, &request); err != nil {
		that.reply(client, message.Action, message.ID, Ack{Error: errBadPayload.Error()})
		return err
	}

	result, err := that.manager.QuickJoin(ctx, client.id, request.Name)
	if err != nil {
		that.replyError(client, message, err)
		return fmt.Errorf("failed to quick join: %w", err)
	}

	that.reply(client, message.Action, message.ID, Ack{
		OK:      true,
		Code:    result.Code,
		Waiting: &result.Waiting,
		Match:   &result.Match,
	})

	return nil
}

func (that *Server) handlePlay(ctx context.Context, client *Client, message *Message) error {
	var request PlayRequest
	if err := decode(message, &request); err != nil {
		that.reply(client, message.Action, message.ID, Ack{Error: errBadPayload.Error()})
		return err
	}

	if err := that.manager.SubmitMove(ctx, request.Code, client.id, request.Choice); err != nil {
		that.replyError(client, message, err)
		return nil
	}

	that.reply(client, message.Action, message.ID, Ack{OK: true})

	return nil
}

func (that *Server) handleLeaveRoom(ctx context.Context, client *Client, message *Message) error {
	var request LeaveRoomRequest
	if err := decode(message, &request); err != nil {
		that.reply(client, message.Action, message.ID, Ack{Error: errBadPayload.Error()})
		return err
	}

	if err := that.manager.LeaveRoom(ctx, request.Code, client.id); err != nil {
		that.replyError(client, message, err)
		return nil
	}

	that.reply(client, message.Action, message.ID, Ack{OK: true})

	return nil
}

func (that *Server) handleSoloPlay(_ context.Context, client *Client, message *Message) error {
	var request SoloPlayRequest
	if err := decode(message, &request); err != nil {
		that.reply(client, message.Action, message.ID, Ack{Error: errBadPayload.Error()})
		return err
	}

	choice, err := entity.ParseChoice(request.Choice)
	if err != nil {
		that.replyError(client, message, err)
		return nil
	}

	round, game, err := that.solo.Play(client.id, choice)
	if err != nil {
		that.replyError(client, message, err)
		return nil
	}

	that.reply(client, message.Action, message.ID, Ack{OK: true, Solo: &SoloState{Round: &round, Game: game}})

	return nil
}

func (that *Server) handleSoloReset(_ context.Context, client *Client, message *Message) error {
	game := that.solo.Reset(client.id)

	that.reply(client, message.Action, message.ID, Ack{OK: true, Solo: &SoloState{Game: game}})

	return nil
}
