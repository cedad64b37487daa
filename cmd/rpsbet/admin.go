package main

import (
	"fmt"
	"time"

	"github.com/lox/rpsbet/cmd/rpsbet/shared"
	"github.com/lox/rpsbet/internal/client"
	"github.com/lox/rpsbet/internal/protocol"
)

// AdminCmd sends a token-gated administrative call: pausing commits,
// resuming them, or aborting a stuck round.
type AdminCmd struct {
	Action string `kong:"arg,enum='lock,unlock,abort',help='One of: lock, unlock, abort'"`
	Server string `kong:"default='ws://localhost:8080/ws',help='Server URL'"`
	Token  string `kong:"required,help='Admin token'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *AdminCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	result := make(chan error, 1)
	cl := client.New(c.Server, logger)
	cl.On(protocol.TypeAck, func(*protocol.Message) {
		result <- nil
	})
	cl.On(protocol.TypeError, func(msg *protocol.Message) {
		var e protocol.ErrorData
		if err := msg.DecodeData(&e); err != nil {
			result <- err
			return
		}
		result <- fmt.Errorf("%s: %s", e.Code, e.Message)
	})

	if err := cl.Connect(); err != nil {
		return err
	}
	defer cl.Close()

	var msgType protocol.MessageType
	switch c.Action {
	case "lock":
		msgType = protocol.TypeLock
	case "unlock":
		msgType = protocol.TypeUnlock
	case "abort":
		msgType = protocol.TypeAbort
	}
	if err := cl.Send(msgType, protocol.AdminData{Token: c.Token}); err != nil {
		return err
	}

	select {
	case err := <-result:
		if err != nil {
			return err
		}
		logger.Info().Str("action", c.Action).Msg("done")
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out waiting for server response")
	}
}
