package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dyluth/ideaboard/internal/canvas"
	"github.com/dyluth/ideaboard/internal/stage"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const outboxSize = 64

var errSlowClient = errors.New("client is not keeping up")

// toucher is implemented by stores whose presence expires unless refreshed.
type toucher interface {
	Touch(ctx context.Context) error
}

// session is one websocket. The engine is owned by the run loop; the reader
// and writer goroutines only move bytes.
type session struct {
	cfg  Config
	ws   *websocket.Conn
	room string
	log  zerolog.Logger

	outbox chan []byte
	cancel context.CancelCauseFunc
}

func (s *session) run(parent context.Context, open Opener) {
	ctx, cancel := context.WithCancelCause(parent)
	s.cancel = cancel
	defer cancel(nil)

	s.outbox = make(chan []byte, outboxSize)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx)
	}()
	defer func() {
		cancel(nil)
		<-writerDone
		s.ws.Close()
	}()

	store, err := open(ctx, s.room)
	if err != nil {
		s.log.Error().Err(err).Msg("room_open_failed")
		s.sendError(err)
		return
	}
	defer store.Close()

	log := s.log.With().Str("connection", store.ConnectionID()).Logger()

	if _, err := board.Open(ctx, store, stage.Seed(store.ConnectionID())); err != nil {
		log.Error().Err(err).Msg("room_seed_failed")
		s.sendError(err)
		return
	}

	engine := canvas.New(store, s.cfg.Canvas, log)

	// Subscribe before the first snapshot so nothing slips between them.
	sub, err := store.Subscribe(ctx)
	if err != nil {
		log.Error().Err(err).Msg("subscribe_failed")
		s.sendError(err)
		return
	}
	defer sub.Close()

	if err := engine.Sync(ctx); err != nil {
		log.Error().Err(err).Msg("sync_failed")
		s.sendError(err)
		return
	}

	s.send(ServerMessage{
		Type:         MsgWelcome,
		ConnectionID: store.ConnectionID(),
		Document:     engine.Document(),
		Others:       engine.Peers().Others(),
	})
	s.send(stateMessage(engine))
	log.Info().Msg("session_started")

	inbox := make(chan []byte, outboxSize)
	go s.readLoop(ctx, inbox)

	touch := time.NewTicker(s.cfg.TouchInterval)
	defer touch.Stop()
	t, canTouch := store.(toucher)
	errs := sub.Errors()

	for {
		select {
		case <-ctx.Done():
			log.Info().AnErr("cause", context.Cause(ctx)).Msg("session_closed")
			return

		case raw := <-inbox:
			var msg ClientMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				s.sendError(err)
				continue
			}
			if err := dispatch(ctx, engine, msg); err != nil {
				log.Debug().Err(err).Str("type", msg.Type).Msg("message_rejected")
				s.sendError(err)
			}
			s.send(stateMessage(engine))

		case ev, ok := <-sub.Events():
			if !ok {
				log.Warn().Msg("subscription_closed")
				return
			}
			if err := engine.Apply(ctx, ev); err != nil {
				log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("event_apply_failed")
			}
			s.send(eventMessage(ev))
			if ev.Kind == board.EventStorage {
				s.send(stateMessage(engine))
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn().Err(err).Msg("subscription_error")

		case <-touch.C:
			if canTouch {
				if err := t.Touch(ctx); err != nil {
					log.Warn().Err(err).Msg("presence_touch_failed")
				}
			}
			left, err := engine.RefreshPeers(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("presence_refresh_failed")
				continue
			}
			for _, id := range left {
				log.Debug().Str("peer", id).Msg("presence_expired")
				s.send(eventMessage(board.Event{
					Kind:     board.EventPresence,
					Presence: &board.PresenceEvent{ConnectionID: id},
				}))
			}
		}
	}
}

// send encodes msg on the session goroutine so the writer never reads state
// the engine is still changing.
func (s *session) send(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Str("type", msg.Type).Msg("encode_failed")
		return
	}
	select {
	case s.outbox <- data:
	default:
		s.cancel(errSlowClient)
	}
}

func (s *session) sendError(err error) {
	s.send(ServerMessage{Type: MsgError, Error: err.Error()})
}

func (s *session) readLoop(ctx context.Context, inbox chan<- []byte) {
	s.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		messageType, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("read_failed")
			}
			s.cancel(err)
			return
		}
		s.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		if messageType != websocket.TextMessage {
			continue
		}
		select {
		case inbox <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) writeLoop(ctx context.Context) {
	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			s.drain()
			s.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.cfg.WriteTimeout),
			)
			return

		case data := <-s.outbox:
			if err := s.write(websocket.TextMessage, data); err != nil {
				s.cancel(err)
				return
			}

		case <-ping.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.cancel(err)
				return
			}
		}
	}
}

// drain flushes whatever the session queued before it stopped.
func (s *session) drain() {
	for {
		select {
		case data := <-s.outbox:
			if err := s.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *session) write(messageType int, data []byte) error {
	s.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return s.ws.WriteMessage(messageType, data)
}
