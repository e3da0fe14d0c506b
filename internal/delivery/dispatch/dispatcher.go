// Package dispatch runs the per-connection protocol state machine.
package dispatch

import (
	"context"
	"log/slog"

	"chat/internal/delivery/hub"
	"chat/internal/delivery/protocol"
	"chat/internal/domain/entity"
	domainerrors "chat/internal/domain/errors"
	"chat/internal/errors"
	"chat/internal/usecase"
)

// State is the authentication state of one connection.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Outcome tells the read loop what to do after a frame.
type Outcome int

const (
	// OutcomeContinue keeps reading.
	OutcomeContinue Outcome = iota
	// OutcomeProtocolError keeps reading but counts toward the error threshold.
	OutcomeProtocolError
	// OutcomeClose ends the connection after queued frames are written.
	OutcomeClose
)

// Options configures a Dispatcher.
type Options struct {
	// HistoryOnLogin, when positive, pushes that many recent messages after login.
	HistoryOnLogin int
	Logger         *slog.Logger
}

// Dispatcher validates each frame against the connection state and calls
// the matching use case. It is used from one goroutine only.
type Dispatcher struct {
	session        *hub.Session
	registry       *hub.Registry
	accounts       usecase.AccountUsecase
	chat           usecase.ChatUsecase
	historyOnLogin int
	logger         *slog.Logger
	state          State
}

// New returns a Dispatcher for an unauthenticated session.
func New(session *hub.Session, registry *hub.Registry, accounts usecase.AccountUsecase, chat usecase.ChatUsecase, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		session:        session,
		registry:       registry,
		accounts:       accounts,
		chat:           chat,
		historyOnLogin: opts.HistoryOnLogin,
		logger:         logger,
		state:          StateUnauthenticated,
	}
}

func (d *Dispatcher) State() State {
	return d.state
}

// Close moves the dispatcher to its terminal state.
func (d *Dispatcher) Close() {
	d.state = StateClosed
}

// Handle processes one parsed frame.
func (d *Dispatcher) Handle(ctx context.Context, env protocol.Envelope) Outcome {
	if d.state == StateClosed {
		return OutcomeClose
	}

	switch env.Type {
	case protocol.TypeRegister:
		return d.handleRegister(ctx, env)
	case protocol.TypeLogin:
		return d.handleLogin(ctx, env)
	case protocol.TypeSendMessage:
		return d.handleSendMessage(ctx, env)
	case protocol.TypeGetHistory:
		return d.handleGetHistory(ctx, env)
	case protocol.TypeLogout:
		return d.handleLogout(ctx)
	default:
		d.logger.Info("Unknown frame type", slog.String("type", env.Type))

		return d.ProtocolError(domainerrors.ErrUnknownType.WithDetails(env.Type))
	}
}

// ProtocolError answers err with an error frame. Decoder rejections go
// through here as well as state violations.
func (d *Dispatcher) ProtocolError(err error) Outcome {
	d.logger.Info("Protocol error", slog.String("error", err.Error()), slog.String("state", d.state.String()))
	if d.reply(protocol.NewErrorFrame(err)) != nil {
		return OutcomeClose
	}

	return OutcomeProtocolError
}

// Fatal answers err with an error frame and ends the connection.
func (d *Dispatcher) Fatal(err error) Outcome {
	d.logger.Warn("Closing connection", slog.String("error", err.Error()))
	_ = d.reply(protocol.NewErrorFrame(err))
	d.state = StateClosed

	return OutcomeClose
}

func (d *Dispatcher) handleRegister(ctx context.Context, env protocol.Envelope) Outcome {
	if d.state != StateUnauthenticated {
		return d.ProtocolError(domainerrors.ErrAlreadyAuthenticated)
	}

	var req protocol.RegisterRequest
	if err := env.Decode(&req); err != nil {
		return d.respond(protocol.NewRegisterError(domainerrors.From(err).Message()))
	}

	out, err := d.accounts.Register(ctx, &usecase.RegisterInput{Username: req.Username, Password: req.Password})
	if err != nil {
		d.logFailure("register", err)

		return d.respond(protocol.NewRegisterError(domainerrors.From(err).Message()))
	}

	return d.respond(protocol.NewRegisterSuccess(out.User.ID))
}

func (d *Dispatcher) handleLogin(ctx context.Context, env protocol.Envelope) Outcome {
	if d.state != StateUnauthenticated {
		return d.ProtocolError(domainerrors.ErrAlreadyAuthenticated)
	}

	var req protocol.LoginRequest
	if err := env.Decode(&req); err != nil {
		return d.respond(protocol.NewLoginError(domainerrors.From(err).Message()))
	}

	var (
		out *usecase.LoginOutput
		err error
	)
	if req.Token != "" && req.Username == "" && req.Password == "" {
		out, err = d.accounts.LoginWithToken(ctx, req.Token)
	} else {
		out, err = d.accounts.Login(ctx, &usecase.LoginInput{Username: req.Username, Password: req.Password})
	}
	if err != nil {
		d.logFailure("login", err)

		return d.respond(protocol.NewLoginError(domainerrors.From(err).Message()))
	}

	// The peer may have gone away while credentials were checked.
	if d.session.Closed() {
		return OutcomeClose
	}
	if err := d.session.Authenticate(out.User.ID, out.User.Username); err != nil {
		return d.ProtocolError(err)
	}

	// The response is queued before registration so it precedes any broadcast.
	if outcome := d.respond(protocol.NewLoginSuccess(out.User, out.Token, out.TokenExpiresAt)); outcome == OutcomeClose {
		return outcome
	}
	if outcome := d.join(ctx); outcome != OutcomeContinue {
		return outcome
	}
	d.state = StateAuthenticated
	d.logger = d.logger.With(slog.Int64("user_id", out.User.ID), slog.String("username", out.User.Username))
	d.logger.Info("Session authenticated")

	return OutcomeContinue
}

// join admits the session to the broadcast stream. With history on login
// enabled the history_response is queued in the same step, so every
// broadcast the session receives is newer than the history it was sent.
func (d *Dispatcher) join(ctx context.Context) Outcome {
	if d.historyOnLogin <= 0 {
		return d.insert()
	}

	limit := d.historyOnLogin
	var (
		joined  bool
		sendErr error
	)
	err := d.chat.JoinWithHistory(ctx, &usecase.JoinInput{
		Limit: &limit,
		Join: func(messages []*entity.Message) error {
			joined = true
			if sendErr = d.reply(protocol.NewHistoryResponse(messages)); sendErr != nil {
				return sendErr
			}

			return d.registry.Insert(d.session)
		},
	})
	switch {
	case err == nil:
		return OutcomeContinue
	case sendErr != nil:
		return OutcomeClose
	case joined:
		return d.Fatal(err)
	}

	// History is unavailable; the session still joins the live stream.
	d.logFailure("get_history", err)
	if outcome := d.respond(protocol.NewErrorFrame(err)); outcome == OutcomeClose {
		return outcome
	}

	return d.insert()
}

func (d *Dispatcher) insert() Outcome {
	if err := d.registry.Insert(d.session); err != nil {
		return d.Fatal(err)
	}

	return OutcomeContinue
}

func (d *Dispatcher) handleSendMessage(ctx context.Context, env protocol.Envelope) Outcome {
	if d.state != StateAuthenticated {
		return d.ProtocolError(domainerrors.ErrNotAuthenticated)
	}

	var req protocol.SendMessageRequest
	if err := env.Decode(&req); err != nil {
		return d.respond(protocol.NewErrorFrame(err))
	}

	userID, username, _ := d.session.Identity()
	if _, err := d.chat.PostMessage(ctx, &usecase.PostMessageInput{
		SenderID: userID,
		Sender:   username,
		Text:     req.Message,
	}); err != nil {
		d.logFailure("send_message", err)

		return d.respond(protocol.NewErrorFrame(err))
	}

	return OutcomeContinue
}

func (d *Dispatcher) handleGetHistory(ctx context.Context, env protocol.Envelope) Outcome {
	if d.state != StateAuthenticated {
		return d.ProtocolError(domainerrors.ErrNotAuthenticated)
	}

	var req protocol.GetHistoryRequest
	if err := env.Decode(&req); err != nil {
		return d.respond(protocol.NewErrorFrame(err))
	}

	return d.sendHistory(ctx, req.Limit)
}

func (d *Dispatcher) sendHistory(ctx context.Context, limit *int) Outcome {
	out, err := d.chat.History(ctx, &usecase.HistoryInput{Limit: limit})
	if err != nil {
		d.logFailure("get_history", err)

		return d.respond(protocol.NewErrorFrame(err))
	}

	return d.respond(protocol.NewHistoryResponse(out.Messages))
}

func (d *Dispatcher) handleLogout(ctx context.Context) Outcome {
	if d.state != StateAuthenticated {
		return d.ProtocolError(domainerrors.ErrNotAuthenticated)
	}

	d.registry.Remove(d.session.ID())
	_ = d.reply(protocol.NewLogoutSuccess())
	d.state = StateClosed
	d.logger.InfoContext(ctx, "Session logged out")

	return OutcomeClose
}

// respond queues v; a session that cannot take its own reply is closed.
func (d *Dispatcher) respond(v any) Outcome {
	if err := d.reply(v); err != nil {
		return OutcomeClose
	}

	return OutcomeContinue
}

func (d *Dispatcher) reply(v any) error {
	frame, err := protocol.Encode(v)
	if err != nil {
		d.logger.Error("Failed to encode reply", slog.String("error", err.Error()))

		return err
	}
	if err := d.session.Send(frame); err != nil {
		if !errors.Is(err, domainerrors.ErrSessionClosed) {
			d.logger.Warn("Failed to queue reply", slog.String("error", err.Error()))
		}

		return err
	}

	return nil
}

// logFailure logs request failures at a level matching their kind. Store and
// internal failures carry the cause; credentials are never logged.
func (d *Dispatcher) logFailure(operation string, err error) {
	switch domainerrors.KindOf(err) {
	case domainerrors.KindValidation, domainerrors.KindAuth:
		d.logger.Debug("Request rejected", slog.String("operation", operation), slog.String("error", err.Error()))
	default:
		d.logger.Error("Request failed", slog.String("operation", operation), slog.String("error", err.Error()))
	}
}
