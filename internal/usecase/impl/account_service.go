// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "chat/internal/delivery/context"
	"chat/internal/domain/entity"
	domainerrors "chat/internal/domain/errors"
	"chat/internal/domain/repository"
	"chat/internal/domain/service"
	"chat/internal/errors"
	"chat/internal/usecase"

	"go.uber.org/fx"
)

// accountService implements the AccountUsecase interface.
type accountService struct {
	userRepo     repository.UserRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	validator    *requestValidator
	logger       *slog.Logger
	now          func() time.Time
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	UserRepo     repository.UserRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Logger       *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		userRepo:     params.UserRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		validator:    newRequestValidator(),
		logger:       params.Logger,
		now:          time.Now,
	}
}

// log returns a connection-scoped logger if available, otherwise the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register validates the credentials, hashes the password and creates the user.
// Nothing reaches the store when validation fails.
func (srv *accountService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	if err := srv.validator.Struct(input); err != nil {
		return nil, err
	}

	hash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed.WithDetails(err.Error()), "hash password")
	}

	user := &entity.User{Username: input.Username, PasswordHash: hash}
	if err := srv.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domainerrors.ErrUsernameTaken) {
			srv.log(ctx).Info("Registration rejected, username taken", slog.String("username", input.Username))

			return nil, err
		}

		return nil, errors.Wrap(err, "create user")
	}

	srv.log(ctx).Info("User registered", slog.Int64("user_id", user.ID), slog.String("username", user.Username))

	return &usecase.RegisterOutput{User: user}, nil
}

// Login verifies a username and password. Unknown users and wrong passwords
// produce the same ErrInvalidCredentials.
func (srv *accountService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	if err := srv.validator.Struct(input); err != nil {
		return nil, domainerrors.ErrValidationFailed.WithMessage("Username and password required")
	}

	user, err := srv.userRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrInvalidCredentials
		}

		return nil, errors.Wrap(err, "find user")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Info("Login rejected, wrong password", slog.String("username", input.Username))

		return nil, domainerrors.ErrInvalidCredentials
	}

	return srv.issue(ctx, user)
}

// LoginWithToken authenticates with a resume token from an earlier login.
// The user must still exist in the credential store.
func (srv *accountService) LoginWithToken(ctx context.Context, token string) (*usecase.LoginOutput, error) {
	if !srv.tokenService.Enabled() {
		return nil, domainerrors.ErrInvalidToken.WithDetails("tokens disabled")
	}

	claims, err := srv.tokenService.Validate(token)
	if err != nil {
		srv.log(ctx).Info("Token login rejected", slog.String("error", err.Error()))

		return nil, domainerrors.ErrInvalidToken
	}

	user, err := srv.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrInvalidToken.WithDetails("user no longer exists")
		}

		return nil, errors.Wrap(err, "find user by token")
	}
	if user.Username != claims.Username {
		return nil, domainerrors.ErrInvalidToken.WithDetails("username mismatch")
	}

	return srv.issue(ctx, user)
}

func (srv *accountService) issue(ctx context.Context, user *entity.User) (*usecase.LoginOutput, error) {
	output := &usecase.LoginOutput{User: user}
	if !srv.tokenService.Enabled() {
		return output, nil
	}

	issuedAt := srv.now()
	token, err := srv.tokenService.Generate(user.ID, user.Username)
	if err != nil {
		return nil, errors.Wrap(err, "generate resume token")
	}
	output.Token = token
	output.TokenExpiresAt = issuedAt.Add(srv.tokenService.TTL())

	srv.log(ctx).Debug("Resume token issued", slog.Int64("user_id", user.ID))

	return output, nil
}
