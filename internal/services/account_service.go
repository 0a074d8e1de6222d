package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"luxscaler/internal/config"
	"luxscaler/internal/models/db_models"
	"luxscaler/internal/models/request_models"
	"luxscaler/internal/models/response_models"
	"luxscaler/internal/repositories"
	"luxscaler/pkg/utils"
)

const RecoveryPurposeReset = "password_reset"

type AccountServiceInterface interface {
	Login(ctx context.Context, request request_models.LoginRequest) (*response_models.AccountLoginResponse, error)
	// ForgotPassword never reports whether the email exists.
	ForgotPassword(ctx context.Context, request request_models.ForgotPasswordRequest) error
	Recover(ctx context.Context, request request_models.RecoverAccountRequest) error
	JoinWaitlist(ctx context.Context, request request_models.JoinWaitlistRequest) (*response_models.WaitlistJoinResponse, error)
	Me(ctx context.Context, id uuid.UUID) (*response_models.AccountResponse, error)
}

type AccountService struct {
	accountRepo  repositories.AccountRepository
	directory    repositories.AccountDirectory
	recoveryRepo repositories.RecoveryTokenRepository
	waitlistRepo repositories.WaitlistRepository
	mail         IMailService
	issuer       *utils.TokenIssuer
	linkTTL      time.Duration
	log          *zap.Logger
	now          func() time.Time
}

func NewAccountService(
	accountRepo repositories.AccountRepository,
	directory repositories.AccountDirectory,
	recoveryRepo repositories.RecoveryTokenRepository,
	waitlistRepo repositories.WaitlistRepository,
	mail IMailService,
	issuer *utils.TokenIssuer,
	cfg *config.Config,
	log *zap.Logger,
) AccountServiceInterface {
	return &AccountService{
		accountRepo:  accountRepo,
		directory:    directory,
		recoveryRepo: recoveryRepo,
		waitlistRepo: waitlistRepo,
		mail:         mail,
		issuer:       issuer,
		linkTTL:      cfg.Tokens.RecoveryLinkTTL,
		log:          log,
		now:          time.Now,
	}
}

func (a *AccountService) Login(ctx context.Context, request request_models.LoginRequest) (*response_models.AccountLoginResponse, error) {
	account, err := a.directory.FindByEmail(ctx, request.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	// Unknown email and wrong password are indistinguishable to the caller.
	if account == nil || account.PasswordHash == "" {
		return nil, utils.ErrInvalidCredentials
	}
	if err := utils.ComparePasswords(account.PasswordHash, request.Password); err != nil {
		return nil, utils.ErrInvalidCredentials
	}

	token, err := a.issuer.CreateToken(account.ID)
	if err != nil {
		return nil, err
	}
	return &response_models.AccountLoginResponse{
		Token:     token,
		ExpiresIn: int64(a.issuer.TTL().Seconds()),
		IsAdmin:   account.IsAdmin,
	}, nil
}

func (a *AccountService) ForgotPassword(ctx context.Context, request request_models.ForgotPasswordRequest) error {
	account, err := a.directory.FindByEmail(ctx, request.Email)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		a.log.Info("password reset requested for unknown email")
		return nil
	}

	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return err
	}
	if err := a.recoveryRepo.Create(ctx, &db_models.RecoveryToken{
		AccountID: account.ID,
		TokenHash: utils.HashToken(token),
		Purpose:   RecoveryPurposeReset,
		ExpiresAt: a.now().Add(a.linkTTL).Unix(),
	}); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	if err := a.mail.SendMailToResetPassword(account.Email, token); err != nil {
		// The response does not depend on delivery.
		a.log.Error("password reset mail failed",
			zap.String("account_id", account.ID.String()), zap.Error(err))
	}
	return nil
}

func (a *AccountService) Recover(ctx context.Context, request request_models.RecoverAccountRequest) error {
	accountID, err := a.recoveryRepo.Consume(ctx, utils.HashToken(request.Token))
	if err != nil {
		return err
	}

	hash, err := utils.HashPassword(request.NewPassword)
	if err != nil {
		return err
	}
	if err := a.accountRepo.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return err
	}

	a.log.Info("account recovered", zap.String("account_id", accountID.String()))
	return nil
}

func (a *AccountService) JoinWaitlist(ctx context.Context, request request_models.JoinWaitlistRequest) (*response_models.WaitlistJoinResponse, error) {
	created, err := a.waitlistRepo.Join(ctx, request.Email, request.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return &response_models.WaitlistJoinResponse{
		Email:   repositories.NormalizeEmail(request.Email),
		Created: created,
	}, nil
}

func (a *AccountService) Me(ctx context.Context, id uuid.UUID) (*response_models.AccountResponse, error) {
	account, err := a.accountRepo.FindById(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}
	out := response_models.NewAccountResponse(account)
	return &out, nil
}
