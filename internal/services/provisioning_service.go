package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"luxscaler/internal/config"
	"luxscaler/internal/models/db_models"
	"luxscaler/internal/repositories"
	"luxscaler/pkg/utils"
)

const RecoveryPurposeAccess = "access"

type ProvisionRequest struct {
	Email         string
	Name          string
	InitialTokens *int64
	// ActorID is the administrator running the flow, recorded on the grant.
	ActorID uuid.UUID
}

type ProvisionResult struct {
	UserID  uuid.UUID
	Created bool
	Message string
}

// ProvisioningService onboards an account on behalf of an administrator:
// lookup, create, grant, link, notify. Only the grant step may fail softly.
type ProvisioningService interface {
	Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error)
}

type provisioningService struct {
	accounts repositories.ProvisioningRepository
	tokens   repositories.TokenRepository
	links    repositories.RecoveryTokenRepository
	mail     IMailService
	cfg      config.TokenConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewProvisioningService(
	accounts repositories.ProvisioningRepository,
	tokens repositories.TokenRepository,
	links repositories.RecoveryTokenRepository,
	mail IMailService,
	cfg *config.Config,
	log *zap.Logger,
) ProvisioningService {
	return &provisioningService{
		accounts: accounts,
		tokens:   tokens,
		links:    links,
		mail:     mail,
		cfg:      cfg.Tokens,
		log:      log,
		now:      time.Now,
	}
}

func (s *provisioningService) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	email := repositories.NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email %q", utils.ErrInvalidPayload, req.Email)
	}
	initial := s.cfg.DefaultInitial
	if req.InitialTokens != nil {
		initial = *req.InitialTokens
	}
	if initial < 0 {
		return nil, fmt.Errorf("%w: initial_tokens must not be negative", utils.ErrInvalidPayload)
	}

	// 1. lookup
	profile, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	// 2. create
	created := false
	if profile == nil {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = localPart(email)
		}
		profile, created, err = s.accounts.CreateConfirmed(ctx, email, name)
		if err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		if profile == nil {
			return nil, fmt.Errorf("create account: %s is reserved by a deleted account", email)
		}
	}

	// 3. grant
	if _, err := s.tokens.SetBalance(ctx, repositories.TokenMutation{
		AccountID: profile.ID,
		Amount:    initial,
		Reason:    db_models.TokenReasonAdminGrant,
		Reference: req.ActorID.String(),
	}); err != nil {
		s.log.Warn("provisioning grant failed, continuing",
			zap.String("account_id", profile.ID.String()),
			zap.Int64("initial_tokens", initial),
			zap.Error(err))
	}

	// 4. link
	token, err := s.issueAccessLink(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access link: %w", err)
	}

	// 5. notify
	if err := s.mail.SendAccessLink(email, profile.Name, token); err != nil {
		return nil, fmt.Errorf("send access link: %w", err)
	}

	msg := fmt.Sprintf("Existing account %s granted %d tokens and sent a new access link", email, initial)
	if created {
		msg = fmt.Sprintf("Account %s created with %d tokens and access link sent", email, initial)
	}
	s.log.Info("account provisioned",
		zap.String("account_id", profile.ID.String()),
		zap.Bool("created", created),
		zap.String("actor_id", req.ActorID.String()))

	return &ProvisionResult{UserID: profile.ID, Created: created, Message: msg}, nil
}

func (s *provisioningService) issueAccessLink(ctx context.Context, accountID uuid.UUID) (string, error) {
	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return "", err
	}
	err = s.links.Create(ctx, &db_models.RecoveryToken{
		AccountID: accountID,
		TokenHash: utils.HashToken(token),
		Purpose:   RecoveryPurposeAccess,
		ExpiresAt: s.now().Add(s.cfg.RecoveryLinkTTL).Unix(),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
