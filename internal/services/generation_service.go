package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"luxscaler/internal/config"
	"luxscaler/internal/infra"
	"luxscaler/internal/models/db_models"
	"luxscaler/internal/models/request_models"
	"luxscaler/internal/models/response_models"
	"luxscaler/internal/repositories"
	"luxscaler/pkg/ai"
	"luxscaler/pkg/utils"
)

const maxImageBytes = 10 << 20

var imageExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type GenerationService interface {
	// Create charges the caller, runs the enhancer and stores the result.
	// Any failure after the charge refunds it.
	Create(ctx context.Context, accountID uuid.UUID, req request_models.CreateGenerationRequest) (*response_models.GenerationResponse, error)
	List(ctx context.Context, accountID uuid.UUID, page request_models.PageQuery) ([]response_models.GenerationResponse, error)
}

type generationService struct {
	enhancer    ai.Enhancer
	storage     infra.ObjectStorage
	tokens      repositories.TokenRepository
	generations repositories.GenerationRepository
	notifier    NotificationService
	cost        int64
	lowBalance  int64
	log         *zap.Logger
}

func NewGenerationService(
	enhancer ai.Enhancer,
	storage infra.ObjectStorage,
	tokens repositories.TokenRepository,
	generations repositories.GenerationRepository,
	notifier NotificationService,
	cfg *config.Config,
	log *zap.Logger,
) GenerationService {
	return &generationService{
		enhancer:    enhancer,
		storage:     storage,
		tokens:      tokens,
		generations: generations,
		notifier:    notifier,
		cost:        cfg.Tokens.GenerationCost,
		lowBalance:  cfg.Tokens.LowBalanceThreshold,
		log:         log,
	}
}

func decodeImage(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: image_base64 is not valid base64", utils.ErrInvalidPayload)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", utils.ErrInvalidPayload)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", utils.ErrInvalidPayload, maxImageBytes)
	}
	return data, nil
}

func (s *generationService) Create(ctx context.Context, accountID uuid.UUID, req request_models.CreateGenerationRequest) (*response_models.GenerationResponse, error) {
	ext, ok := imageExt[req.MimeType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported mime_type %q", utils.ErrInvalidPayload, req.MimeType)
	}
	image, err := decodeImage(req.ImageBase64)
	if err != nil {
		return nil, err
	}

	gen := &db_models.Generation{
		BaseModel:     db_models.BaseModel{ID: uuid.New()},
		AccountID:     accountID,
		SessionID:     strings.TrimSpace(req.SessionID),
		Status:        db_models.GenerationPending,
		Provider:      s.enhancer.Provider(),
		Model:         s.enhancer.Model(),
		Prompt:        req.Prompt,
		TokensCharged: s.cost,
	}
	if gen.SessionID == "" {
		gen.SessionID = gen.ID.String()
	}

	balance, err := s.tokens.Debit(ctx, repositories.TokenMutation{
		AccountID: accountID,
		Amount:    s.cost,
		Reason:    db_models.TokenReasonGeneration,
		Reference: gen.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.generations.Create(ctx, gen); err != nil {
		s.refund(ctx, gen)
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	result, err := s.enhancer.Enhance(ctx, ai.EnhanceRequest{Image: image, MimeType: req.MimeType, Prompt: req.Prompt})
	if err != nil {
		return nil, s.fail(ctx, gen, fmt.Errorf("enhance: %w", err))
	}
	gen.Notes = result.Notes
	gen.InputTokens = result.InputTokens
	gen.OutputTokens = result.OutputTokens
	gen.CostUSD = ai.EstimateCostUSD(gen.Model, result.InputTokens, result.OutputTokens)

	prefix := fmt.Sprintf("%s/%s", accountID, gen.ID)
	original := fmt.Sprintf("%s/original.%s", prefix, ext)
	if err := s.storage.Upload(ctx, original, req.MimeType, image); err != nil {
		return nil, s.fail(ctx, gen, fmt.Errorf("upload original: %w", err))
	}
	gen.StoragePaths = append(gen.StoragePaths, original)

	if result.Image != nil {
		outType := result.MimeType
		outExt, ok := imageExt[outType]
		if !ok {
			outType, outExt = req.MimeType, ext
		}
		enhanced := fmt.Sprintf("%s/enhanced.%s", prefix, outExt)
		if err := s.storage.Upload(ctx, enhanced, outType, result.Image); err != nil {
			return nil, s.fail(ctx, gen, fmt.Errorf("upload result: %w", err))
		}
		gen.StoragePaths = append(gen.StoragePaths, enhanced)
	}

	gen.Status = db_models.GenerationSucceeded
	if err := s.generations.Save(ctx, gen); err != nil {
		// The charge stands: the output exists and the row can be repaired.
		s.log.Error("failed to record generation result",
			zap.String("generation_id", gen.ID.String()), zap.Error(err))
	}

	s.maybeWarnLowBalance(ctx, accountID, balance)

	out := response_models.NewGenerationResponse(gen)
	out.Balance = balance
	if result.Image != nil {
		out.ImageBase64 = base64.StdEncoding.EncodeToString(result.Image)
	}
	return &out, nil
}

// fail marks the generation failed, refunds the charge and returns cause.
func (s *generationService) fail(ctx context.Context, gen *db_models.Generation, cause error) error {
	s.log.Warn("generation failed",
		zap.String("generation_id", gen.ID.String()),
		zap.String("account_id", gen.AccountID.String()),
		zap.Error(cause))

	s.refund(ctx, gen)

	gen.Status = db_models.GenerationFailed
	gen.Error = cause.Error()
	if err := s.generations.Save(ctx, gen); err != nil {
		s.log.Error("failed to record generation failure",
			zap.String("generation_id", gen.ID.String()), zap.Error(err))
	}
	if len(gen.StoragePaths) > 0 {
		if _, err := s.storage.Delete(ctx, gen.StoragePaths); err != nil {
			s.log.Warn("failed to remove partial outputs", zap.Strings("paths", gen.StoragePaths), zap.Error(err))
		}
	}
	return cause
}

func (s *generationService) refund(ctx context.Context, gen *db_models.Generation) {
	_, err := s.tokens.Credit(ctx, repositories.TokenMutation{
		AccountID: gen.AccountID,
		Amount:    gen.TokensCharged,
		Reason:    db_models.TokenReasonRefund,
		Reference: gen.ID.String(),
	})
	if err != nil {
		s.log.Error("generation refund failed",
			zap.String("generation_id", gen.ID.String()),
			zap.String("account_id", gen.AccountID.String()),
			zap.Int64("tokens", gen.TokensCharged),
			zap.Error(err))
		return
	}
	gen.TokensCharged = 0
}

// maybeWarnLowBalance notifies once, on the charge that crosses the threshold.
func (s *generationService) maybeWarnLowBalance(ctx context.Context, accountID uuid.UUID, balance int64) {
	before := balance + s.cost
	if s.lowBalance <= 0 || before < s.lowBalance || balance >= s.lowBalance {
		return
	}
	err := s.notifier.Dispatch(ctx, Notification{
		Kind:   NotifyLowBalance,
		UserID: accountID,
		Data:   map[string]any{"balance": balance},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("low balance notification failed",
			zap.String("account_id", accountID.String()), zap.Error(err))
	}
}

func (s *generationService) List(ctx context.Context, accountID uuid.UUID, page request_models.PageQuery) ([]response_models.GenerationResponse, error) {
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.PageSize <= 0 {
		page.PageSize = 20
	}
	gens, err := s.generations.ListByAccount(ctx, accountID, page.Page, page.PageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	out := make([]response_models.GenerationResponse, 0, len(gens))
	for i := range gens {
		out = append(out, response_models.NewGenerationResponse(&gens[i]))
	}
	return out, nil
}
