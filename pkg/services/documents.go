package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/crypto"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
	"github.com/tradeline-io/tradeline-engine/pkg/repositories"
)

// AttachDocumentInput carries the caller-supplied fields for a new document.
type AttachDocumentInput struct {
	Name       string
	Type       string
	Category   models.DocumentCategory
	Content    []byte
	UploadedBy string
}

// DocumentService owns document custody for deals: sealed storage and the
// asynchronous verification state machine.
type DocumentService interface {
	// Attach seals the content and appends a pending document to the deal.
	// Mandate-category documents are scheduled for verification; Attach
	// returns without waiting for it.
	Attach(ctx context.Context, dealID uuid.UUID, input AttachDocumentInput) (*models.Deal, error)

	// CompleteVerification applies a verification outcome to a document.
	// A missing deal or document is a silent no-op: a late completion for a
	// deleted target is an expected race, not an error. Terminal states
	// never regress.
	CompleteVerification(ctx context.Context, dealID, documentID uuid.UUID, outcome VerificationOutcome) error

	// RevealOriginalPrincipalInfo opens the audit copy of the principal
	// fragment removed from a redacted document.
	RevealOriginalPrincipalInfo(ctx context.Context, dealID, documentID uuid.UUID) (string, error)

	// Wait blocks until all scheduled verifications have completed. Used on
	// shutdown and in tests.
	Wait()
}

type documentService struct {
	repo      repositories.DealRepository
	encryptor *crypto.Encryptor
	verifier  Verifier
	now       func() time.Time
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// NewDocumentService creates a new document custody service.
func NewDocumentService(
	repo repositories.DealRepository,
	encryptor *crypto.Encryptor,
	verifier Verifier,
	logger *zap.Logger,
) DocumentService {
	return &documentService{
		repo:      repo,
		encryptor: encryptor,
		verifier:  verifier,
		now:       time.Now,
		logger:    logger.Named("document-service"),
	}
}

var _ DocumentService = (*documentService)(nil)

func (s *documentService) Attach(ctx context.Context, dealID uuid.UUID, input AttachDocumentInput) (*models.Deal, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("document name is required")
	}
	if input.Type == "" {
		return nil, fmt.Errorf("document type is required")
	}
	if input.UploadedBy == "" {
		return nil, fmt.Errorf("uploader identity is required")
	}
	if len(input.Content) == 0 {
		return nil, fmt.Errorf("document content is required")
	}
	if !models.IsValidCategory(input.Category) {
		return nil, fmt.Errorf("invalid category: %s", input.Category)
	}

	content, err := s.encryptor.Seal(input.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to seal document content: %w", err)
	}

	doc := &models.Document{
		ID:                 uuid.New(),
		Name:               input.Name,
		Type:               input.Type,
		Category:           input.Category,
		UploadedAt:         s.now(),
		UploadedBy:         input.UploadedBy,
		Content:            content,
		VerificationStatus: models.VerificationPending,
	}

	deal, err := s.repo.Update(ctx, dealID, func(d *models.Deal) error {
		d.Documents = append(d.Documents, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Attached document",
		zap.String("deal_id", dealID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.String("category", string(input.Category)))

	// Only mandate documents carry enough risk to warrant automated
	// scrutiny; everything else stays pending until verified out-of-band.
	if input.Category == models.CategoryMandate {
		s.scheduleVerification(VerificationRequest{
			DealID:     dealID,
			DocumentID: doc.ID,
			Content:    content,
		})
	}

	return deal, nil
}

func (s *documentService) scheduleVerification(req VerificationRequest) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx := context.Background()
		outcome, err := s.verifier.Verify(ctx, req)
		if err != nil {
			// The document stays pending; the verifier owns retries.
			s.logger.Error("Document verification failed",
				zap.String("deal_id", req.DealID.String()),
				zap.String("document_id", req.DocumentID.String()),
				zap.Error(err))
			return
		}

		if err := s.CompleteVerification(ctx, req.DealID, req.DocumentID, outcome); err != nil {
			s.logger.Error("Failed to record verification outcome",
				zap.String("document_id", req.DocumentID.String()),
				zap.Error(err))
		}
	}()
}

func (s *documentService) CompleteVerification(ctx context.Context, dealID, documentID uuid.UUID, outcome VerificationOutcome) error {
	if !outcome.Status.IsTerminal() {
		return fmt.Errorf("verification outcome must be terminal, got %s", outcome.Status)
	}

	_, err := s.repo.Update(ctx, dealID, func(d *models.Deal) error {
		doc := d.FindDocument(documentID)
		if doc == nil {
			// Document identity is the correctness boundary; a missing
			// target means the completion raced a deletion.
			return nil
		}
		if doc.VerificationStatus.IsTerminal() {
			return nil
		}

		doc.VerificationStatus = outcome.Status
		// The two redaction artifacts are independent: a missing mask never
		// blocks the audit copy, and vice versa.
		if !outcome.RedactedContent.Empty() {
			doc.RedactedContent = outcome.RedactedContent
		}
		if !outcome.OriginalPrincipalInfo.Empty() {
			doc.OriginalPrincipalInfo = outcome.OriginalPrincipalInfo
		}
		return nil
	})
	if err != nil {
		// A deleted deal is the same race as a deleted document.
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	s.logger.Info("Verification completed",
		zap.String("deal_id", dealID.String()),
		zap.String("document_id", documentID.String()),
		zap.String("status", string(outcome.Status)))
	return nil
}

func (s *documentService) RevealOriginalPrincipalInfo(ctx context.Context, dealID, documentID uuid.UUID) (string, error) {
	deal, err := s.repo.Get(ctx, dealID)
	if err != nil {
		return "", err
	}

	doc := deal.FindDocument(documentID)
	if doc == nil {
		return "", fmt.Errorf("document %s: %w", documentID, apperrors.ErrNotFound)
	}

	plaintext, err := s.encryptor.Open(doc.OriginalPrincipalInfo)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *documentService) Wait() {
	s.wg.Wait()
}
