package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"backend/internal/apperr"
	"backend/internal/lifecycle"
	"backend/internal/model"
	"backend/internal/policy"
	"backend/internal/repository"
)

// --- DTOs ---

// FileUpload is one incoming attachment, already read into memory by the
// transport layer.
type FileUpload struct {
	Name string
	Data []byte
}

type SubmitRequest struct {
	Type   string
	Fields model.Fields
	Files  []FileUpload
}

type DownloadResult struct {
	DisplayName string
	Data        []byte
}

// --- Collaborators ---

// DocumentVault is the at-rest encryption boundary the workflow stores
// attachments through.
type DocumentVault interface {
	Store(name string, plaintext []byte) error
	Retrieve(name string) ([]byte, error)
}

// Notifier is the fire-and-forget hook invoked after a successful state
// change. Implementations must not block or fail the transition.
type Notifier interface {
	NotifyStateChange(ownerIdentity, procedureID string, state model.Status)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyStateChange(string, string, model.Status) {}

// --- Interface ---

type ProcedureService interface {
	Submit(ctx context.Context, p model.Principal, req SubmitRequest) (*model.Procedure, error)
	List(ctx context.Context, p model.Principal) ([]model.Procedure, error)
	Download(ctx context.Context, p model.Principal, id, storageName string) (*DownloadResult, error)
	Transition(ctx context.Context, p model.Principal, id string, target model.Status) (*model.Procedure, error)
	Resend(ctx context.Context, p model.Principal, id string, req SubmitRequest) (*model.Procedure, error)
}

type procedureService struct {
	store    repository.RecordStore
	vault    DocumentVault
	engine   *lifecycle.Engine
	notifier Notifier
	now      func() time.Time
}

func NewProcedureService(store repository.RecordStore, vault DocumentVault, notifier Notifier) ProcedureService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &procedureService{
		store:    store,
		vault:    vault,
		engine:   lifecycle.NewEngine(store),
		notifier: notifier,
		now:      time.Now,
	}
}

// --- Implementation ---

func (s *procedureService) Submit(ctx context.Context, p model.Principal, req SubmitRequest) (*model.Procedure, error) {
	if err := policy.CanCreate(p); err != nil {
		return nil, err
	}
	if err := validateFields(req.Fields); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := s.now().UTC()

	docs, err := s.storeUploads(id, req.Files)
	if err != nil {
		return nil, err
	}

	fields := req.Fields
	fields.SubmitterRole = p.Role

	procType := req.Type
	if procType == "" {
		procType = "General"
	}

	rec := &model.Procedure{
		ID:        id,
		Version:   1,
		Type:      procType,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    model.StatusPending,
		Fields:    fields,
		Documents: docs,
		CreatedBy: p.Identity,
		History:   []model.HistoryEntry{},
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *procedureService) List(ctx context.Context, p model.Principal) ([]model.Procedure, error) {
	if policy.CanListAll(p) {
		return s.store.ListAll(ctx)
	}
	return s.store.ListByOwner(ctx, p.Identity)
}

func (s *procedureService) Download(ctx context.Context, p model.Principal, id, storageName string) (*DownloadResult, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanDownload(p, rec); err != nil {
		return nil, err
	}

	doc, ok := rec.FindDocument(storageName)
	if !ok {
		return nil, fmt.Errorf("%w: document %s", apperr.ErrNotFound, storageName)
	}

	plaintext, err := s.vault.Retrieve(doc.StorageName)
	if err != nil {
		return nil, err
	}
	return &DownloadResult{DisplayName: doc.DisplayName, Data: plaintext}, nil
}

func (s *procedureService) Transition(ctx context.Context, p model.Principal, id string, target model.Status) (*model.Procedure, error) {
	if err := policy.CanTransition(p); err != nil {
		return nil, err
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.engine.Transition(ctx, rec, target, p.Identity)
	if err != nil {
		return nil, err
	}

	// Best effort; a failed notification never fails the transition.
	s.notifier.NotifyStateChange(updated.CreatedBy, updated.ID, updated.Status)

	return updated, nil
}

func (s *procedureService) Resend(ctx context.Context, p model.Principal, id string, req SubmitRequest) (*model.Procedure, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanResend(p, rec); err != nil {
		return nil, err
	}
	if rec.Status != model.StatusRejected {
		return nil, fmt.Errorf("%w: only rejected procedures may be resent", apperr.ErrIllegalState)
	}
	if err := validateFields(req.Fields); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	// Old attachments are discarded outright; the new version carries only
	// what arrives with the resend, even when that is nothing.
	docs, err := s.storeUploads(rec.ID, req.Files)
	if err != nil {
		return nil, err
	}

	fields := req.Fields
	fields.SubmitterRole = rec.Fields.SubmitterRole

	next := &model.Procedure{
		ID:        rec.ID,
		Version:   rec.Version + 1,
		Type:      rec.Type,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: now,
		Status:    model.StatusPending,
		Fields:    fields,
		Documents: docs,
		CreatedBy: rec.CreatedBy,
		UpdatedBy: p.Identity,
		History: append(append([]model.HistoryEntry{}, rec.History...), model.HistoryEntry{
			Action:       model.ActionResent,
			Actor:        p.Identity,
			Timestamp:    now,
			PriorVersion: rec.Version,
		}),
	}

	if err := s.store.ReplaceVersion(ctx, rec.ID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// storeUploads encrypts each upload into the vault and returns the document
// references. Storage names embed the procedure id and a timestamp so they
// are never derivable from the display name alone.
func (s *procedureService) storeUploads(procedureID string, files []FileUpload) ([]model.Document, error) {
	if len(files) > model.MaxDocuments {
		return nil, fmt.Errorf("%w: at most %d documents per submission", apperr.ErrValidation, model.MaxDocuments)
	}

	docs := make([]model.Document, 0, len(files))
	for _, f := range files {
		storageName := fmt.Sprintf("%s_%d_%s", procedureID, s.now().UnixMilli(), f.Name)
		if err := s.vault.Store(storageName, f.Data); err != nil {
			return nil, err
		}
		docs = append(docs, model.Document{DisplayName: f.Name, StorageName: storageName})
	}
	return docs, nil
}

func validateFields(f model.Fields) error {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.NationalID) == "" {
		return fmt.Errorf("%w: name and national id are required", apperr.ErrValidation)
	}
	return nil
}
