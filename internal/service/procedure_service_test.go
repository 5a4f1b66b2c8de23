package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/apperr"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/vault"
)

var (
	applicant = model.Principal{Identity: "ana@example.edu", Role: model.RoleStudent}
	reviewer  = model.Principal{Identity: "officer@agency.gov", Role: model.RoleOfficer}
	intruder  = model.Principal{Identity: "luis@example.edu", Role: model.RoleDelegate}
)

type recordingNotifier struct {
	owners []string
	states []model.Status
}

func (n *recordingNotifier) NotifyStateChange(owner, _ string, state model.Status) {
	n.owners = append(n.owners, owner)
	n.states = append(n.states, state)
}

func newTestService(t *testing.T) (ProcedureService, *repository.MemoryStore, *recordingNotifier) {
	t.Helper()
	dir := t.TempDir()
	v, err := vault.Open(filepath.Join(dir, "blobs"), filepath.Join(dir, "enc.key"))
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	notifier := &recordingNotifier{}
	return NewProcedureService(store, v, notifier), store, notifier
}

func TestSubmit_CreatesVersionOnePending(t *testing.T) {
	svc, _, _ := newTestService(t)

	rec, err := svc.Submit(context.Background(), applicant, SubmitRequest{
		Fields: model.Fields{Name: "Ana", NationalID: "123"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, model.StatusPending, rec.Status)
	assert.Equal(t, "General", rec.Type)
	assert.Empty(t, rec.Documents)
	assert.Empty(t, rec.History)
	assert.Equal(t, applicant.Identity, rec.CreatedBy)
	assert.Equal(t, model.RoleStudent, rec.Fields.SubmitterRole)
}

func TestSubmit_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, applicant, SubmitRequest{Fields: model.Fields{Name: "Ana"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Submit(ctx, applicant, SubmitRequest{Fields: model.Fields{NationalID: "123"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Submit(ctx, reviewer, SubmitRequest{Fields: model.Fields{Name: "Ana", NationalID: "123"}})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSubmit_TooManyDocuments(t *testing.T) {
	svc, _, _ := newTestService(t)

	files := make([]FileUpload, model.MaxDocuments+1)
	for i := range files {
		files[i] = FileUpload{Name: "doc.pdf", Data: []byte("x")}
	}
	_, err := svc.Submit(context.Background(), applicant, SubmitRequest{
		Fields: model.Fields{Name: "Ana", NationalID: "123"},
		Files:  files,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestList_OwnVersusAll(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, applicant, SubmitRequest{Fields: model.Fields{Name: "Ana", NationalID: "123"}})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, intruder, SubmitRequest{Fields: model.Fields{Name: "Luis", NationalID: "456"}})
	require.NoError(t, err)

	mine, err := svc.List(ctx, applicant)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := svc.List(ctx, reviewer)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDownload_RoundTripAndAccess(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	payload := []byte("certificate bytes")
	rec, err := svc.Submit(ctx, applicant, SubmitRequest{
		Fields: model.Fields{Name: "Ana", NationalID: "123"},
		Files:  []FileUpload{{Name: "certificate.pdf", Data: payload}},
	})
	require.NoError(t, err)
	require.Len(t, rec.Documents, 1)
	doc := rec.Documents[0]
	assert.Equal(t, "certificate.pdf", doc.DisplayName)
	assert.NotEqual(t, doc.DisplayName, doc.StorageName)
	assert.Contains(t, doc.StorageName, rec.ID)

	got, err := svc.Download(ctx, applicant, rec.ID, doc.StorageName)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Data)
	assert.Equal(t, "certificate.pdf", got.DisplayName)

	_, err = svc.Download(ctx, reviewer, rec.ID, doc.StorageName)
	assert.NoError(t, err)

	_, err = svc.Download(ctx, intruder, rec.ID, doc.StorageName)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Download(ctx, applicant, rec.ID, "someone-elses-blob")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTransition_PolicyAndNotification(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Submit(ctx, applicant, SubmitRequest{Fields: model.Fields{Name: "Ana", NationalID: "123"}})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, applicant, rec.ID, model.StatusInReview)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Empty(t, notifier.states)

	updated, err := svc.Transition(ctx, reviewer, rec.ID, model.StatusInReview)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInReview, updated.Status)
	require.Len(t, notifier.states, 1)
	assert.Equal(t, applicant.Identity, notifier.owners[0])
	assert.Equal(t, model.StatusInReview, notifier.states[0])
}

func TestResend_Gates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	fields := model.Fields{Name: "Ana", NationalID: "123"}
	rec, err := svc.Submit(ctx, applicant, SubmitRequest{Fields: fields})
	require.NoError(t, err)

	_, err = svc.Resend(ctx, applicant, "no-such-id", SubmitRequest{Fields: fields})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// not rejected yet
	_, err = svc.Resend(ctx, applicant, rec.ID, SubmitRequest{Fields: fields})
	assert.ErrorIs(t, err, apperr.ErrIllegalState)

	_, err = svc.Transition(ctx, reviewer, rec.ID, model.StatusRejected)
	require.NoError(t, err)

	// wrong principal
	_, err = svc.Resend(ctx, intruder, rec.ID, SubmitRequest{Fields: fields})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// bad fields
	_, err = svc.Resend(ctx, applicant, rec.ID, SubmitRequest{Fields: model.Fields{Name: "Ana"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// The full workflow scenario: submit, reject, resend with one file, no-op
// re-confirmation, and a refused regression.
func TestWorkflow_SubmitRejectResend(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Submit(ctx, applicant, SubmitRequest{
		Fields: model.Fields{Name: "Ana", NationalID: "123"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, model.StatusPending, rec.Status)
	assert.Empty(t, rec.Documents)

	rejected, err := svc.Transition(ctx, reviewer, rec.ID, model.StatusRejected)
	require.NoError(t, err)
	require.Len(t, rejected.History, 1)
	assert.Equal(t, model.StatusPending, rejected.History[0].From)
	assert.Equal(t, model.StatusRejected, rejected.History[0].To)

	resent, err := svc.Resend(ctx, applicant, rec.ID, SubmitRequest{
		Fields: model.Fields{Name: "Ana", NationalID: "123", Phone: "555-0100"},
		Files:  []FileUpload{{Name: "corrected.pdf", Data: []byte("fixed")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resent.Version)
	assert.Equal(t, model.StatusPending, resent.Status)
	require.Len(t, resent.Documents, 1)
	require.Len(t, resent.History, 2)
	assert.Equal(t, model.ActionResent, resent.History[1].Action)
	assert.Equal(t, 1, resent.History[1].PriorVersion)
	assert.Equal(t, applicant.Identity, resent.CreatedBy)

	// same-state transition is an accepted no-op that still audits
	confirmed, err := svc.Transition(ctx, reviewer, rec.ID, model.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, confirmed.Status)
	assert.Len(t, confirmed.History, 3)

	// regression from Approved is refused
	_, err = svc.Transition(ctx, reviewer, rec.ID, model.StatusApproved)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, reviewer, rec.ID, model.StatusPending)
	assert.ErrorIs(t, err, apperr.ErrIllegalTransition)
}

// Resend with no new files empties the attachment list even when the prior
// version had documents.
func TestResend_DiscardsOldDocuments(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Submit(ctx, applicant, SubmitRequest{
		Fields: model.Fields{Name: "Ana", NationalID: "123"},
		Files:  []FileUpload{{Name: "original.pdf", Data: []byte("v1")}},
	})
	require.NoError(t, err)
	require.Len(t, rec.Documents, 1)

	_, err = svc.Transition(ctx, reviewer, rec.ID, model.StatusRejected)
	require.NoError(t, err)

	resent, err := svc.Resend(ctx, applicant, rec.ID, SubmitRequest{
		Fields: model.Fields{Name: "Ana", NationalID: "123"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resent.Version)
	assert.Empty(t, resent.Documents)
}
