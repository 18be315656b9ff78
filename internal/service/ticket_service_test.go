package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type passthroughTxRunner struct{}

func (passthroughTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeTicketRepo struct {
	tickets map[int64]domain.Ticket
	nextID  int64
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[int64]domain.Ticket), nextID: 1}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.nextID
	r.nextID++
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTicketRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}

func (r *fakeTicketRepo) ListRecent(_ context.Context, _ int) ([]domain.Ticket, error) {
	return nil, nil
}

func (r *fakeTicketRepo) Stats(_ context.Context) (*repository.TicketStatsRow, error) {
	return &repository.TicketStatsRow{}, nil
}

type fakeHistoryRepo struct {
	entries []domain.HistoryEntry
	nextID  int64
}

func (r *fakeHistoryRepo) Append(_ context.Context, entry *domain.HistoryEntry) error {
	r.nextID++
	entry.ID = r.nextID
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID int64, _, _ int) ([]domain.HistoryEntry, error) {
	var out []domain.HistoryEntry
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) forTicket(ticketID int64) []domain.HistoryEntry {
	out, _ := r.ListByTicket(context.Background(), ticketID, 0, 0)
	return out
}

type fakeNotificationRepo struct {
	items   []domain.Notification
	nextID  int64
	failPut bool
}

func (r *fakeNotificationRepo) Put(_ context.Context, notification *domain.Notification) error {
	if r.failPut {
		return errors.New("sink unavailable")
	}
	r.nextID++
	notification.ID = r.nextID
	notification.CreatedAt = time.Now()
	r.items = append(r.items, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID int64) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) ListUnreadByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	return r.ListByUser(ctx, userID)
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, _ int64) error {
	return nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, _ int64) error {
	return nil
}

type fakeUserRepo struct {
	users map[int64]domain.UserRef
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.UserRef, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.UserRef, error) {
	for _, user := range r.users {
		if user.Username == username {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.UserRef, error) { return nil, nil }

func (r *fakeUserRepo) Create(_ context.Context, _ *domain.UserRef) error { return nil }

func (r *fakeUserRepo) Update(_ context.Context, _ *domain.UserRef) error { return nil }

func (r *fakeUserRepo) Delete(_ context.Context, _ int64) error { return nil }

type fakeCategoryRepo struct {
	categories map[int64]domain.CategoryRef
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id int64) (*domain.CategoryRef, error) {
	category, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := category
	return &copied, nil
}

func (r *fakeCategoryRepo) List(_ context.Context) ([]domain.CategoryRef, error) { return nil, nil }

func (r *fakeCategoryRepo) Create(_ context.Context, _ *domain.CategoryRef) error { return nil }

func (r *fakeCategoryRepo) Update(_ context.Context, _ *domain.CategoryRef) error { return nil }

func (r *fakeCategoryRepo) Delete(_ context.Context, _ int64) error { return nil }

type engineEnv struct {
	tickets       *fakeTicketRepo
	history       *fakeHistoryRepo
	notifications *fakeNotificationRepo
	users         *fakeUserRepo
	categories    *fakeCategoryRepo
	svc           *TicketService
}

func newEngineEnv(auditContent bool) *engineEnv {
	env := &engineEnv{
		tickets:       newFakeTicketRepo(),
		history:       &fakeHistoryRepo{},
		notifications: &fakeNotificationRepo{},
		users: &fakeUserRepo{users: map[int64]domain.UserRef{
			1: {ID: 1, Username: "alice"},
			2: {ID: 2, Username: "bob"},
			3: {ID: 3, Username: "carol"},
		}},
		categories: &fakeCategoryRepo{categories: map[int64]domain.CategoryRef{
			1: {ID: 1, Name: "Hardware"},
		}},
	}
	env.svc = NewTicketService(TicketDependencies{
		TxRunner:          passthroughTxRunner{},
		TicketRepo:        env.tickets,
		HistoryRepo:       env.history,
		NotificationRepo:  env.notifications,
		UserRepo:          env.users,
		CategoryRepo:      env.categories,
		Dispatcher:        events.NewInMemoryDispatcher(),
		AuditContentEdits: auditContent,
	})
	return env
}

func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestCreateTicketDefaults(t *testing.T) {
	env := newEngineEnv(false)

	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "VPN keeps dropping",
		Description: "Disconnects every ten minutes",
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.True(t, strings.HasPrefix(ticket.ExternalKey, "TCK-"))
	assert.Equal(t, int64(1), ticket.CreatedByID)

	entries := env.history.forTicket(ticket.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreated, entries[0].Action)
	assert.Equal(t, int64(1), entries[0].UserID)
	assert.Nil(t, entries[0].OldValue)
	assert.Nil(t, entries[0].NewValue)

	assert.Empty(t, env.notifications.items)
}

func TestCreateTicketWithAssigneeNotifies(t *testing.T) {
	env := newEngineEnv(false)
	assignee := int64(2)

	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:      "Laptop battery swollen",
		Description:  "Needs replacement",
		AssignedToID: &assignee,
	}, 1)
	require.NoError(t, err)

	require.Len(t, env.notifications.items, 1)
	got := env.notifications.items[0]
	assert.Equal(t, assignee, got.UserID)
	assert.Equal(t, "New ticket assigned to you: Laptop battery swollen", got.Message)
	require.NotNil(t, got.TicketID)
	assert.Equal(t, ticket.ID, *got.TicketID)
}

func TestCreateTicketValidation(t *testing.T) {
	env := newEngineEnv(false)

	_, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "   ",
		Description: "whitespace subject",
	}, 1)
	requireDomainCode(t, err, "VALIDATION_FAILED")

	_, err = env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     strings.Repeat("x", domain.MaxSubjectLen+1),
		Description: "too long",
	}, 1)
	requireDomainCode(t, err, "VALIDATION_FAILED")

	assert.Empty(t, env.tickets.tickets)
	assert.Empty(t, env.history.entries)
}

func TestCreateTicketUnknownReferences(t *testing.T) {
	env := newEngineEnv(false)
	missing := int64(99)

	_, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Subject",
		Description: "Description",
		CategoryID:  &missing,
	}, 1)
	requireDomainCode(t, err, "NOT_FOUND")

	_, err = env.svc.Create(context.Background(), CreateTicketInput{
		Subject:      "Subject",
		Description:  "Description",
		AssignedToID: &missing,
	}, 1)
	requireDomainCode(t, err, "NOT_FOUND")
}

func TestUpdateStatusChange(t *testing.T) {
	env := newEngineEnv(false)
	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Monitor flickers",
		Description: "Intermittent",
	}, 1)
	require.NoError(t, err)

	updated, err := env.svc.ChangeStatus(context.Background(), ticket.ID, domain.TicketStatusResolved, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	assert.NotNil(t, updated.ResolvedAt)

	entries := env.history.forTicket(ticket.ID)
	require.Len(t, entries, 2)
	change := entries[1]
	assert.Equal(t, domain.ActionStatusChanged, change.Action)
	assert.Equal(t, "status", change.Field)
	require.NotNil(t, change.OldValue)
	require.NotNil(t, change.NewValue)
	assert.Equal(t, "OPEN", *change.OldValue)
	assert.Equal(t, "RESOLVED", *change.NewValue)

	// creator gets told when someone else moves their ticket
	require.Len(t, env.notifications.items, 1)
	assert.Equal(t, int64(1), env.notifications.items[0].UserID)
	assert.Contains(t, env.notifications.items[0].Message, "status changed to RESOLVED")
}

func TestUpdateStatusByCreatorDoesNotNotify(t *testing.T) {
	env := newEngineEnv(false)
	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Keyboard sticky",
		Description: "Coffee incident",
	}, 1)
	require.NoError(t, err)

	_, err = env.svc.ChangeStatus(context.Background(), ticket.ID, domain.TicketStatusClosed, 1)
	require.NoError(t, err)
	assert.Empty(t, env.notifications.items)
}

func TestUpdateReopenClearsTimestamps(t *testing.T) {
	env := newEngineEnv(false)
	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Mouse broken",
		Description: "Left click dead",
	}, 1)
	require.NoError(t, err)

	updated, err := env.svc.ChangeStatus(context.Background(), ticket.ID, domain.TicketStatusResolved, 1)
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)

	reopened, err := env.svc.ChangeStatus(context.Background(), ticket.ID, domain.TicketStatusOpen, 1)
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Nil(t, reopened.ClosedAt)
}

func TestAssignmentMatrix(t *testing.T) {
	env := newEngineEnv(false)
	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Email bouncing",
		Description: "External mail rejected",
	}, 1)
	require.NoError(t, err)

	bob := int64(2)
	_, err = env.svc.Assign(context.Background(), ticket.ID, &bob, 1)
	require.NoError(t, err)

	entries := env.history.forTicket(ticket.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ActionAssignmentChanged, entries[1].Action)
	assert.Equal(t, "Unassigned", *entries[1].OldValue)
	assert.Equal(t, "bob", *entries[1].NewValue)
	require.Len(t, env.notifications.items, 1)
	assert.Equal(t, bob, env.notifications.items[0].UserID)
	assert.Contains(t, env.notifications.items[0].Message, "has been assigned to you")

	carol := int64(3)
	_, err = env.svc.Assign(context.Background(), ticket.ID, &carol, 1)
	require.NoError(t, err)

	entries = env.history.forTicket(ticket.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, "bob", *entries[2].OldValue)
	assert.Equal(t, "carol", *entries[2].NewValue)
	require.Len(t, env.notifications.items, 2)
	assert.Equal(t, carol, env.notifications.items[1].UserID)

	_, err = env.svc.Assign(context.Background(), ticket.ID, nil, 1)
	require.NoError(t, err)

	entries = env.history.forTicket(ticket.ID)
	require.Len(t, entries, 4)
	assert.Equal(t, "carol", *entries[3].OldValue)
	assert.Equal(t, "Unassigned", *entries[3].NewValue)
	// unassignment notifies nobody
	assert.Len(t, env.notifications.items, 2)
}

func TestUpdateIdempotentReplay(t *testing.T) {
	env := newEngineEnv(false)
	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Disk almost full",
		Description: "95 percent used",
	}, 1)
	require.NoError(t, err)

	high := domain.TicketPriorityHigh
	bob := int64(2)
	patch := TicketPatch{Priority: &high}
	_, err = env.svc.Update(context.Background(), ticket.ID, patch, 1)
	require.NoError(t, err)
	_, err = env.svc.Assign(context.Background(), ticket.ID, &bob, 1)
	require.NoError(t, err)

	entriesBefore := len(env.history.forTicket(ticket.ID))
	notificationsBefore := len(env.notifications.items)

	// same patch again: nothing changes, nothing is recorded
	_, err = env.svc.Update(context.Background(), ticket.ID, patch, 1)
	require.NoError(t, err)
	_, err = env.svc.Assign(context.Background(), ticket.ID, &bob, 1)
	require.NoError(t, err)

	assert.Len(t, env.history.forTicket(ticket.ID), entriesBefore)
	assert.Len(t, env.notifications.items, notificationsBefore)
}

func TestUpdateMultipleFieldsOrdered(t *testing.T) {
	env := newEngineEnv(false)
	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Server rack overheating",
		Description: "Temps climbing",
	}, 1)
	require.NoError(t, err)

	status := domain.TicketStatusInProgress
	priority := domain.TicketPriorityHigh
	_, err = env.svc.Update(context.Background(), ticket.ID, TicketPatch{
		Status:   &status,
		Priority: &priority,
	}, 1)
	require.NoError(t, err)

	entries := env.history.forTicket(ticket.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.ActionStatusChanged, entries[1].Action)
	assert.Equal(t, domain.ActionPriorityChanged, entries[2].Action)
}

func TestUpdateContentEditsOptIn(t *testing.T) {
	subject := "Rewritten subject"

	env := newEngineEnv(false)
	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Original subject",
		Description: "Body",
	}, 1)
	require.NoError(t, err)

	_, err = env.svc.Update(context.Background(), ticket.ID, TicketPatch{Subject: &subject}, 1)
	require.NoError(t, err)
	assert.Len(t, env.history.forTicket(ticket.ID), 1)

	audited := newEngineEnv(true)
	ticket, err = audited.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Original subject",
		Description: "Body",
	}, 1)
	require.NoError(t, err)

	_, err = audited.svc.Update(context.Background(), ticket.ID, TicketPatch{Subject: &subject}, 1)
	require.NoError(t, err)
	entries := audited.history.forTicket(ticket.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ActionFieldChanged, entries[1].Action)
	assert.Equal(t, "subject", entries[1].Field)
}

func TestUpdateUnknownTicket(t *testing.T) {
	env := newEngineEnv(false)
	status := domain.TicketStatusClosed
	_, err := env.svc.Update(context.Background(), 42, TicketPatch{Status: &status}, 1)
	requireDomainCode(t, err, "NOT_FOUND")
}

func TestUpdateInvalidStatusRejected(t *testing.T) {
	env := newEngineEnv(false)
	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Subject",
		Description: "Description",
	}, 1)
	require.NoError(t, err)

	bogus := domain.TicketStatus("ARCHIVED")
	_, err = env.svc.Update(context.Background(), ticket.ID, TicketPatch{Status: &bogus}, 1)
	requireDomainCode(t, err, "VALIDATION_FAILED")
	assert.Len(t, env.history.forTicket(ticket.ID), 1)
}

func TestNotificationFailureDoesNotFailMutation(t *testing.T) {
	env := newEngineEnv(false)
	env.notifications.failPut = true

	bob := int64(2)
	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:      "Phone not provisioning",
		Description:  "New starter setup",
		AssignedToID: &bob,
	}, 1)
	require.NoError(t, err)
	require.NotNil(t, ticket)

	assert.Len(t, env.history.forTicket(ticket.ID), 1)
	assert.Empty(t, env.notifications.items)
}

func TestDeleteTicket(t *testing.T) {
	env := newEngineEnv(false)
	ticket, err := env.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Old ticket",
		Description: "To be removed",
	}, 1)
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(context.Background(), ticket.ID))
	err = env.svc.Delete(context.Background(), ticket.ID)
	requireDomainCode(t, err, "NOT_FOUND")
}
