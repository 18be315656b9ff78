package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type commentEnv struct {
	*engineEnv
	comments *fakeCommentRepo
	svc      *CommentService
}

type fakeCommentRepo struct {
	comments []domain.Comment
	nextID   int64
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.nextID++
	comment.ID = r.nextID
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	var out []domain.Comment
	for _, comment := range r.comments {
		if comment.TicketID == ticketID {
			out = append(out, comment)
		}
	}
	return out, nil
}

func (r *fakeCommentRepo) Delete(_ context.Context, _ int64) error { return nil }

func newCommentEnv() *commentEnv {
	base := newEngineEnv(false)
	comments := &fakeCommentRepo{}
	return &commentEnv{
		engineEnv: base,
		comments:  comments,
		svc:       NewCommentService(comments, base.tickets, base.users, base.notifications, nil, nil),
	}
}

func TestCommentNotifiesCreatorAndAssignee(t *testing.T) {
	env := newCommentEnv()
	bob := int64(2)
	ticket, err := env.engineEnv.svc.Create(context.Background(), CreateTicketInput{
		Subject:      "Wifi down in annex",
		Description:  "Whole floor offline",
		AssignedToID: &bob,
	}, 1)
	require.NoError(t, err)
	env.notifications.items = nil

	// third party comments: both creator and assignee hear about it
	_, err = env.svc.Create(context.Background(), ticket.ID, 3, "Looking into the switch")
	require.NoError(t, err)

	require.Len(t, env.notifications.items, 2)
	assert.Equal(t, int64(1), env.notifications.items[0].UserID)
	assert.Equal(t, "New comment on your ticket: Wifi down in annex", env.notifications.items[0].Message)
	assert.Equal(t, bob, env.notifications.items[1].UserID)
}

func TestCommentByCreatorNotifiesOnlyAssignee(t *testing.T) {
	env := newCommentEnv()
	bob := int64(2)
	ticket, err := env.engineEnv.svc.Create(context.Background(), CreateTicketInput{
		Subject:      "Projector lamp",
		Description:  "Replacement needed",
		AssignedToID: &bob,
	}, 1)
	require.NoError(t, err)
	env.notifications.items = nil

	_, err = env.svc.Create(context.Background(), ticket.ID, 1, "Any update?")
	require.NoError(t, err)

	require.Len(t, env.notifications.items, 1)
	assert.Equal(t, bob, env.notifications.items[0].UserID)
}

func TestCommentValidation(t *testing.T) {
	env := newCommentEnv()
	ticket, err := env.engineEnv.svc.Create(context.Background(), CreateTicketInput{
		Subject:     "Subject",
		Description: "Description",
	}, 1)
	require.NoError(t, err)

	_, err = env.svc.Create(context.Background(), ticket.ID, 1, "   ")
	requireDomainCode(t, err, "VALIDATION_FAILED")

	_, err = env.svc.Create(context.Background(), ticket.ID, 1, strings.Repeat("x", domain.MaxCommentLen+1))
	requireDomainCode(t, err, "VALIDATION_FAILED")

	_, err = env.svc.Create(context.Background(), 999, 1, "orphan")
	requireDomainCode(t, err, "NOT_FOUND")
}
