//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/platform/postgres"
	"github.com/nextudy/nextudy-api/internal/store"
	"github.com/nextudy/nextudy-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func createUser(t *testing.T, tx *sql.Tx, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(email, "Camille", "motdepasse1")
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresUserStore(tx, bcrypt.MinCost, nil).Create(context.Background(), u))
	return u
}

func TestGenerationTaskLifecycle(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		user := createUser(t, tx, "tache-"+uuid.NewString()[:8]+"@lycee.fr")
		tasks := postgres.NewPostgresGenerationTaskStore(tx, nil)

		task, err := domain.NewGenerationTask(user.ID, "m-1", nil, "Physique", "Terminale", domain.FormatDetailed,
			[]domain.ChatMessage{{Role: domain.RoleUser, Content: "Explique la loi d'Ohm"}})
		require.NoError(t, err)
		require.NoError(t, tasks.Create(ctx, task))

		dup, err := domain.NewGenerationTask(user.ID, "m-1", nil, "", "", "", task.Messages)
		require.NoError(t, err)
		assert.ErrorIs(t, tasks.Create(ctx, dup), store.ErrTaskExists)

		require.NoError(t, tasks.UpdatePartial(ctx, task.ID, "La loi"))
		got, err := tasks.GetByMessageID(ctx, user.ID, "m-1")
		require.NoError(t, err)
		assert.Equal(t, "La loi", got.Content())

		require.NoError(t, tasks.Complete(ctx, task.ID, "La loi d'Ohm 📘", time.Now()))
		assert.ErrorIs(t, tasks.UpdatePartial(ctx, task.ID, "x"), store.ErrTaskNotGenerating)

		got, err = tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, got.Status)
		assert.NotNil(t, got.CompletedAt)
	})
}

func TestFailGeneratingOnlyTouchesOldRows(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		user := createUser(t, tx, "stuck-"+uuid.NewString()[:8]+"@lycee.fr")
		tasks := postgres.NewPostgresGenerationTaskStore(tx, nil)

		old, err := domain.NewGenerationTask(user.ID, "old", nil, "", "", "", []domain.ChatMessage{{Role: domain.RoleUser, Content: "a"}})
		require.NoError(t, err)
		old.CreatedAt = time.Now().Add(-time.Hour)
		fresh, err := domain.NewGenerationTask(user.ID, "fresh", nil, "", "", "", []domain.ChatMessage{{Role: domain.RoleUser, Content: "b"}})
		require.NoError(t, err)
		require.NoError(t, tasks.Create(ctx, old))
		require.NoError(t, tasks.Create(ctx, fresh))

		n, err := tasks.FailGenerating(ctx, time.Now().Add(-10*time.Minute), "timeout")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		got, err := tasks.GetByID(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusFailed, got.Status)
		assert.Equal(t, "timeout", got.ErrorMessage)

		got, err = tasks.GetByID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusGenerating, got.Status)
	})
}

func TestConversationMessagesInOrder(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		user := createUser(t, tx, "conv-"+uuid.NewString()[:8]+"@lycee.fr")
		convs := postgres.NewPostgresConversationStore(tx)

		c, err := domain.NewConversation(user.ID, "Révisions", "SVT", "Première", domain.FormatShort)
		require.NoError(t, err)
		require.NoError(t, convs.Create(ctx, c))

		for _, content := range []string{"un", "deux", "trois"} {
			m, err := domain.NewConversationMessage(c.ID, domain.RoleUser, content)
			require.NoError(t, err)
			require.NoError(t, convs.AddMessage(ctx, m))
			time.Sleep(time.Millisecond)
		}

		msgs, err := convs.ListMessages(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "un", msgs[0].Content)
		assert.Equal(t, "trois", msgs[2].Content)

		require.NoError(t, convs.Delete(ctx, c.ID))
		_, err = convs.GetByID(ctx, c.ID)
		assert.ErrorIs(t, err, store.ErrConversationNotFound)
	})
}

func TestSubscriptionUpsertKeepsCustomer(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		user := createUser(t, tx, "abo-"+uuid.NewString()[:8]+"@lycee.fr")
		subs := postgres.NewPostgresSubscriptionStore(tx)
		customer := "cus_" + uuid.NewString()[:12]

		require.NoError(t, subs.Upsert(ctx, &domain.Subscription{
			UserID: user.ID, StripeCustomerID: customer, Status: domain.SubscriptionIncomplete, UpdatedAt: time.Now(),
		}))
		require.NoError(t, subs.Upsert(ctx, &domain.Subscription{
			UserID: user.ID, StripeSubscriptionID: "sub_1", Status: domain.SubscriptionActive, UpdatedAt: time.Now(),
		}))

		got, err := subs.GetByCustomerID(ctx, customer)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.UserID)
		assert.Equal(t, "sub_1", got.StripeSubscriptionID)
		assert.True(t, got.IsPremium())
	})
}
