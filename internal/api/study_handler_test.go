package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/generation"
	"github.com/nextudy/nextudy-api/internal/service"
	"github.com/nextudy/nextudy-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSummary(t *testing.T) {
	t.Parallel()
	docID := uuid.New()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"from text", `{"text":"La photosynthèse..."}`, nil, http.StatusCreated, ""},
		{"from document", fmt.Sprintf(`{"document_id":%q,"title":"SVT"}`, docID), nil, http.StatusCreated, ""},
		{"no source", `{}`, fmt.Errorf("%w: %w", domain.ErrValidation, service.ErrMissingSource), http.StatusBadRequest, "Un texte ou un document est requis"},
		{"foreign document", fmt.Sprintf(`{"document_id":%q}`, docID), store.ErrDocumentNotFound, http.StatusNotFound, "Document introuvable"},
		{"model refused", `{"text":"x"}`, generation.ErrContentBlocked, http.StatusBadGateway, "Le contenu a été bloqué par le modèle"},
		{"model rate limited", `{"text":"x"}`, generation.ErrRateLimited, http.StatusServiceUnavailable, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t)
			ts.study.CreateSummaryFn = func(_ context.Context, userID uuid.UUID, in service.StudySource) (*domain.Summary, error) {
				if tc.err != nil {
					return nil, tc.err
				}
				return &domain.Summary{ID: uuid.New(), UserID: userID, DocumentID: in.DocumentID, Title: in.Title}, nil
			}

			rec := ts.do(http.MethodPost, "/api/summaries", tc.body, userToken)
			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, decodeError(t, rec).Error)
			}
		})
	}
}

func TestCreateFlashcards(t *testing.T) {
	t.Parallel()

	t.Run("count defaults to ten", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		var got service.FlashcardsInput
		ts.study.CreateFlashcardsFn = func(_ context.Context, _ uuid.UUID, in service.FlashcardsInput) (*domain.FlashcardSet, error) {
			got = in
			return &domain.FlashcardSet{ID: uuid.New()}, nil
		}

		rec := ts.do(http.MethodPost, "/api/flashcards", `{"text":"Les fractions"}`, userToken)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, defaultFlashcardCount, got.Count)
		assert.Equal(t, "Les fractions", got.Text)
	})

	t.Run("count above the limit", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec := ts.do(http.MethodPost, "/api/flashcards", `{"text":"x","count":31}`, userToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Le champ count est trop long", decodeError(t, rec).Error)
	})
}

func TestCreateQuiz(t *testing.T) {
	t.Parallel()

	t.Run("passes difficulty", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		var got service.QuizInput
		ts.study.CreateQuizFn = func(_ context.Context, _ uuid.UUID, in service.QuizInput) (*domain.Quiz, error) {
			got = in
			return &domain.Quiz{ID: uuid.New()}, nil
		}

		rec := ts.do(http.MethodPost, "/api/qcm", `{"text":"Révolution française","count":5,"difficulty":"difficile"}`, userToken)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 5, got.Count)
		assert.Equal(t, domain.QuizDifficulty("difficile"), got.Difficulty)
	})

	t.Run("unknown difficulty", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)

		rec := ts.do(http.MethodPost, "/api/qcm", `{"text":"x","difficulty":"extrême"}`, userToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Valeur invalide pour difficulty", decodeError(t, rec).Error)
	})

	t.Run("delete foreign quiz", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.study.DeleteQuizFn = func(context.Context, uuid.UUID, uuid.UUID) error {
			return store.ErrQuizNotFound
		}

		rec := ts.do(http.MethodDelete, "/api/qcm/"+uuid.NewString(), "", userToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
