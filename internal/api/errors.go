package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nextudy/nextudy-api/internal/api/shared"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/generation"
	"github.com/nextudy/nextudy-api/internal/service"
	"github.com/nextudy/nextudy-api/internal/service/auth"
	"github.com/nextudy/nextudy-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrAccountPending),
		errors.Is(err, service.ErrAccountRejected),
		errors.Is(err, domain.ErrUserNotActive):
		return http.StatusForbidden

	// Not found errors, foreign rows included
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, service.ErrAlreadySubscribed),
		errors.Is(err, domain.ErrUserAlreadyReviewed):
		return http.StatusConflict

	case errors.Is(err, service.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, domain.ErrEmptyExtraction):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, service.ErrInvalidActivation),
		errors.Is(err, service.ErrNoBillingCustomer),
		errors.Is(err, service.ErrInvalidWebhook),
		errors.Is(err, domain.ErrUnsupportedDocument):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, service.ErrQueueFull),
		errors.Is(err, service.ErrFeatureDisabled),
		errors.Is(err, generation.ErrRateLimited),
		errors.Is(err, generation.ErrTransientFailure):
		return http.StatusServiceUnavailable

	case errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrContentBlocked),
		errors.Is(err, generation.ErrGenerationFailed):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns the French message shown to the user for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "Une erreur inattendue est survenue"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Session expirée"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return "Authentification requise"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Jeton de rafraîchissement invalide"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Identifiants invalides"
	case errors.Is(err, service.ErrAccountPending):
		return "Ton compte est en attente de validation"
	case errors.Is(err, service.ErrAccountRejected):
		return "Ton inscription a été refusée"
	case errors.Is(err, domain.ErrUserNotActive):
		return "Ce compte n'est pas actif"
	case errors.Is(err, service.ErrInvalidActivation):
		return "Lien d'activation invalide ou expiré"

	case errors.Is(err, store.ErrUserNotFound):
		return "Utilisateur introuvable"
	case errors.Is(err, store.ErrConversationNotFound):
		return "Conversation introuvable"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Génération introuvable"
	case errors.Is(err, store.ErrSummaryNotFound):
		return "Résumé introuvable"
	case errors.Is(err, store.ErrFlashcardSetNotFound):
		return "Fiches introuvables"
	case errors.Is(err, store.ErrQuizNotFound):
		return "QCM introuvable"
	case errors.Is(err, store.ErrDocumentNotFound):
		return "Document introuvable"
	case errors.Is(err, store.ErrTodoNotFound):
		return "Tâche introuvable"
	case errors.Is(err, store.ErrNotFound):
		return "Ressource introuvable"

	case errors.Is(err, store.ErrEmailExists):
		return "Cette adresse e-mail est déjà utilisée"
	case errors.Is(err, service.ErrAlreadySubscribed):
		return "Tu as déjà un abonnement actif"
	case errors.Is(err, domain.ErrUserAlreadyReviewed):
		return "Ce compte a déjà été traité"
	case errors.Is(err, store.ErrDuplicate):
		return "Cette ressource existe déjà"

	case errors.Is(err, service.ErrDocumentTooLarge):
		return "Le fichier est trop volumineux"
	case errors.Is(err, domain.ErrUnsupportedDocument):
		return "Type de fichier non pris en charge"
	case errors.Is(err, domain.ErrEmptyExtraction):
		return "Aucun texte n'a pu être extrait du document"
	case errors.Is(err, service.ErrMissingSource):
		return "Un texte ou un document est requis"
	case errors.Is(err, service.ErrNoBillingCustomer):
		return "Aucun compte de facturation associé"
	case errors.Is(err, service.ErrInvalidWebhook):
		return "Signature invalide"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return validationMessage(err)

	case errors.Is(err, service.ErrRateLimited):
		return "Trop de tentatives, réessaie dans quelques minutes"
	case errors.Is(err, service.ErrQueueFull),
		errors.Is(err, generation.ErrRateLimited),
		errors.Is(err, generation.ErrTransientFailure):
		return "Le service de génération est saturé, réessaie dans un instant"
	case errors.Is(err, service.ErrFeatureDisabled):
		return "Cette fonctionnalité n'est pas disponible"
	case errors.Is(err, generation.ErrContentBlocked):
		return "Le contenu a été bloqué par le modèle"
	case errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrGenerationFailed):
		return "La génération a échoué, réessaie"

	default:
		return "Une erreur inattendue est survenue"
	}
}

// validationMessage names the broken field for the domain errors users can
// fix themselves.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidEmail), errors.Is(err, domain.ErrEmptyEmail):
		return "Adresse e-mail invalide"
	case errors.Is(err, domain.ErrPasswordTooShort):
		return fmt.Sprintf("Le mot de passe doit contenir au moins %d caractères", domain.MinPasswordLength)
	case errors.Is(err, domain.ErrPasswordTooLong):
		return fmt.Sprintf("Le mot de passe doit contenir au plus %d caractères", domain.MaxPasswordLength)
	case errors.Is(err, domain.ErrInvalidFormat):
		return "Format de réponse invalide"
	case errors.Is(err, domain.ErrInvalidItemCount):
		return fmt.Sprintf("Le nombre d'éléments doit être compris entre 1 et %d", domain.MaxGeneratedItem)
	case errors.Is(err, domain.ErrInvalidDifficulty):
		return "Difficulté invalide"
	case errors.Is(err, domain.ErrLastMessageRole), errors.Is(err, domain.ErrNoMessages):
		return "Le dernier message doit venir de l'élève"
	case errors.Is(err, domain.ErrEmptyMessageID):
		return "Identifiant de message manquant"
	default:
		return "Données invalides"
	}
}

// SanitizeValidationError turns validator errors into a French message
// naming the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Données invalides"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Le champ %s est requis", field)
	case "email":
		return "Adresse e-mail invalide"
	case "min":
		return fmt.Sprintf("Le champ %s est trop court", field)
	case "max":
		return fmt.Sprintf("Le champ %s est trop long", field)
	case "oneof":
		return fmt.Sprintf("Valeur invalide pour %s", field)
	default:
		return fmt.Sprintf("Champ %s invalide", field)
	}
}

// HandleAPIError writes the status and safe message for err and logs it.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err, opts...)
}
