package transport

import (
	"errors"
	"net/http"
	"strconv"

	"teomarket/internal/domain"
	"teomarket/internal/middleware"
	"teomarket/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errInvalidID        = domain.NewValidation("invalid_id", "invalid identifier")
	errMissingSession   = domain.NewValidation("missing_session", "an X-Session-ID header or a bearer token is required")
	errInvalidQuantity  = domain.NewValidation("invalid_quantity", "quantity must be a positive integer")
	errUnauthenticated  = errors.New("authentication required")
	errMissingUserClaim = errors.New("invalid user id in token")
)

// respondWithError answers 401 for a missing or unusable identity and maps
// everything else through the domain error kinds.
func respondWithError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if errors.Is(err, errUnauthenticated) || errors.Is(err, errMissingUserClaim) {
		middleware.RespondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	middleware.RespondWithDomainError(w, logger, err)
}

// uuidParam parses the chi URL parameter name as a UUID.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errInvalidID.WithMessage("invalid %s", name)
	}
	return id, nil
}

// currentUserID returns the authenticated caller, if any.
func currentUserID(r *http.Request) (*uuid.UUID, error) {
	raw, ok := middleware.GetUserID(r.Context())
	if !ok {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errMissingUserClaim
	}
	return &id, nil
}

// cartOwner identifies the cart of the request: the customer when a token
// was sent, the X-Session-ID header otherwise.
func cartOwner(r *http.Request) (domain.CartOwner, error) {
	owner := domain.CartOwner{SessionID: r.Header.Get(middleware.SessionHeader)}
	userID, err := currentUserID(r)
	if err != nil {
		return owner, err
	}
	owner.CustomerID = userID
	if owner.CustomerID == nil && owner.SessionID == "" {
		return owner, errMissingSession
	}
	return owner, nil
}

func actor(r *http.Request) (service.Actor, error) {
	userID, err := currentUserID(r)
	if err != nil {
		return service.Actor{}, err
	}
	if userID == nil {
		return service.Actor{}, errUnauthenticated
	}
	return service.Actor{UserID: *userID, IsAdmin: middleware.IsAdmin(r.Context())}, nil
}

// quantityQuery reads ?quantity=, defaulting to 1.
func quantityQuery(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("quantity")
	if raw == "" {
		return 1, nil
	}
	q, err := strconv.Atoi(raw)
	if err != nil || q < 1 {
		return 0, errInvalidQuantity
	}
	return q, nil
}

// locale picks the label language from ?lang= or Accept-Language.
func locale(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return domain.NormalizeLocale(lang)
	}
	al := r.Header.Get("Accept-Language")
	if len(al) >= 2 {
		return domain.NormalizeLocale(al[:2])
	}
	return domain.LocaleRO
}
