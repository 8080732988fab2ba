// AngelaMos | 2026
// handler.go

package review

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/tourways/internal/core"
	"github.com/angelamos/tourways/internal/middleware"
	"github.com/angelamos/tourways/internal/user"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	customersOnly := middleware.RequireRole(user.RoleUser)

	r.Route("/tours/{tourID}/reviews", func(r chi.Router) {
		r.Get("/", h.ListReviews)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(customersOnly)
			r.Post("/", h.CreateReview)
		})
	})

	r.Route("/reviews/{reviewID}", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.GetReview)
		r.Patch("/", h.UpdateReview)
		r.Delete("/", h.DeleteReview)
	})
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "tourID")

	params := ListReviewsParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
	}

	reviews, total, err := h.service.ListByTour(r.Context(), tourID, params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToReviewResponseList(reviews),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "tourID")
	userID := middleware.GetUserID(r.Context())

	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	review, err := h.service.Create(r.Context(), tourID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "tour")
		case errors.Is(err, core.ErrDuplicateKey):
			core.Conflict(w, "you have already reviewed this tour")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, ToReviewResponse(review))
}

func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewID")

	review, err := h.service.Get(r.Context(), reviewID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "review")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToReviewResponse(review))
}

func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewID")
	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	var req UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	review, err := h.service.Update(
		r.Context(),
		reviewID,
		requesterID,
		requesterRole,
		req,
	)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "review")
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "you can only modify your own reviews")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, ToReviewResponse(review))
}

func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewID")
	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	err := h.service.Delete(r.Context(), reviewID, requesterID, requesterRole)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "review")
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "you can only modify your own reviews")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.NoContent(w)
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
