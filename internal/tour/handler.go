// AngelaMos | 2026
// handler.go

package tour

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

// RegisterRoutes mounts the read endpoints behind the optional
// authenticator so a staff token reveals secret tours while anonymous
// requests still pass.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, optionalAuth func(http.Handler) http.Handler,
) {
	staffOnly := middleware.RequireRole(user.RoleAdmin, user.RoleLeadGuide)

	r.Route("/tours", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			r.Get("/", h.ListTours)
			r.Get("/{tourID}", h.GetTour)
			r.Get("/slug/{slug}", h.GetTourBySlug)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(staffOnly)

			r.Post("/", h.CreateTour)
			r.Patch("/{tourID}", h.UpdateTour)
			r.Delete("/{tourID}", h.DeleteTour)
		})
	})
}

func (h *Handler) ListTours(w http.ResponseWriter, r *http.Request) {
	params := ListToursParams{
		Page:          parseIntQuery(r, "page", 1),
		PageSize:      parseIntQuery(r, "page_size", 20),
		Difficulty:    r.URL.Query().Get("difficulty"),
		MinPrice:      parseFloatQuery(r, "min_price"),
		MaxPrice:      parseFloatQuery(r, "max_price"),
		Sort:          r.URL.Query().Get("sort"),
		IncludeSecret: isStaff(r),
	}

	tours, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToTourResponseList(tours),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) GetTour(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "tourID")

	tour, err := h.service.Get(r.Context(), tourID, isStaff(r))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "tour")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToTourResponse(tour))
}

func (h *Handler) GetTourBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	tour, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "tour")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToTourResponse(tour))
}

func (h *Handler) CreateTour(w http.ResponseWriter, r *http.Request) {
	var req CreateTourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	tour, err := h.service.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "price discount must be below regular price")
		case errors.Is(err, core.ErrDuplicateKey):
			core.JSONError(w, core.DuplicateError("tour name"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, ToTourResponse(tour))
}

func (h *Handler) UpdateTour(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "tourID")

	var req UpdateTourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	tour, err := h.service.Update(r.Context(), tourID, req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "tour")
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "price discount must be below regular price")
		case errors.Is(err, core.ErrDuplicateKey):
			core.JSONError(w, core.DuplicateError("tour name"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, ToTourResponse(tour))
}

func (h *Handler) DeleteTour(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "tourID")

	if err := h.service.Delete(r.Context(), tourID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "tour")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func isStaff(r *http.Request) bool {
	role := middleware.GetUserRole(r.Context())
	return role == user.RoleAdmin || role == user.RoleLeadGuide
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

func parseFloatQuery(r *http.Request, key string) float64 {
	val := r.URL.Query().Get(key)
	if val == "" {
		return 0
	}

	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}

	return parsed
}
