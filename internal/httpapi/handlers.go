package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"pet-feeding/internal/schedule"
	"pet-feeding/internal/service"
)

// maxClockSkew is how far into the future a client-supplied fedAt may lie.
const maxClockSkew = time.Minute

type handler struct {
	runner   Runner
	feedings Feedings
	log      logrus.FieldLogger
	now      func() time.Time
}

type deliverResponse struct {
	Delivered     int                     `json:"delivered"`
	Suppressed    int                     `json:"suppressed"`
	Notifications []service.DeliveredItem `json:"notifications"`
	Warnings      int64                   `json:"warnings"`
}

// Deliver handles POST /api/v2/scheduled-notifications/deliver.
func (h *handler) Deliver(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(r.Context(), h.now())
	if err != nil {
		writeAppError(w, h.log, err)
		return
	}
	items := result.Delivery.Items
	if items == nil {
		items = []service.DeliveredItem{}
	}
	writeData(w, h.log, http.StatusOK, deliverResponse{
		Delivered:     result.Delivery.Delivered,
		Suppressed:    result.Delivery.Suppressed,
		Notifications: items,
		Warnings:      result.Missed.Inserted,
	})
}

// NextFeeding handles GET /api/v2/cats/{catID}/next-feeding.
func (h *handler) NextFeeding(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	catID, err := strconv.ParseUint(chi.URLParam(r, "catID"), 10, 64)
	if err != nil || catID == 0 {
		writeError(w, h.log, http.StatusBadRequest, "invalid cat id")
		return
	}

	info, err := h.feedings.NextFeeding(r.Context(), uint(catID), user.ID, h.now())
	if err != nil {
		writeAppError(w, h.log, err)
		return
	}
	writeData(w, h.log, http.StatusOK, info)
}

type feedingRequest struct {
	CatID    uint       `json:"catId"`
	FedAt    *time.Time `json:"fedAt"`
	Amount   *float64   `json:"amount"`
	Unit     string     `json:"unit"`
	MealType string     `json:"mealType"`
	Notes    string     `json:"notes"`
}

func (f feedingRequest) validate(now time.Time) error {
	meals := make([]any, 0, len(schedule.MealTypes))
	for _, m := range schedule.MealTypes {
		meals = append(meals, m)
	}
	return validation.ValidateStruct(&f,
		validation.Field(&f.CatID, validation.Required),
		validation.Field(&f.FedAt, validation.By(func(v any) error {
			at, _ := v.(*time.Time)
			if at != nil && at.After(now.Add(maxClockSkew)) {
				return errors.New("must not be in the future")
			}
			return nil
		})),
		validation.Field(&f.Amount, validation.Min(0.0)),
		validation.Field(&f.Unit, validation.Length(0, 16)),
		validation.Field(&f.MealType, validation.In(meals...)),
		validation.Field(&f.Notes, validation.Length(0, 500)),
	)
}

// CreateFeeding handles POST /api/v2/feedings.
func (h *handler) CreateFeeding(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	now := h.now()

	var req feedingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(now); err != nil {
		writeError(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	in := service.FeedingInput{
		CatID:    req.CatID,
		UserID:   user.ID,
		Amount:   req.Amount,
		Unit:     req.Unit,
		MealType: req.MealType,
		Notes:    req.Notes,
	}
	if req.FedAt != nil {
		in.FedAt = *req.FedAt
	}
	log, err := h.feedings.Register(r.Context(), in, now)
	if err != nil {
		writeAppError(w, h.log, err)
		return
	}
	writeData(w, h.log, http.StatusCreated, log)
}
