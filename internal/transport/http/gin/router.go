package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/levkoval/resv-go/internal/domain"
	redisrepo "github.com/levkoval/resv-go/internal/repository/redis"
	"github.com/levkoval/resv-go/internal/service"
	"github.com/levkoval/resv-go/internal/service/availability"
	"github.com/levkoval/resv-go/internal/service/billing"
	"github.com/levkoval/resv-go/internal/service/catalog"
	"github.com/levkoval/resv-go/internal/service/report"
	"github.com/levkoval/resv-go/internal/service/reservation"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/resources/:id", handleGetResource(svcs))
	r.GET("/resources/:id/availability", handleGetAvailability(svcs))
	r.POST("/resources/:id/bookings", handleReserve(svcs, idem))

	r.GET("/bookings/:id", handleGetBooking(svcs))
	r.POST("/bookings/:id/confirm", handleTransition(svcs, "confirm"))
	r.POST("/bookings/:id/cancel", handleTransition(svcs, "cancel"))
	r.POST("/bookings/:id/complete", handleTransition(svcs, "complete"))

	r.POST("/bookings/:id/bills", handleAddBill(svcs))
	r.POST("/bookings/:id/payments", handleAddPayment(svcs))
	r.PATCH("/bookings/:id/discount", handleSetDiscount(svcs))

	r.GET("/reports", handleReport(svcs))

	// Admin-API
	// TODO: add admin middleware
	admin := r.Group("/admin")
	{
		admin.POST("/resources", handleCreateResource(svcs))
		admin.POST("/resources/:id/units", handleCreateUnits(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Get resource with units
// @Param    id  path  int  true  "Resource ID"
// @Success  200  {object}  domain.ResourceWithUnits
// @Failure  404  {object}  ErrorResponse
// @Router   /resources/{id} [get]
func handleGetResource(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		resourceID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		res, err := svcs.Catalog.GetResource(c.Request.Context(), resourceID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, res, "public, max-age=60", true)
	}
}

// @Summary  Free units for a range
// @Param    id       path   int     true  "Resource ID"
// @Param    from     query  string  true  "RFC3339 start"
// @Param    to       query  string  true  "RFC3339 end"
// @Param    exclude  query  string  false "booking id to ignore"
// @Param    count    query  int     false "requested unit count"
// @Success  200  {object}  AvailabilityResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /resources/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		resourceID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		rng, ok := parseRangeQuery(c)
		if !ok {
			return
		}
		excluding := uuid.Nil
		if s := c.Query("exclude"); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				badRequest(c, "invalid exclude (uuid)")
				return
			}
			excluding = id
		}

		units, err := svcs.Availability.AvailableUnits(
			c.Request.Context(),
			resourceID,
			rng,
			excluding,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := AvailabilityResponse{
			ResourceID: resourceID,
			Units:      units,
			Free:       len(units),
		}
		if s := c.Query("count"); s != "" {
			count, err := strconv.Atoi(s)
			if err != nil || count <= 0 {
				badRequest(c, "invalid count")
				return
			}
			ok, err := svcs.Availability.CanBook(c.Request.Context(), resourceID, rng, count, excluding)
			if err != nil {
				respondErr(c, err)
				return
			}
			resp.CanBook = &ok
		}

		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, resp, "public, max-age=15", true)
	}
}

// @Summary  Reserve units (idempotent)
// @Param    id  path  int  true  "Resource ID"
// @Param    req body  ReserveRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} ReserveResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "insufficient availability / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /resources/{id}/bookings [post]
func handleReserve(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		resourceID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ReserveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		starts, err := parseRFC3339(req.StartsAt)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}
		ends, err := parseRFC3339(req.EndsAt)
		if err != nil {
			badRequest(c, "invalid ends_at (RFC3339)")
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemReserve(resourceID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		b, err := svcs.Reservation.Reserve(
			c.Request.Context(),
			domain.ReservationRequest{
				ResourceID: resourceID,
				UserID:     req.UserID,
				Guests:     req.Guests,
				UnitCount:  req.UnitCount,
				Starts:     starts,
				Ends:       ends,
			},
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if isRateLimitedErr(err) {
				c.Header("Retry-After", "60")
				c.JSON(
					http.StatusTooManyRequests,
					ErrorResponse{Error: err.Error()},
				)
				return
			}
			respondErr(c, err)
			return
		}

		unitIDs := make([]int64, 0, len(b.Units))
		for _, u := range b.Units {
			unitIDs = append(unitIDs, u.ID)
		}
		resp := ReserveResponse{BookingID: b.ID.String(), UnitIDs: unitIDs}

		if idemStorageKey != "" && idem != nil {
			body, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(body))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get booking with financials
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} BookingResponse
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, f, err := svcs.Billing.Financials(c.Request.Context(), bookingID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, BookingResponse{Booking: b, Financials: f})
	}
}

// @Summary  Lifecycle transition (confirm, cancel, complete)
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  403 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "invalid transition"
// @Router   /bookings/{id}/confirm [post]
func handleTransition(svcs *service.Services, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		actorID, ok := parseActor(c)
		if !ok {
			return
		}

		var (
			b   *domain.Booking
			err error
		)
		switch action {
		case "confirm":
			b, err = svcs.Reservation.Confirm(c.Request.Context(), bookingID, actorID)
		case "cancel":
			b, err = svcs.Reservation.Cancel(c.Request.Context(), bookingID, actorID)
		case "complete":
			b, err = svcs.Reservation.Complete(c.Request.Context(), bookingID, actorID)
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Add bill
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Param    req body  AddBillRequest true "payload"
// @Success  201 {object} domain.Bill
// @Failure  409 {object} ErrorResponse "booking frozen"
// @Router   /bookings/{id}/bills [post]
func handleAddBill(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		actorID, ok := parseActor(c)
		if !ok {
			return
		}
		var req AddBillRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		bill, err := svcs.Billing.AddBill(
			c.Request.Context(),
			bookingID,
			req.AmountCents,
			req.Label,
			actorID,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, bill)
	}
}

// @Summary  Add payment
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Param    req body  AddPaymentRequest true "payload"
// @Success  201 {object} domain.Payment
// @Failure  409 {object} ErrorResponse "booking frozen"
// @Router   /bookings/{id}/payments [post]
func handleAddPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		actorID, ok := parseActor(c)
		if !ok {
			return
		}
		var req AddPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := svcs.Billing.AddPayment(
			c.Request.Context(),
			bookingID,
			req.AmountCents,
			actorID,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// @Summary  Set discount percentage
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Param    req body  SetDiscountRequest true "payload"
// @Success  204
// @Failure  409 {object} ErrorResponse "booking frozen"
// @Router   /bookings/{id}/discount [patch]
func handleSetDiscount(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		actorID, ok := parseActor(c)
		if !ok {
			return
		}
		var req SetDiscountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svcs.Billing.SetDiscount(
			c.Request.Context(),
			bookingID,
			req.DiscountPct,
			actorID,
		); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Grouped booking report
// @Param    from     query  string  true  "RFC3339 start"
// @Param    to       query  string  true  "RFC3339 end"
// @Param    group_by query  string  true  "status | guest | unit"
// @Success  200 {object} domain.Report
// @Failure  400 {object} ErrorResponse
// @Router   /reports [get]
func handleReport(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		rng, ok := parseRangeQuery(c)
		if !ok {
			return
		}
		by := domain.GroupBy(c.DefaultQuery("group_by", string(domain.GroupByStatus)))

		rep, err := svcs.Report.Aggregate(c.Request.Context(), rng.Starts, rng.Ends, by)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 30s
		writeJSONWithCache(c, http.StatusOK, rep, "public, max-age=30", true)
	}
}

// @Summary  Create resource
// @Param    req body  CreateResourceRequest true "payload"
// @Success  201 {object} CreateResourceResponse
// @Router   /admin/resources [post]
func handleCreateResource(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateResourceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Catalog.CreateResource(c.Request.Context(), &domain.Resource{
			Type:             domain.ResourceType(req.Type),
			Name:             req.Name,
			PriceCents:       req.PriceCents,
			PriceUnit:        domain.PriceUnit(req.PriceUnit),
			Currency:         req.Currency,
			MaxGuestsPerUnit: req.MaxGuestsPerUnit,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateResourceResponse{ResourceID: id})
	}
}

// @Summary  Batch create units
// @Param    id  path  int  true  "Resource ID"
// @Param    req body  BatchCreateUnitsRequest true "payload"
// @Success  201 {object} map[string]int
// @Router   /admin/resources/{id}/units [post]
func handleCreateUnits(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		resourceID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req BatchCreateUnitsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svcs.Catalog.BatchCreateUnits(
			c.Request.Context(),
			resourceID,
			req.Names,
		); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"created": len(req.Names)})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name+" (uuid)")
		return uuid.Nil, false
	}
	return id, true
}

// parseActor reads the acting user id from X-Actor-ID. The identity
// collaborator in front of this service sets the header.
func parseActor(c *gin.Context) (int64, bool) {
	s := strings.TrimSpace(c.GetHeader("X-Actor-ID"))
	if s == "" {
		badRequest(c, "missing X-Actor-ID")
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid X-Actor-ID")
		return 0, false
	}
	return v, true
}

func parseRangeQuery(c *gin.Context) (domain.Range, bool) {
	from, err := parseRFC3339(c.Query("from"))
	if err != nil {
		badRequest(c, "invalid from (RFC3339)")
		return domain.Range{}, false
	}
	to, err := parseRFC3339(c.Query("to"))
	if err != nil {
		badRequest(c, "invalid to (RFC3339)")
		return domain.Range{}, false
	}
	return domain.Range{Starts: from, Ends: to}, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func isRateLimitedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "rate limited")
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// reservation service
	case errors.Is(err, reservation.ErrInsufficientAvailability):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "insufficient availability"})
		return
	case errors.Is(err, reservation.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "invalid status transition"})
		return
	case errors.Is(err, reservation.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid range"})
		return
	case errors.Is(err, reservation.ErrGuestCapacityExceeded):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "guest capacity exceeded"})
		return
	case errors.Is(err, reservation.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "permission denied"})
		return
	case errors.Is(err, reservation.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	case errors.Is(err, reservation.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "resource not found"})
		return

	// availability service
	case errors.Is(err, availability.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid range"})
		return
	case errors.Is(err, availability.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "resource not found"})
		return

	// billing service
	case errors.Is(err, billing.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	case errors.Is(err, billing.ErrBookingFrozen):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking is cancelled; financial records are frozen"})
		return
	case errors.Is(err, billing.ErrInvalidDiscount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "discount must be between 0 and 100"})
		return

	// report service
	case errors.Is(err, report.ErrInvalidGroupBy):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "group_by must be one of status, guest, unit"})
		return
	case errors.Is(err, report.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid range"})
		return

	// catalog service
	case errors.Is(err, catalog.ErrInvalidPricing):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid pricing policy"})
		return
	case errors.Is(err, catalog.ErrResourceConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "resource conflict"})
		return
	case errors.Is(err, catalog.ErrUnitsConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "units conflict"})
		return
	case errors.Is(err, catalog.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "resource not found"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
