package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ellsworth/pantry/internal/basket"
	"github.com/ellsworth/pantry/internal/checkout"
	"github.com/ellsworth/pantry/internal/events"
	"github.com/ellsworth/pantry/internal/needs"
	"github.com/ellsworth/pantry/internal/notice"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	headerHelperID = "X-Helper-ID"
	headerRole     = "X-Role"

	roleManager = "manager"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB) {
	helper := router.Group("/api", requireHelper())
	{
		helper.GET("/needs", handleNeedList(db))
		helper.GET("/needs/:id", handleNeedGet(db))
		helper.POST("/needs/:id/request", handleNeedRequest(db))

		helper.GET("/basket", handleBasketList(db))
		helper.POST("/basket", handleBasketAdd(db))
		helper.PUT("/basket/:lineID", handleBasketUpdate(db))
		helper.DELETE("/basket/:lineID", handleBasketRemove(db))
		helper.DELETE("/basket", handleBasketClear(db))

		helper.POST("/checkout", handleCheckout(db))

		helper.GET("/events", handleEventList(db))
		helper.GET("/events/:id/slots", handleEventSlots(db))
		helper.POST("/events/:id/signup", handleSignup(db))
		helper.DELETE("/events/:id/signup", handleCancelSignup(db))

		helper.GET("/notices", handleNoticeInbox(db))
		helper.POST("/notices/:id/ack", handleNoticeAck(db))
	}

	manage := router.Group("/api/manage", requireHelper(), requireManager())
	{
		manage.POST("/needs", handleNeedCreate(db))
		manage.PUT("/needs/:id", handleNeedUpdate(db))
		manage.DELETE("/needs/:id", handleNeedDelete(db))

		manage.POST("/events", handleEventCreate(db))
		manage.PUT("/events/:id", handleEventUpdate(db))
		manage.DELETE("/events/:id", handleEventDelete(db))
	}
}

// requireHelper rejects requests that do not declare a helper identity.
func requireHelper() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(headerHelperID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "missing " + headerHelperID + " header"})
			return
		}
		c.Next()
	}
}

// requireManager gates the management routes on the declared role.
func requireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(headerRole) != roleManager {
			c.AbortWithStatusJSON(http.StatusForbidden,
				gin.H{"error": "manager role required"})
			return
		}
		c.Next()
	}
}

func helperID(c *gin.Context) string {
	return c.GetHeader(headerHelperID)
}

// fail maps domain sentinel errors onto HTTP statuses and writes the
// standard error envelope. Non-sentinel errors from the domain layer are
// input validation failures, so they map to 400.
func fail(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, needs.ErrNotFound),
		errors.Is(err, events.ErrNotFound),
		errors.Is(err, basket.ErrNotFound),
		errors.Is(err, notice.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, needs.ErrNotOwner),
		errors.Is(err, events.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, basket.ErrInvalidQuantity),
		errors.Is(err, basket.ErrCapacityExceeded),
		errors.Is(err, checkout.ErrEmptyBasket),
		errors.Is(err, events.ErrAlreadySignedUp):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// --- Needs ---

func handleNeedList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := needs.ListFilters{
			Priority:  c.Query("priority"),
			BundleTag: c.Query("bundle_tag"),
			OpenOnly:  c.Query("open") == "true",
		}
		if v := c.Query("perishable"); v != "" {
			perishable := v == "true"
			filters.Perishable = &perishable
		}
		list, err := needs.List(db, filters, time.Now())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func handleNeedGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		need, err := needs.Get(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, need)
	}
}

func handleNeedRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := needs.RecordRequest(db, c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type needCreateRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Cost         decimal.Decimal `json:"cost"`
	Quantity     int             `json:"quantity"`
	Priority     string          `json:"priority"`
	NeededBy     *time.Time      `json:"needed_by"`
	IsPerishable bool            `json:"is_perishable"`
	BundleTag    string          `json:"bundle_tag"`
}

func handleNeedCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req needCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		need, err := needs.Create(db, helperID(c), needs.CreateOpts{
			Title:        req.Title,
			Description:  req.Description,
			Cost:         req.Cost,
			Quantity:     req.Quantity,
			Priority:     req.Priority,
			NeededBy:     req.NeededBy,
			IsPerishable: req.IsPerishable,
			BundleTag:    req.BundleTag,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, need)
	}
}

type needUpdateRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Cost         *decimal.Decimal `json:"cost"`
	Quantity     *int             `json:"quantity"`
	Priority     *string          `json:"priority"`
	NeededBy     *time.Time       `json:"needed_by"`
	IsPerishable *bool            `json:"is_perishable"`
	BundleTag    *string          `json:"bundle_tag"`
}

func handleNeedUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req needUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		need, err := needs.Update(db, helperID(c), c.Param("id"), needs.UpdateOpts{
			Title:        req.Title,
			Description:  req.Description,
			Cost:         req.Cost,
			Quantity:     req.Quantity,
			Priority:     req.Priority,
			NeededBy:     req.NeededBy,
			IsPerishable: req.IsPerishable,
			BundleTag:    req.BundleTag,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, need)
	}
}

func handleNeedDelete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := needs.Delete(db, helperID(c), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Basket ---

func handleBasketList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		totals, err := basket.ListWithTotals(db, helperID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, totals)
	}
}

type basketAddRequest struct {
	NeedID   string `json:"need_id"`
	Quantity int    `json:"quantity"`
}

func handleBasketAdd(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req basketAddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		line, err := basket.AddOrMerge(db, helperID(c), req.NeedID, req.Quantity)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, line)
	}
}

type basketUpdateRequest struct {
	Quantity int `json:"quantity"`
}

func handleBasketUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req basketUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		line, err := basket.UpdateQuantity(db, c.Param("lineID"), req.Quantity)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, line)
	}
}

func handleBasketRemove(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := basket.Remove(db, c.Param("lineID")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleBasketClear(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := basket.Clear(db, helperID(c)); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Checkout ---

func handleCheckout(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := checkout.Checkout(db, helperID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// --- Events ---

func handleEventList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := events.List(db, c.Query("need_id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func handleEventSlots(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		slots, err := events.ListForEvent(db, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, slots)
	}
}

func handleSignup(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		signup, err := events.Signup(db, c.Param("id"), helperID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, signup)
	}
}

func handleCancelSignup(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := events.Cancel(db, c.Param("id"), helperID(c)); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type eventCreateRequest struct {
	NeedID         string     `json:"need_id"`
	EventType      string     `json:"event_type"`
	EventStart     time.Time  `json:"event_start"`
	EventEnd       *time.Time `json:"event_end"`
	Location       string     `json:"location"`
	VolunteerSlots int        `json:"volunteer_slots"`
	Notes          string     `json:"notes"`
}

func handleEventCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req eventCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		event, err := events.Create(db, helperID(c), events.CreateOpts{
			NeedID:         req.NeedID,
			EventType:      req.EventType,
			EventStart:     req.EventStart,
			EventEnd:       req.EventEnd,
			Location:       req.Location,
			VolunteerSlots: req.VolunteerSlots,
			Notes:          req.Notes,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, event)
	}
}

type eventUpdateRequest struct {
	EventType      *string    `json:"event_type"`
	EventStart     *time.Time `json:"event_start"`
	EventEnd       *time.Time `json:"event_end"`
	Location       *string    `json:"location"`
	VolunteerSlots *int       `json:"volunteer_slots"`
	Notes          *string    `json:"notes"`
}

func handleEventUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req eventUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		event, err := events.Update(db, helperID(c), c.Param("id"), events.UpdateOpts{
			EventType:      req.EventType,
			EventStart:     req.EventStart,
			EventEnd:       req.EventEnd,
			Location:       req.Location,
			VolunteerSlots: req.VolunteerSlots,
			Notes:          req.Notes,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

func handleEventDelete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := events.Delete(db, helperID(c), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Notices ---

func handleNoticeInbox(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		inbox, err := notice.Inbox(db, helperID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, inbox)
	}
}

func handleNoticeAck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseNoticeID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notice id"})
			return
		}
		if err := notice.Acknowledge(db, helperID(c), id); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func parseNoticeID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
