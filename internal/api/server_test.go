package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ellsworth/pantry/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Need{}, &models.BasketLine{}, &models.FundingRecord{},
		&models.Event{}, &models.Signup{}, &models.Notice{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	return NewRouter(db), db
}

// do performs a request with helper identity headers and returns the recorder.
func do(t *testing.T, router *gin.Engine, method, path, helperID, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if helperID != "" {
		req.Header.Set(headerHelperID, helperID)
	}
	if role != "" {
		req.Header.Set(headerRole, role)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedNeed(t *testing.T, db *gorm.DB, id, managerID string, quantity int) {
	t.Helper()
	need := models.Need{
		ID:        id,
		ManagerID: managerID,
		Title:     "Canned soup",
		Cost:      decimal.RequireFromString("2.50"),
		Quantity:  quantity,
		Priority:  models.PriorityNormal,
	}
	if err := db.Create(&need).Error; err != nil {
		t.Fatalf("seed need: %v", err)
	}
}

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestMissingHelperHeader_Returns401(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/needs", "", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestManagerRoute_RequiresRole(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/manage/needs", "helper-1", "",
		`{"title":"Rice","cost":"1.00","quantity":5}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestNeedCreateAndList(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/manage/needs", "mgr-1", roleManager,
		`{"title":"Rice 5kg","cost":"4.25","quantity":10,"priority":"high"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var created models.Need
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal created need: %v", err)
	}
	if created.ManagerID != "mgr-1" {
		t.Errorf("ManagerID = %q, want mgr-1", created.ManagerID)
	}

	w = do(t, router, http.MethodGet, "/api/needs", "helper-1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []models.Need
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Rice 5kg" {
		t.Errorf("list = %+v, want the created need", list)
	}
}

func TestNeedCreate_ValidationReturns400(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/manage/needs", "mgr-1", roleManager,
		`{"title":"","cost":"1.00","quantity":5}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestNeedGet_NotFoundReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/needs/need-nope0", "helper-1", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestNeedUpdate_WrongManagerReturns403(t *testing.T) {
	router, db := newTestRouter(t)
	seedNeed(t, db, "need-aaaaa", "mgr-1", 10)

	w := do(t, router, http.MethodPut, "/api/manage/needs/need-aaaaa", "mgr-2", roleManager,
		`{"title":"Hijacked"}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestBasketFlowAndCheckout(t *testing.T) {
	router, db := newTestRouter(t)
	seedNeed(t, db, "need-aaaaa", "mgr-1", 10)

	w := do(t, router, http.MethodPost, "/api/basket", "helper-1", "",
		`{"need_id":"need-aaaaa","quantity":4}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("basket add status = %d, body %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/api/basket", "helper-1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("basket list status = %d", w.Code)
	}
	var totals struct {
		GrandTotal string `json:"grand_total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &totals); err != nil {
		t.Fatalf("unmarshal totals: %v", err)
	}
	if totals.GrandTotal != "10" {
		t.Errorf("grand total = %q, want 10", totals.GrandTotal)
	}

	w = do(t, router, http.MethodPost, "/api/checkout", "helper-1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("checkout status = %d, body %s", w.Code, w.Body.String())
	}
	var result struct {
		Committed []struct {
			Committed int `json:"committed"`
		} `json:"committed"`
		TotalAmount string `json:"total_amount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(result.Committed) != 1 || result.Committed[0].Committed != 4 {
		t.Errorf("committed = %+v, want one line of 4", result.Committed)
	}

	var need models.Need
	if err := db.First(&need, "id = ?", "need-aaaaa").Error; err != nil {
		t.Fatalf("load need: %v", err)
	}
	if need.QuantityFulfilled != 4 {
		t.Errorf("QuantityFulfilled = %d, want 4", need.QuantityFulfilled)
	}
}

func TestCheckout_EmptyBasketReturns409(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/checkout", "helper-1", "", "")
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestBasketAdd_OverCapacityReturns409(t *testing.T) {
	router, db := newTestRouter(t)
	seedNeed(t, db, "need-aaaaa", "mgr-1", 3)

	w := do(t, router, http.MethodPost, "/api/basket", "helper-1", "",
		`{"need_id":"need-aaaaa","quantity":5}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestSignupFlow(t *testing.T) {
	router, db := newTestRouter(t)
	seedNeed(t, db, "need-aaaaa", "mgr-1", 10)

	start := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	w := do(t, router, http.MethodPost, "/api/manage/events", "mgr-1", roleManager,
		`{"need_id":"need-aaaaa","event_type":"delivery","event_start":"`+start+`","volunteer_slots":1}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("event create status = %d, body %s", w.Code, w.Body.String())
	}
	var event models.Event
	if err := json.Unmarshal(w.Body.Bytes(), &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}

	w = do(t, router, http.MethodPost, "/api/events/"+event.ID+"/signup", "helper-1", "", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", w.Code, w.Body.String())
	}
	var first models.Signup
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("unmarshal signup: %v", err)
	}
	if first.Status != models.SignupConfirmed {
		t.Errorf("first signup status = %q, want confirmed", first.Status)
	}

	// Second helper lands on the waitlist.
	w = do(t, router, http.MethodPost, "/api/events/"+event.ID+"/signup", "helper-2", "", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("second signup status = %d", w.Code)
	}
	var second models.Signup
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("unmarshal second signup: %v", err)
	}
	if second.Status != models.SignupWaitlist {
		t.Errorf("second signup status = %q, want waitlist", second.Status)
	}

	// Duplicate signup conflicts.
	w = do(t, router, http.MethodPost, "/api/events/"+event.ID+"/signup", "helper-1", "", "")
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodGet, "/api/events/"+event.ID+"/slots", "helper-1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("slots status = %d", w.Code)
	}
	var slots struct {
		ConfirmedCount int  `json:"confirmed_count"`
		WaitlistCount  int  `json:"waitlist_count"`
		RemainingSlots *int `json:"remaining_slots"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &slots); err != nil {
		t.Fatalf("unmarshal slots: %v", err)
	}
	if slots.ConfirmedCount != 1 || slots.WaitlistCount != 1 {
		t.Errorf("slots = %+v, want 1 confirmed and 1 waitlisted", slots)
	}
	if slots.RemainingSlots == nil || *slots.RemainingSlots != 0 {
		t.Errorf("remaining = %v, want 0", slots.RemainingSlots)
	}

	// Cancelling the confirmed helper promotes the waitlisted one and
	// leaves a promotion notice in their inbox.
	w = do(t, router, http.MethodDelete, "/api/events/"+event.ID+"/signup", "helper-1", "", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("cancel status = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/api/notices", "helper-2", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("notices status = %d", w.Code)
	}
	var inbox []models.Notice
	if err := json.Unmarshal(w.Body.Bytes(), &inbox); err != nil {
		t.Fatalf("unmarshal inbox: %v", err)
	}
	if len(inbox) != 1 || inbox[0].Kind != models.NoticePromotion {
		t.Fatalf("inbox = %+v, want one promotion notice", inbox)
	}

	// Acknowledge clears it from the inbox.
	w = do(t, router, http.MethodPost, "/api/notices/1/ack", "helper-2", "", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("ack status = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/api/notices", "helper-2", "", "")
	var after []models.Notice
	if err := json.Unmarshal(w.Body.Bytes(), &after); err != nil {
		t.Fatalf("unmarshal inbox after ack: %v", err)
	}
	if len(after) != 0 {
		t.Errorf("inbox after ack = %+v, want empty", after)
	}
}

func TestNoticeAck_BadIDReturns400(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/notices/abc/ack", "helper-1", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestNoticeAck_OtherHelpersNoticeReturns404(t *testing.T) {
	router, db := newTestRouter(t)
	n := models.Notice{HelperID: "helper-1", Kind: models.NoticeDrop, Subject: "Dropped"}
	if err := db.Create(&n).Error; err != nil {
		t.Fatalf("create notice: %v", err)
	}

	w := do(t, router, http.MethodPost, "/api/notices/1/ack", "helper-2", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	// Owner still sees it unread.
	w = do(t, router, http.MethodGet, "/api/notices", "helper-1", "", "")
	var inbox []models.Notice
	if err := json.Unmarshal(w.Body.Bytes(), &inbox); err != nil {
		t.Fatalf("unmarshal inbox: %v", err)
	}
	if len(inbox) != 1 {
		t.Errorf("inbox = %d notices, want 1", len(inbox))
	}
}
