package front

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/antispam"
	"github.com/mercato-local/marketplace/internal/config"
	internaldb "github.com/mercato-local/marketplace/internal/db"
	"github.com/mercato-local/marketplace/internal/highlight"
	"github.com/mercato-local/marketplace/internal/models"
	"github.com/mercato-local/marketplace/internal/plans"
	"github.com/mercato-local/marketplace/internal/security"
	"github.com/mercato-local/marketplace/internal/trial"
	"gorm.io/gorm"
)

func newFrontServer(t *testing.T) (*gin.Engine, *gorm.DB, config.JWTConfig) {
	t.Helper()

	conn, errOpen := internaldb.Open("file:" + filepath.Join(t.TempDir(), "front-test.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := internaldb.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	jwtCfg := config.JWTConfig{Secret: "front-test-secret", Expiry: time.Hour}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterFrontRoutes(router, conn, jwtCfg, Deps{
		Engine:    highlight.NewEngine(conn, nil),
		Recorder:  highlight.NewRecorder(conn, antispam.NewManager(nil, nil, nil), nil),
		Trials:    trial.NewManager(conn, nil),
		Evaluator: plans.NewEvaluator(conn, nil),
	})
	return router, conn, jwtCfg
}

func seedSeller(t *testing.T, conn *gorm.DB, jwtCfg config.JWTConfig) (*models.Seller, string) {
	t.Helper()

	seller := models.Seller{
		Email:    "vendor@example.com",
		Name:     "Vendor",
		Password: "hashed-password",
		Active:   true,
	}
	if errCreate := conn.Create(&seller).Error; errCreate != nil {
		t.Fatalf("create seller: %v", errCreate)
	}
	token, errSign := security.SignSellerToken(jwtCfg.Secret, jwtCfg.Expiry, seller.ID)
	if errSign != nil {
		t.Fatalf("sign token: %v", errSign)
	}
	return &seller, token
}

func seedStore(t *testing.T, conn *gorm.DB, sellerID uint64, name string) *models.Store {
	t.Helper()

	store := models.Store{
		SellerID:               sellerID,
		Name:                   name,
		IsOpen:                 true,
		SubscriptionPlan:       models.PlanFreemium,
		SubscriptionStatus:     models.SubscriptionStatusNone,
		HighlightWeight:        1,
		TrialNotificationsSent: []byte("{}"),
	}
	if errCreate := conn.Create(&store).Error; errCreate != nil {
		t.Fatalf("create store %s: %v", name, errCreate)
	}
	return &store
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, errMarshal := json.Marshal(payload)
		if errMarshal != nil {
			t.Fatalf("marshal payload: %v", errMarshal)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateProduct_LimitCheckedAgainstBodyStore(t *testing.T) {
	router, conn, jwtCfg := newFrontServer(t)
	seller, token := seedSeller(t, conn, jwtCfg)

	storeA := seedStore(t, conn, seller.ID, "Empty Store")
	storeB := seedStore(t, conn, seller.ID, "Full Store")

	productCap := plans.LimitsFor(models.PlanFreemium).MaxProducts
	for i := 0; i < productCap; i++ {
		product := models.Product{StoreID: storeB.ID, Name: fmt.Sprintf("item %d", i), IsActive: true}
		if errCreate := conn.Create(&product).Error; errCreate != nil {
			t.Fatalf("seed product %d: %v", i, errCreate)
		}
	}

	// The capped store is named in the body; the seller's first (empty)
	// store must not satisfy the limit check on its behalf.
	rec := doJSON(t, router, http.MethodPost, "/v0/products", token, gin.H{
		"store_id": storeB.ID,
		"name":     "one over the limit",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (%s)", rec.Code, rec.Body.String())
	}
	var denial struct {
		PlanLimitReached bool   `json:"planLimitReached"`
		MaxAllowed       int    `json:"maxAllowed"`
		SuggestedUpgrade string `json:"suggestedUpgrade"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &denial); errDecode != nil {
		t.Fatalf("decode denial: %v", errDecode)
	}
	if !denial.PlanLimitReached {
		t.Fatalf("expected planLimitReached=true, got %s", rec.Body.String())
	}
	if denial.MaxAllowed != productCap {
		t.Fatalf("expected maxAllowed=%d, got %d", productCap, denial.MaxAllowed)
	}
	if denial.SuggestedUpgrade != models.PlanStart {
		t.Fatalf("expected suggestedUpgrade=%q, got %q", models.PlanStart, denial.SuggestedUpgrade)
	}

	var count int64
	if errCount := conn.Model(&models.Product{}).Where("store_id = ?", storeB.ID).Count(&count).Error; errCount != nil {
		t.Fatalf("count products: %v", errCount)
	}
	if count != int64(productCap) {
		t.Fatalf("expected store to stay at %d products, got %d", productCap, count)
	}

	// The empty store still has headroom.
	rec = doJSON(t, router, http.MethodPost, "/v0/products", token, gin.H{
		"store_id": storeA.ID,
		"name":     "first item",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for empty store, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestHomeHighlights_EngineFailureReturns500WithEmptyLayout(t *testing.T) {
	router, conn, _ := newFrontServer(t)

	if errDrop := conn.Migrator().DropTable(&models.HighlightConfiguration{}); errDrop != nil {
		t.Fatalf("drop configurations table: %v", errDrop)
	}

	rec := doJSON(t, router, http.MethodGet, "/v0/home-highlights", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Highlights    map[string]any `json:"highlights"`
		TotalSections int            `json:"total_sections"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode payload: %v", errDecode)
	}
	if payload.Highlights == nil || len(payload.Highlights) != 0 {
		t.Fatalf("expected empty highlights object, got %s", rec.Body.String())
	}
	if payload.TotalSections != 0 {
		t.Fatalf("expected total_sections=0, got %d", payload.TotalSections)
	}
}

func TestConvertTrial_NoActiveTrialReturns404(t *testing.T) {
	router, conn, jwtCfg := newFrontServer(t)
	seller, token := seedSeller(t, conn, jwtCfg)
	store := seedStore(t, conn, seller.ID, "No Trial Store")

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/v0/trial/%d/convert", store.ID), token, gin.H{
		"plan_id":                3,
		"stripe_subscription_id": "sub_123",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for store without an active trial, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestStartTrial_ValidatesPlanID(t *testing.T) {
	router, conn, jwtCfg := newFrontServer(t)
	seller, token := seedSeller(t, conn, jwtCfg)
	store := seedStore(t, conn, seller.ID, "Fresh Store")

	rec := doJSON(t, router, http.MethodPost, "/v0/plans/trial/start", token, gin.H{"plan_id": 99})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown plan_id, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v0/plans/trial/start", token, gin.H{"plan_id": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid plan_id, got %d (%s)", rec.Code, rec.Body.String())
	}
	var refreshed models.Store
	if errFind := conn.First(&refreshed, store.ID).Error; errFind != nil {
		t.Fatalf("reload store: %v", errFind)
	}
	if !refreshed.IsInTrial || !refreshed.TrialUsed {
		t.Fatalf("expected trial active after start, got in_trial=%v used=%v", refreshed.IsInTrial, refreshed.TrialUsed)
	}
}
