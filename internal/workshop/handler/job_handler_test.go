package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/aurum/internal/workshop/entity"
	"github.com/bitfantasy/aurum/internal/workshop/repository"
	"github.com/bitfantasy/aurum/internal/workshop/service"
	"github.com/bitfantasy/aurum/internal/workshop/testutil"
)

func setupWorkshopTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	svcs := service.NewServices(repos, nil, nil)
	handlers := NewHandlers(svcs)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/orders", handlers.Order.CreateOrder)
	api.GET("/orders/:id", handlers.Order.GetOrder)
	api.POST("/orders/:id/jobs", handlers.Order.CreateJob)
	api.GET("/jobs/:id", handlers.Job.GetJob)
	api.GET("/jobs/:id/history", handlers.Job.GetJobHistory)
	api.POST("/jobs/:id/advance", handlers.Job.AdvancePhase)
	api.GET("/skus/next-number", handlers.SKU.NextNumber)
	api.GET("/skus/next-number/preview", handlers.SKU.PeekNextNumber)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedJobTestData(t *testing.T, env *testutil.TestEnv) (orderID, jobID string) {
	t.Helper()
	testutil.SeedTestSKU(t, env.DB, "sku-h-001", "RG-0001", "钻石戒指", "ring")

	order := &entity.Order{
		ID:        "order-h-001",
		OrderCode: "O-0001",
		Seq:       1,
		Type:      "customer",
		Status:    entity.OrderStatusNew,
		CreatedBy: "test-user-001",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := env.DB.Create(order).Error; err != nil {
		t.Fatalf("Failed to seed order: %v", err)
	}

	job := &entity.Job{
		ID:           "job-h-001",
		JobCode:      "J0001-1",
		JobSeq:       1,
		OrderID:      order.ID,
		OrderItemID:  "item-h-001",
		SKUID:        "sku-h-001",
		Status:       entity.JobStatusNew,
		CurrentPhase: entity.JobPhaseStone,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := env.DB.Create(job).Error; err != nil {
		t.Fatalf("Failed to seed job: %v", err)
	}
	return order.ID, job.ID
}

func TestAdvancePhaseEndpoint(t *testing.T) {
	env := setupWorkshopTest(t)
	_, jobID := seedJobTestData(t, env)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"phase": "stone",
		"payload": map[string]interface{}{
			"allocations": []map[string]interface{}{
				{"lot_number": "LOT-88", "weight": 1.2},
			},
		},
	}
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/jobs/"+jobID+"/advance", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != entity.JobStatusStoneSelected {
		t.Fatalf("Expected status stone_selected, got %v", data["status"])
	}
	if data["current_phase"] != entity.JobPhaseDiamond {
		t.Fatalf("Expected current_phase diamond, got %v", data["current_phase"])
	}

	// History records the submission with the authenticated user
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/jobs/"+jobID+"/history", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for history, got %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	entries := resp["data"].([]interface{})
	if len(entries) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(entries))
	}
	entry := entries[0].(map[string]interface{})
	if entry["created_by"] != "test-user-001" {
		t.Fatalf("Expected created_by from token, got %v", entry["created_by"])
	}
}

func TestAdvancePhaseEndpoint_ErrorMapping(t *testing.T) {
	env := setupWorkshopTest(t)
	_, jobID := seedJobTestData(t, env)
	token := testutil.DefaultTestToken()

	tests := []struct {
		name     string
		jobID    string
		body     map[string]interface{}
		wantHTTP int
		wantCode float64
	}{
		{
			name:     "unknown job",
			jobID:    "no-such-job",
			body:     map[string]interface{}{"phase": "stone"},
			wantHTTP: http.StatusNotFound,
			wantCode: 40400,
		},
		{
			name:     "unsupported phase",
			jobID:    jobID,
			body:     map[string]interface{}{"phase": "polishing"},
			wantHTTP: http.StatusBadRequest,
			wantCode: 40000,
		},
		{
			name:     "phase ahead of job progress",
			jobID:    jobID,
			body:     map[string]interface{}{"phase": "diamond"},
			wantHTTP: http.StatusConflict,
			wantCode: 40900,
		},
		{
			name:     "missing phase field",
			jobID:    jobID,
			body:     map[string]interface{}{"payload": map[string]interface{}{}},
			wantHTTP: http.StatusBadRequest,
			wantCode: 40000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.DoRequest(env.Router, "POST", "/api/v1/jobs/"+tt.jobID+"/advance", tt.body, token)
			if w.Code != tt.wantHTTP {
				t.Fatalf("Expected HTTP %d, got %d: %s", tt.wantHTTP, w.Code, w.Body.String())
			}
			resp := testutil.ParseResponse(w)
			if resp["code"] != tt.wantCode {
				t.Fatalf("Expected code %v, got %v", tt.wantCode, resp["code"])
			}
		})
	}
}

func TestAdvancePhaseEndpoint_QCVerdictRequired(t *testing.T) {
	env := setupWorkshopTest(t)
	_, jobID := seedJobTestData(t, env)
	token := testutil.DefaultTestToken()

	for _, phase := range []string{"stone", "diamond", "manufacturer"} {
		w := testutil.DoRequest(env.Router, "POST", "/api/v1/jobs/"+jobID+"/advance",
			map[string]interface{}{"phase": phase}, token)
		if w.Code != http.StatusOK {
			t.Fatalf("Advance %s failed with %d: %s", phase, w.Code, w.Body.String())
		}
	}

	// quality_check without a pass/fail verdict is a validation error
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/jobs/"+jobID+"/advance",
		map[string]interface{}{"phase": "quality_check", "payload": map[string]interface{}{}}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"] != float64(40000) {
		t.Fatalf("Expected code 40000, got %v", resp["code"])
	}
}

func TestAdvancePhaseEndpoint_Unauthorized(t *testing.T) {
	env := setupWorkshopTest(t)
	_, jobID := seedJobTestData(t, env)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/jobs/"+jobID+"/advance",
		map[string]interface{}{"phase": "stone"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", w.Code)
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	env := setupWorkshopTest(t)
	testutil.SeedTestSKU(t, env.DB, "sku-h-002", "NL-0001", "珍珠项链", "necklace")
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"type": "stock",
		"items": []map[string]interface{}{
			{"sku_id": "sku-h-002", "quantity": 2},
		},
	}
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/orders", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["jobs_created"] != float64(2) {
		t.Fatalf("Expected 2 jobs created, got %v", data["jobs_created"])
	}
	order := data["order"].(map[string]interface{})
	if order["order_code"] != "O-0001" {
		t.Fatalf("Expected order code O-0001, got %v", order["order_code"])
	}
	if order["created_by"] != "test-user-001" {
		t.Fatalf("Expected created_by from token, got %v", order["created_by"])
	}
}

func TestCreateOrderEndpoint_UnknownSKU(t *testing.T) {
	env := setupWorkshopTest(t)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"type": "stock",
		"items": []map[string]interface{}{
			{"sku_id": "no-such-sku", "quantity": 1},
		},
	}
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/orders", body, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}
