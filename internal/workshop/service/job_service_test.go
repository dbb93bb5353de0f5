package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitfantasy/aurum/internal/workshop/entity"
	"github.com/bitfantasy/aurum/internal/workshop/repository"
	"github.com/bitfantasy/aurum/internal/workshop/testutil"
	"gorm.io/gorm"
)

func setupJobServiceTest(t *testing.T) (*gorm.DB, *Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return db, NewServices(repos, nil, nil)
}

func seedOrderWithJob(t *testing.T, db *gorm.DB) (*entity.Order, *entity.Job) {
	t.Helper()
	testutil.SeedTestSKU(t, db, "sku-001", "RG-0001", "钻石戒指", "ring")

	order := &entity.Order{
		ID:        "order-001",
		OrderCode: "O-0007",
		Seq:       7,
		Type:      entity.OrderTypeCustomer,
		Status:    entity.OrderStatusNew,
		CreatedBy: "test-user",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to seed order: %v", err)
	}

	job := &entity.Job{
		ID:           "job-001",
		JobCode:      "J0007-1",
		JobSeq:       1,
		OrderID:      order.ID,
		OrderItemID:  "item-001",
		SKUID:        "sku-001",
		Status:       entity.JobStatusNew,
		CurrentPhase: entity.JobPhaseStone,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to seed job: %v", err)
	}
	return order, job
}

func TestAdvancePhase_Stone(t *testing.T) {
	db, svcs := setupJobServiceTest(t)
	order, job := seedOrderWithJob(t, db)
	ctx := context.Background()

	payload := entity.JSONB{
		"allocations": []interface{}{
			map[string]interface{}{"lot_number": "LOT-88", "weight": 1.2},
			map[string]interface{}{"lot_number": "None"},
		},
	}
	updated, err := svcs.Job.AdvancePhase(ctx, job.ID, "test-user", &AdvancePhaseRequest{
		Phase:   entity.JobPhaseStone,
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}

	if updated.Status != entity.JobStatusStoneSelected {
		t.Fatalf("Expected status stone_selected, got %s", updated.Status)
	}
	if updated.CurrentPhase != entity.JobPhaseDiamond {
		t.Fatalf("Expected current phase diamond, got %s", updated.CurrentPhase)
	}

	// Placeholder "None" allocations are stripped from stored phase data
	var stored entity.Job
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("Failed to reload job: %v", err)
	}
	rows, ok := stored.StoneData["allocations"].([]interface{})
	if !ok {
		t.Fatalf("Expected allocations in stored stone data, got %v", stored.StoneData)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 allocation after stripping None rows, got %d", len(rows))
	}

	// History keeps the full submitted payload, unfiltered
	var entries []entity.JobHistoryEntry
	if err := db.Where("job_id = ?", job.ID).Find(&entries).Error; err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(entries))
	}
	if entries[0].Action != "Completed stone" {
		t.Fatalf("Expected action 'Completed stone', got %q", entries[0].Action)
	}
	if entries[0].CreatedBy != "test-user" {
		t.Fatalf("Expected history created_by test-user, got %q", entries[0].CreatedBy)
	}
	histRows := entries[0].Payload["allocations"].([]interface{})
	if len(histRows) != 2 {
		t.Fatalf("Expected history to keep 2 raw allocations, got %d", len(histRows))
	}

	// Non-new job pulls the order into pending
	var storedOrder entity.Order
	if err := db.First(&storedOrder, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("Failed to reload order: %v", err)
	}
	if storedOrder.Status != entity.OrderStatusPending {
		t.Fatalf("Expected order status pending, got %s", storedOrder.Status)
	}
}

func TestAdvancePhase_FullPipeline(t *testing.T) {
	db, svcs := setupJobServiceTest(t)
	order, job := seedOrderWithJob(t, db)
	ctx := context.Background()

	// Second job on the same order stays untouched
	sibling := &entity.Job{
		ID:           "job-002",
		JobCode:      "J0007-2",
		JobSeq:       2,
		OrderID:      order.ID,
		OrderItemID:  "item-001",
		SKUID:        "sku-001",
		Status:       entity.JobStatusNew,
		CurrentPhase: entity.JobPhaseStone,
	}
	if err := db.Create(sibling).Error; err != nil {
		t.Fatalf("Failed to seed sibling job: %v", err)
	}

	steps := []struct {
		phase      string
		payload    entity.JSONB
		wantStatus string
		wantPhase  string
	}{
		{entity.JobPhaseStone, entity.JSONB{"stone": "ruby"}, entity.JobStatusStoneSelected, entity.JobPhaseDiamond},
		{entity.JobPhaseDiamond, entity.JSONB{"carat": 0.5}, entity.JobStatusDiamondSelected, entity.JobPhaseManufacturer},
		{entity.JobPhaseManufacturer, entity.JSONB{"factory": "FAC-01"}, entity.JobStatusSentToManufacturer, entity.JobPhaseQualityCheck},
		{entity.JobPhaseQualityCheck, entity.JSONB{"passed": true}, entity.JobStatusQCPassed, entity.JobPhaseComplete},
		{entity.JobPhaseComplete, entity.JSONB{}, entity.JobStatusCompleted, entity.JobPhaseComplete},
	}

	for _, step := range steps {
		updated, err := svcs.Job.AdvancePhase(ctx, job.ID, "test-user", &AdvancePhaseRequest{
			Phase:   step.phase,
			Payload: step.payload,
		})
		if err != nil {
			t.Fatalf("AdvancePhase(%s) failed: %v", step.phase, err)
		}
		if updated.Status != step.wantStatus {
			t.Fatalf("Phase %s: expected status %s, got %s", step.phase, step.wantStatus, updated.Status)
		}
		if updated.CurrentPhase != step.wantPhase {
			t.Fatalf("Phase %s: expected next phase %s, got %s", step.phase, step.wantPhase, updated.CurrentPhase)
		}
	}

	// One completed job plus one untouched sibling keeps the order pending
	var storedOrder entity.Order
	if err := db.First(&storedOrder, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("Failed to reload order: %v", err)
	}
	if storedOrder.Status != entity.OrderStatusPending {
		t.Fatalf("Expected order pending with incomplete sibling, got %s", storedOrder.Status)
	}

	// Complete the sibling; order converges to completed
	for _, step := range steps {
		if _, err := svcs.Job.AdvancePhase(ctx, sibling.ID, "test-user", &AdvancePhaseRequest{
			Phase:   step.phase,
			Payload: step.payload,
		}); err != nil {
			t.Fatalf("AdvancePhase(%s) on sibling failed: %v", step.phase, err)
		}
	}
	if err := db.First(&storedOrder, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("Failed to reload order: %v", err)
	}
	if storedOrder.Status != entity.OrderStatusCompleted {
		t.Fatalf("Expected order completed, got %s", storedOrder.Status)
	}
}

func TestAdvancePhase_QCFailReentry(t *testing.T) {
	db, svcs := setupJobServiceTest(t)
	_, job := seedOrderWithJob(t, db)
	ctx := context.Background()

	advance := func(phase string, payload entity.JSONB) *entity.Job {
		t.Helper()
		updated, err := svcs.Job.AdvancePhase(ctx, job.ID, "test-user", &AdvancePhaseRequest{
			Phase:   phase,
			Payload: payload,
		})
		if err != nil {
			t.Fatalf("AdvancePhase(%s) failed: %v", phase, err)
		}
		return updated
	}

	advance(entity.JobPhaseStone, entity.JSONB{})
	advance(entity.JobPhaseDiamond, entity.JSONB{})
	advance(entity.JobPhaseManufacturer, entity.JSONB{})

	// QC failure returns the job to the manufacturer phase
	failed := advance(entity.JobPhaseQualityCheck, entity.JSONB{"passed": false, "reason": "刮痕"})
	if failed.Status != entity.JobStatusQCFailed {
		t.Fatalf("Expected status qc_failed, got %s", failed.Status)
	}
	if failed.CurrentPhase != entity.JobPhaseManufacturer {
		t.Fatalf("Expected phase manufacturer after QC fail, got %s", failed.CurrentPhase)
	}

	// No rework cap: the loop can repeat and eventually pass
	advance(entity.JobPhaseManufacturer, entity.JSONB{"factory": "FAC-01"})
	failed = advance(entity.JobPhaseQualityCheck, entity.JSONB{"passed": false})
	if failed.Status != entity.JobStatusQCFailed {
		t.Fatalf("Expected status qc_failed on second fail, got %s", failed.Status)
	}

	advance(entity.JobPhaseManufacturer, entity.JSONB{"factory": "FAC-01"})
	passed := advance(entity.JobPhaseQualityCheck, entity.JSONB{"passed": true})
	if passed.Status != entity.JobStatusQCPassed {
		t.Fatalf("Expected status qc_passed, got %s", passed.Status)
	}
	if passed.CurrentPhase != entity.JobPhaseComplete {
		t.Fatalf("Expected phase complete after QC pass, got %s", passed.CurrentPhase)
	}

	// Every submission, including failed QC rounds, is on the history trail
	var count int64
	if err := db.Model(&entity.JobHistoryEntry{}).Where("job_id = ?", job.ID).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count history: %v", err)
	}
	if count != 8 {
		t.Fatalf("Expected 8 history entries, got %d", count)
	}
}

func TestAdvancePhase_QCPayloadMissing(t *testing.T) {
	db, svcs := setupJobServiceTest(t)
	_, job := seedOrderWithJob(t, db)
	ctx := context.Background()

	for _, phase := range []string{entity.JobPhaseStone, entity.JobPhaseDiamond, entity.JobPhaseManufacturer} {
		if _, err := svcs.Job.AdvancePhase(ctx, job.ID, "test-user", &AdvancePhaseRequest{
			Phase:   phase,
			Payload: entity.JSONB{},
		}); err != nil {
			t.Fatalf("AdvancePhase(%s) failed: %v", phase, err)
		}
	}

	_, err := svcs.Job.AdvancePhase(ctx, job.ID, "test-user", &AdvancePhaseRequest{
		Phase:   entity.JobPhaseQualityCheck,
		Payload: entity.JSONB{"remarks": "missing verdict"},
	})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Expected ErrValidationFailed, got %v", err)
	}

	// Rejected submission leaves the job untouched
	var stored entity.Job
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("Failed to reload job: %v", err)
	}
	if stored.Status != entity.JobStatusSentToManufacturer {
		t.Fatalf("Expected status unchanged, got %s", stored.Status)
	}
	if stored.CurrentPhase != entity.JobPhaseQualityCheck {
		t.Fatalf("Expected phase unchanged, got %s", stored.CurrentPhase)
	}
	if stored.QCData != nil {
		t.Fatalf("Expected no QC data persisted, got %v", stored.QCData)
	}
}

func TestAdvancePhase_InvalidPhase(t *testing.T) {
	db, svcs := setupJobServiceTest(t)
	_, job := seedOrderWithJob(t, db)
	ctx := context.Background()

	_, err := svcs.Job.AdvancePhase(ctx, job.ID, "test-user", &AdvancePhaseRequest{
		Phase:   "polishing",
		Payload: entity.JSONB{},
	})
	if !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("Expected ErrInvalidPhase, got %v", err)
	}

	var stored entity.Job
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("Failed to reload job: %v", err)
	}
	if stored.Status != entity.JobStatusNew || stored.CurrentPhase != entity.JobPhaseStone {
		t.Fatalf("Expected job unchanged, got status=%s phase=%s", stored.Status, stored.CurrentPhase)
	}

	var count int64
	if err := db.Model(&entity.JobHistoryEntry{}).Where("job_id = ?", job.ID).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count history: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected no history for rejected submission, got %d entries", count)
	}
}

func TestAdvancePhase_PhaseConflict(t *testing.T) {
	db, svcs := setupJobServiceTest(t)
	_, job := seedOrderWithJob(t, db)
	ctx := context.Background()

	// Job is waiting at stone; skipping ahead to diamond is rejected
	_, err := svcs.Job.AdvancePhase(ctx, job.ID, "test-user", &AdvancePhaseRequest{
		Phase:   entity.JobPhaseDiamond,
		Payload: entity.JSONB{},
	})
	if !errors.Is(err, ErrPhaseConflict) {
		t.Fatalf("Expected ErrPhaseConflict, got %v", err)
	}

	// Re-submitting an already completed phase is also rejected
	if _, err := svcs.Job.AdvancePhase(ctx, job.ID, "test-user", &AdvancePhaseRequest{
		Phase:   entity.JobPhaseStone,
		Payload: entity.JSONB{},
	}); err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}
	_, err = svcs.Job.AdvancePhase(ctx, job.ID, "test-user", &AdvancePhaseRequest{
		Phase:   entity.JobPhaseStone,
		Payload: entity.JSONB{},
	})
	if !errors.Is(err, ErrPhaseConflict) {
		t.Fatalf("Expected ErrPhaseConflict on duplicate submission, got %v", err)
	}
}

func TestAdvancePhase_NotFound(t *testing.T) {
	_, svcs := setupJobServiceTest(t)

	_, err := svcs.Job.AdvancePhase(context.Background(), "no-such-job", "test-user", &AdvancePhaseRequest{
		Phase:   entity.JobPhaseStone,
		Payload: entity.JSONB{},
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestAggregateStatus(t *testing.T) {
	job := func(status string) entity.Job {
		return entity.Job{Status: status}
	}

	tests := []struct {
		name string
		jobs []entity.Job
		want string
	}{
		{"empty order is new, not completed", nil, entity.OrderStatusNew},
		{"all new", []entity.Job{job(entity.JobStatusNew), job(entity.JobStatusNew)}, entity.OrderStatusNew},
		{"one in progress", []entity.Job{job(entity.JobStatusNew), job(entity.JobStatusStoneSelected)}, entity.OrderStatusPending},
		{"qc failed is still pending", []entity.Job{job(entity.JobStatusQCFailed)}, entity.OrderStatusPending},
		{"some completed", []entity.Job{job(entity.JobStatusCompleted), job(entity.JobStatusNew)}, entity.OrderStatusPending},
		{"all completed", []entity.Job{job(entity.JobStatusCompleted), job(entity.JobStatusCompleted)}, entity.OrderStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := aggregateStatus(tt.jobs); got != tt.want {
				t.Fatalf("aggregateStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecomputeOrderStatus_Idempotent(t *testing.T) {
	db, svcs := setupJobServiceTest(t)
	order, _ := seedOrderWithJob(t, db)
	ctx := context.Background()

	first, err := svcs.Job.RecomputeOrderStatus(ctx, order.ID)
	if err != nil {
		t.Fatalf("RecomputeOrderStatus failed: %v", err)
	}
	second, err := svcs.Job.RecomputeOrderStatus(ctx, order.ID)
	if err != nil {
		t.Fatalf("RecomputeOrderStatus failed: %v", err)
	}
	if first != second {
		t.Fatalf("Expected idempotent recompute, got %s then %s", first, second)
	}
	if first != entity.OrderStatusNew {
		t.Fatalf("Expected new for an order with only new jobs, got %s", first)
	}
}

func TestStripNoneAllocations(t *testing.T) {
	payload := entity.JSONB{
		"allocations": []interface{}{
			map[string]interface{}{"lot_number": "LOT-1"},
			map[string]interface{}{"lot_number": "None"},
			map[string]interface{}{"lot_number": "LOT-2"},
		},
		"remarks": "keep me",
	}

	cleaned := stripNoneAllocations(payload)

	rows := cleaned["allocations"].([]interface{})
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows after stripping, got %d", len(rows))
	}
	if cleaned["remarks"] != "keep me" {
		t.Fatalf("Expected unrelated keys preserved, got %v", cleaned["remarks"])
	}

	// Original payload is not mutated
	if len(payload["allocations"].([]interface{})) != 3 {
		t.Fatalf("Expected input payload untouched")
	}

	if got := stripNoneAllocations(nil); got != nil {
		t.Fatalf("Expected nil passthrough, got %v", got)
	}

	noAlloc := stripNoneAllocations(entity.JSONB{"remarks": "x"})
	if noAlloc["remarks"] != "x" {
		t.Fatalf("Expected payload without allocations preserved, got %v", noAlloc)
	}
}
