package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-p2p/internal/p2p/entity"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/repository"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/service"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/testutil"
)

func setupMaterialTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	svc := service.NewMaterialService(repos.Material)
	h := NewMaterialHandler(svc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	materials := api.Group("/materials")
	materials.GET("", h.ListMaterials)
	materials.POST("", h.CreateMaterial)
	materials.GET("/:id", h.GetMaterial)
	materials.PUT("/:id", h.UpdateMaterial)
	materials.DELETE("/:id", h.DeleteMaterial)
	materials.POST("/:id/activate", h.ActivateMaterial)
	materials.POST("/:id/deactivate", h.DeactivateMaterial)
	materials.POST("/:id/deprecate", h.DeprecateMaterial)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// TestMaterialCreateAndGet tests creating a material and fetching it back
func TestMaterialCreateAndGet(t *testing.T) {
	env := setupMaterialTest(t)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"name":      "不锈钢螺丝 M3x8",
		"type":      "raw",
		"base_unit": "pcs",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/materials", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != "active" {
		t.Fatalf("expected status active, got %v", data["status"])
	}
	code := data["code"].(string)
	if code == "" {
		t.Fatalf("expected generated code, got empty")
	}
	id := data["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/materials/"+id, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	if data["name"] != "不锈钢螺丝 M3x8" {
		t.Fatalf("unexpected name: %v", data["name"])
	}
}

// TestMaterialInvalidType tests that unknown material types are rejected
func TestMaterialInvalidType(t *testing.T) {
	env := setupMaterialTest(t)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"name": "无效物料",
		"type": "virtual",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/materials", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

// TestMaterialDuplicateCode tests code uniqueness
func TestMaterialDuplicateCode(t *testing.T) {
	env := setupMaterialTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedMaterial(t, env.DB, "MAT-2026-0001", "已有物料", entity.MaterialStatusActive)

	body := map[string]interface{}{
		"code": "MAT-2026-0001",
		"name": "重复编码物料",
		"type": "raw",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/materials", body, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate code, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40900 {
		t.Fatalf("expected business code 40900, got %v", resp["code"])
	}
}

// TestMaterialStatusTransitions tests the activate/deactivate/deprecate状态机
func TestMaterialStatusTransitions(t *testing.T) {
	env := setupMaterialTest(t)
	token := testutil.DefaultTestToken()

	m := testutil.SeedMaterial(t, env.DB, "MAT-2026-0010", "流转物料", entity.MaterialStatusActive)

	// active → inactive
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/materials/"+m.ID+"/deactivate", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["data"].(map[string]interface{})["status"] != "inactive" {
		t.Fatalf("expected inactive after deactivate")
	}

	// inactive → active
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/materials/"+m.ID+"/activate", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// active → deprecated
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/materials/"+m.ID+"/deprecate", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("deprecate: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// deprecated是终态，不能再启用
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/materials/"+m.ID+"/activate", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 reactivating deprecated material, got %d", w.Code)
	}
}

// TestMaterialUpdateDeprecatedRejected tests that deprecated materials are read-only
func TestMaterialUpdateDeprecatedRejected(t *testing.T) {
	env := setupMaterialTest(t)
	token := testutil.DefaultTestToken()

	m := testutil.SeedMaterial(t, env.DB, "MAT-2026-0020", "废弃物料", entity.MaterialStatusDeprecated)

	body := map[string]interface{}{"name": "改名"}
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/materials/"+m.ID, body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 updating deprecated material, got %d", w.Code)
	}
}

// TestMaterialSoftDelete tests that delete marks the material deprecated and hides it
func TestMaterialSoftDelete(t *testing.T) {
	env := setupMaterialTest(t)
	token := testutil.DefaultTestToken()

	m := testutil.SeedMaterial(t, env.DB, "MAT-2026-0030", "待删除物料", entity.MaterialStatusActive)

	w := testutil.DoRequest(env.Router, http.MethodDelete, "/api/v1/materials/"+m.ID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 软删除后详情查不到
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/materials/"+m.ID, nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}

	// 数据仍在库中，状态为deprecated且带删除标记
	var raw entity.Material
	if err := env.DB.Unscoped().Where("id = ?", m.ID).First(&raw).Error; err != nil {
		t.Fatalf("material row should survive soft delete: %v", err)
	}
	if raw.Status != entity.MaterialStatusDeprecated {
		t.Fatalf("expected deprecated after soft delete, got %s", raw.Status)
	}
	if raw.DeletedAt == nil {
		t.Fatalf("expected deleted_at to be set")
	}
}

// TestMaterialListFilters tests keyword and status filters
func TestMaterialListFilters(t *testing.T) {
	env := setupMaterialTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedMaterial(t, env.DB, "MAT-2026-0040", "铝合金外壳", entity.MaterialStatusActive)
	testutil.SeedMaterial(t, env.DB, "MAT-2026-0041", "塑料外壳", entity.MaterialStatusInactive)
	testutil.SeedMaterial(t, env.DB, "MAT-2026-0042", "包装纸箱", entity.MaterialStatusActive)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/materials?keyword=外壳", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 matches for keyword, got %d", len(items))
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/materials?status=inactive", nil, token)
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	items = data["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 inactive material, got %d", len(items))
	}
}

// TestMaterialRequiresAuth tests that requests without a token are rejected
func TestMaterialRequiresAuth(t *testing.T) {
	env := setupMaterialTest(t)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/materials", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}
