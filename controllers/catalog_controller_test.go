package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/management-backend/controllers"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/services"
	"go.uber.org/zap"
)

// ---- concrete mock implementing controllers.Catalog ----

type stubCatalog struct {
	product    *models.Product
	products   []models.Product
	total      int64
	err        error
	activeOnly bool
	updated    *models.UpdateProductRequest
}

func (s *stubCatalog) CreateProduct(_ context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Product{ID: 1, Name: req.Name, SKU: req.SKU, IsActive: true}, nil
}

func (s *stubCatalog) GetProduct(context.Context, uint) (*models.Product, error) {
	return s.product, s.err
}

func (s *stubCatalog) ListProducts(_ context.Context, _, _ int, activeOnly bool) ([]models.Product, int64, error) {
	s.activeOnly = activeOnly
	return s.products, s.total, s.err
}

func (s *stubCatalog) UpdateProduct(_ context.Context, _ uint, req *models.UpdateProductRequest) (*models.Product, error) {
	s.updated = req
	return s.product, s.err
}

func (s *stubCatalog) DeactivateProduct(context.Context, uint) (*models.Product, error) {
	return s.product, s.err
}

func (s *stubCatalog) CreateLocation(_ context.Context, req *models.CreateLocationRequest) (*models.Location, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Location{ID: 3, Name: req.Name, IsActive: true}, nil
}

func (s *stubCatalog) ListLocations(context.Context) ([]models.Location, error) {
	return []models.Location{{ID: 3, Name: "Main"}}, s.err
}

func setupCatalogRouter(catalog controllers.Catalog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cc := controllers.NewCatalogController(catalog, zap.NewNop())

	r.GET("/inventory/products", cc.ListProducts)
	r.POST("/inventory/products", cc.CreateProduct)
	r.GET("/inventory/products/:id", cc.GetProduct)
	r.PATCH("/inventory/products/:id", cc.UpdateProduct)
	r.DELETE("/inventory/products/:id", cc.DeactivateProduct)
	r.GET("/inventory/locations", cc.ListLocations)
	r.POST("/inventory/locations", cc.CreateLocation)
	return r
}

func TestCreateProduct_Success(t *testing.T) {
	r := setupCatalogRouter(&stubCatalog{})

	w := doJSON(r, http.MethodPost, "/inventory/products", gin.H{"name": "Widget", "sku": "W-1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var p models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "W-1", p.SKU)
}

func TestCreateProduct_MissingSKU(t *testing.T) {
	r := setupCatalogRouter(&stubCatalog{})

	w := doJSON(r, http.MethodPost, "/inventory/products", gin.H{"name": "Widget"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid request", resp["error"])
	assert.NotEmpty(t, resp["details"])
}

func TestCreateProduct_Duplicate(t *testing.T) {
	r := setupCatalogRouter(&stubCatalog{err: services.ErrProductAlreadyExists})

	w := doJSON(r, http.MethodPost, "/inventory/products", gin.H{"name": "Widget", "sku": "W-1"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListProducts_ActiveOnly(t *testing.T) {
	stub := &stubCatalog{products: []models.Product{{ID: 1}}, total: 1}
	r := setupCatalogRouter(stub)

	w := doJSON(r, http.MethodGet, "/inventory/products?active_only=true", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, stub.activeOnly)
}

func TestUpdateProduct_Errors(t *testing.T) {
	cases := map[error]int{
		services.ErrProductNotFound:         http.StatusNotFound,
		services.ErrProductAlreadyInactive:  http.StatusConflict,
		services.ErrProductSkuAlreadyExists: http.StatusConflict,
	}
	for err, status := range cases {
		r := setupCatalogRouter(&stubCatalog{err: err})
		w := doJSON(r, http.MethodPatch, "/inventory/products/1", gin.H{"sku": "W-2"})
		assert.Equal(t, status, w.Code, err.Error())
	}
}

func TestUpdateProduct_PartialBody(t *testing.T) {
	stub := &stubCatalog{product: &models.Product{ID: 1, Name: "Renamed"}}
	r := setupCatalogRouter(stub)

	w := doJSON(r, http.MethodPatch, "/inventory/products/1", gin.H{"name": "Renamed"})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, stub.updated)
	assert.Nil(t, stub.updated.SKU)
	require.NotNil(t, stub.updated.Name)
	assert.Equal(t, "Renamed", *stub.updated.Name)
}

func TestDeactivateProduct(t *testing.T) {
	r := setupCatalogRouter(&stubCatalog{product: &models.Product{ID: 1}})
	w := doJSON(r, http.MethodDelete, "/inventory/products/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	r = setupCatalogRouter(&stubCatalog{err: services.ErrProductAlreadyInactive})
	w = doJSON(r, http.MethodDelete, "/inventory/products/1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateLocation(t *testing.T) {
	r := setupCatalogRouter(&stubCatalog{})
	w := doJSON(r, http.MethodPost, "/inventory/locations", gin.H{"name": "Main"})
	assert.Equal(t, http.StatusCreated, w.Code)

	r = setupCatalogRouter(&stubCatalog{err: services.ErrLocationAlreadyExists})
	w = doJSON(r, http.MethodPost, "/inventory/locations", gin.H{"name": "Main"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateProduct_BlankFields(t *testing.T) {
	r := setupCatalogRouter(&stubCatalog{})

	w := doJSON(r, http.MethodPost, "/inventory/products", gin.H{"name": "   ", "sku": "W-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/inventory/locations", gin.H{"name": "\t"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
