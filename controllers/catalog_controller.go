package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/management-backend/models"
	"go.uber.org/zap"
)

type Catalog interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	ListProducts(ctx context.Context, page, limit int, activeOnly bool) ([]models.Product, int64, error)
	UpdateProduct(ctx context.Context, id uint, req *models.UpdateProductRequest) (*models.Product, error)
	DeactivateProduct(ctx context.Context, id uint) (*models.Product, error)
	CreateLocation(ctx context.Context, req *models.CreateLocationRequest) (*models.Location, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
}

// CatalogController serves products and stock locations.
type CatalogController struct {
	catalog Catalog
	logger  *zap.Logger
}

func NewCatalogController(catalog Catalog, logger *zap.Logger) *CatalogController {
	return &CatalogController{catalog: catalog, logger: logger}
}

// CreateProduct handles POST /inventory/products
func (cc *CatalogController) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := cc.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, cc.logger, "Failed to create product", err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// ListProducts handles GET /inventory/products?page=&limit=&active_only=
func (cc *CatalogController) ListProducts(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "false"))

	products, total, err := cc.catalog.ListProducts(c.Request.Context(), page, limit, activeOnly)
	if err != nil {
		respondError(c, cc.logger, "Failed to fetch products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"meta":     models.NewMetaData(page, limit, total),
	})
}

// GetProduct handles GET /inventory/products/:id
func (cc *CatalogController) GetProduct(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	product, err := cc.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, cc.logger, "Failed to fetch product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// UpdateProduct handles PATCH /inventory/products/:id
func (cc *CatalogController) UpdateProduct(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := cc.catalog.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, cc.logger, "Failed to update product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeactivateProduct handles DELETE /inventory/products/:id. Products are
// never removed, only marked inactive.
func (cc *CatalogController) DeactivateProduct(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if _, err := cc.catalog.DeactivateProduct(c.Request.Context(), id); err != nil {
		respondError(c, cc.logger, "Failed to deactivate product", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateLocation handles POST /inventory/locations
func (cc *CatalogController) CreateLocation(c *gin.Context) {
	var req models.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	location, err := cc.catalog.CreateLocation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, cc.logger, "Failed to create location", err)
		return
	}

	c.JSON(http.StatusCreated, location)
}

// ListLocations handles GET /inventory/locations
func (cc *CatalogController) ListLocations(c *gin.Context) {
	locations, err := cc.catalog.ListLocations(c.Request.Context())
	if err != nil {
		respondError(c, cc.logger, "Failed to fetch locations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"locations": locations})
}
