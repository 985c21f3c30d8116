package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/http/response"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// GetProducts lists one catalog page, ordered per the listing order
// resolution (customer choice, then category default, then shop default).
func (h *Handler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	result, err := h.CatalogService.ListProducts(service.ListProductsInput{
		CategorySlug: strings.TrimSpace(c.Query("category")),
		OrderBy:      strings.TrimSpace(c.Query("order_by")),
		Search:       strings.TrimSpace(c.Query("search")),
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "product listing failed", err)
		return
	}

	totalPage := result.Total / int64(pageSize)
	if result.Total%int64(pageSize) != 0 {
		totalPage++
	}
	response.SuccessWithPage(c, gin.H{
		"products": result.Products,
		"category": result.Category,
		"order_by": result.OrderBy,
	}, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     result.Total,
		TotalPage: totalPage,
	})
}

// GetProductBySlug returns one product with its variants, options,
// related products and category breadcrumb.
func (h *Handler) GetProductBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	product, err := h.CatalogService.GetProductBySlug(slug)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "product not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "product fetch failed", err)
		return
	}

	related, err := h.CatalogService.RelatedProducts(product)
	if err != nil {
		respondError(c, response.CodeInternal, "product fetch failed", err)
		return
	}

	var path []models.Category
	if product.CategoryID != 0 {
		path, err = h.CatalogService.CategoryPath(product.CategoryID)
		if err != nil {
			respondError(c, response.CodeInternal, "product fetch failed", err)
			return
		}
	}

	response.Success(c, gin.H{
		"product":       product,
		"related":       related,
		"category_path": path,
	})
}

// GetCategories returns the enabled category tree entries.
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.CatalogService.ListCategories()
	if err != nil {
		respondError(c, response.CodeInternal, "category fetch failed", err)
		return
	}
	response.Success(c, gin.H{"categories": categories})
}

// GetDeliveryOptions returns the enabled delivery options.
func (h *Handler) GetDeliveryOptions(c *gin.Context) {
	options, err := h.DeliveryOptionRepo.ListEnabled()
	if err != nil {
		respondError(c, response.CodeInternal, "delivery option fetch failed", err)
		return
	}
	response.Success(c, gin.H{"delivery_options": options})
}
