package repository

import (
	"errors"
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/models"

	"gorm.io/gorm"
)

// ErrCategoryCycle is returned when a write would make a category its
// own ancestor.
var ErrCategoryCycle = errors.New("category parent would create a cycle")

// CategoryRepository is the category data access interface.
type CategoryRepository interface {
	List(onlyEnabled bool) ([]models.Category, error)
	GetByID(id uint) (*models.Category, error)
	GetBySlug(slug string) (*models.Category, error)
	Path(id uint) ([]models.Category, error)
	Save(category *models.Category) error
	Delete(id uint) error
	WithTx(tx *gorm.DB) CategoryRepository
}

// GormCategoryRepository is the GORM implementation.
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a category repository.
func NewCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormCategoryRepository) WithTx(tx *gorm.DB) CategoryRepository {
	if tx == nil {
		return r
	}
	return &GormCategoryRepository{db: tx}
}

// List returns categories ordered by seq.
func (r *GormCategoryRepository) List(onlyEnabled bool) ([]models.Category, error) {
	var categories []models.Category
	query := r.db.Order("seq ASC, id ASC")
	if onlyEnabled {
		query = query.Where("enabled = ?", true)
	}
	if err := query.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// GetByID fetches a category by id.
func (r *GormCategoryRepository) GetByID(id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// GetBySlug fetches a category by slug.
func (r *GormCategoryRepository) GetBySlug(slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.Where("slug = ?", strings.TrimSpace(slug)).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// Path returns the category's ancestors root-first, ending with the
// category itself.
func (r *GormCategoryRepository) Path(id uint) ([]models.Category, error) {
	var path []models.Category
	currentID := id
	for depth := 0; depth < constants.CategoryMaxDepth; depth++ {
		category, err := r.GetByID(currentID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			break
		}
		path = append([]models.Category{*category}, path...)
		if category.ParentID == nil {
			return path, nil
		}
		currentID = *category.ParentID
	}
	return nil, ErrCategoryCycle
}

// Save creates or updates a category after checking the parent chain for
// cycles with a bounded ancestor walk.
func (r *GormCategoryRepository) Save(category *models.Category) error {
	if category.ParentID != nil {
		if err := r.checkAcyclic(category.ID, *category.ParentID); err != nil {
			return err
		}
	}
	return r.db.Save(category).Error
}

// Delete soft-deletes a category.
func (r *GormCategoryRepository) Delete(id uint) error {
	return r.db.Delete(&models.Category{}, id).Error
}

func (r *GormCategoryRepository) checkAcyclic(id, parentID uint) error {
	if id != 0 && parentID == id {
		return ErrCategoryCycle
	}
	currentID := parentID
	for depth := 0; depth < constants.CategoryMaxDepth; depth++ {
		parent, err := r.GetByID(currentID)
		if err != nil {
			return err
		}
		if parent == nil || parent.ParentID == nil {
			return nil
		}
		if id != 0 && *parent.ParentID == id {
			return ErrCategoryCycle
		}
		currentID = *parent.ParentID
	}
	return ErrCategoryCycle
}
