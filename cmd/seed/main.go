package main

import (
	"log"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/config"
	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/logger"
	"github.com/cubaneorg/cubane-sub000/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	categoryIDs := seedCategories(stdLog)
	varietyOptionIDs := seedVarieties(stdLog)
	seedProducts(stdLog, categoryIDs, varietyOptionIDs)
	seedDeliveryOptions(stdLog)
	seedVouchers(stdLog, categoryIDs)
	seedFinanceOptions(stdLog)

	stdLog.Printf("Seed complete")
}

func money(v float64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromFloat(v))
}

func moneyPtr(v float64) *models.Money {
	m := money(v)
	return &m
}

func intPtr(v int) *int {
	return &v
}

func seedCategories(stdLog *log.Logger) map[string]uint {
	categories := []models.Category{
		{Slug: "living-room", Title: "Living Room", Seq: 1},
		{Slug: "bedroom", Title: "Bedroom", Seq: 2},
		{Slug: "dining", Title: "Dining", Seq: 3},
		{Slug: "accessories", Title: "Accessories", Seq: 4},
	}

	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}

	ids := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
	}
	for _, cat := range categoryList {
		ids[cat.Slug] = cat.ID
	}

	// Sub-category of living-room.
	if parentID, ok := ids["living-room"]; ok {
		sofa := models.Category{
			Slug:     "sofas",
			Title:    "Sofas",
			ParentID: &parentID,
			Seq:      1,
		}
		var existing models.Category
		if err := models.DB.Where("slug = ?", sofa.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&sofa).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", sofa.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", sofa.Slug)
				ids[sofa.Slug] = sofa.ID
			}
		} else {
			ids[sofa.Slug] = existing.ID
		}
	}

	return ids
}

func seedVarieties(stdLog *log.Logger) map[string]uint {
	varieties := []struct {
		variety models.Variety
		options []models.VarietyOption
	}{
		{
			variety: models.Variety{
				Slug:         "colour",
				Title:        "Colour",
				DisplayTitle: "Choose a colour",
				Style:        constants.VarietyStyleListWithImage,
				SKU:          true,
				Seq:          1,
			},
			options: []models.VarietyOption{
				{Title: "Oak", Colour: "#b58b5a", Seq: 1},
				{Title: "Walnut", Colour: "#5c4033", Seq: 2},
				{Title: "White", Colour: "#ffffff", Seq: 3},
			},
		},
		{
			variety: models.Variety{
				Slug:         "size",
				Title:        "Size",
				DisplayTitle: "Choose a size",
				Style:        constants.VarietyStyleSelect,
				SKU:          true,
				Seq:          2,
			},
			options: []models.VarietyOption{
				{Title: "Two Seater", Seq: 1},
				{
					Title:              "Three Seater",
					DefaultOffsetType:  constants.OffsetTypeValue,
					DefaultOffsetValue: money(150),
					Seq:                2,
				},
			},
		},
		{
			variety: models.Variety{
				Slug:         "fabric-protection",
				Title:        "Fabric Protection",
				DisplayTitle: "Add fabric protection",
				Style:        constants.VarietyStyleList,
				Seq:          3,
			},
			options: []models.VarietyOption{
				{Title: "None", Seq: 1},
				{
					Title:              "5 Year Cover",
					DefaultOffsetType:  constants.OffsetTypePercent,
					DefaultOffsetValue: money(5),
					Seq:                2,
				},
			},
		},
		{
			// Filter-only attribute, never offered as a purchase choice.
			variety: models.Variety{
				Slug:  "material",
				Title: "Material",
				Style: constants.VarietyStyleAttribute,
				Seq:   4,
			},
			options: []models.VarietyOption{
				{Title: "Solid Wood", Seq: 1},
				{Title: "Veneer", Seq: 2},
			},
		},
	}

	optionIDs := map[string]uint{}
	for _, entry := range varieties {
		variety := entry.variety
		var existing models.Variety
		if err := models.DB.Where("slug = ?", variety.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&variety).Error; err != nil {
				stdLog.Printf("Failed to create variety %s: %v", variety.Slug, err)
				continue
			}
			stdLog.Printf("Created variety: %s", variety.Slug)
		} else {
			variety = existing
		}

		for _, opt := range entry.options {
			opt.VarietyID = variety.ID
			var existingOpt models.VarietyOption
			if err := models.DB.Where("variety_id = ? AND title = ?", variety.ID, opt.Title).
				First(&existingOpt).Error; err != nil {
				if err := models.DB.Create(&opt).Error; err != nil {
					stdLog.Printf("Failed to create option %s/%s: %v", variety.Slug, opt.Title, err)
					continue
				}
				existingOpt = opt
			}
			optionIDs[variety.Slug+"/"+existingOpt.Title] = existingOpt.ID
		}
	}

	return optionIDs
}

func seedProducts(stdLog *log.Logger, categoryIDs, optionIDs map[string]uint) {
	products := []models.Product{
		{
			Slug:        "hampton-sofa",
			Title:       "Hampton Sofa",
			CategoryID:  categoryIDs["sofas"],
			Price:       money(899),
			RRP:         moneyPtr(1099),
			StockPolicy: constants.StockPolicyAuto,
			StockLevel:  12,
			SKUEnabled:  true,
			SKU:         "HMP-SOFA",
			Seq:         1,
		},
		{
			Slug:        "oslo-bed-frame",
			Title:       "Oslo Bed Frame",
			CategoryID:  categoryIDs["bedroom"],
			Price:       money(449),
			StockPolicy: constants.StockPolicyAuto,
			StockLevel:  8,
			SKU:         "OSL-BED",
			Seq:         2,
		},
		{
			Slug:           "farmhouse-dining-table",
			Title:          "Farmhouse Dining Table",
			CategoryID:     categoryIDs["dining"],
			Price:          money(1250),
			StockPolicy:    constants.StockPolicyMadeToOrder,
			PreOrder:       true,
			Deposit:        moneyPtr(250),
			CollectionOnly: true,
			SKU:            "FRM-TBL",
			Seq:            3,
		},
		{
			Slug:                   "brass-table-lamp",
			Title:                  "Brass Table Lamp",
			CategoryID:             categoryIDs["accessories"],
			Price:                  money(59.99),
			StockPolicy:            constants.StockPolicyAvailable,
			ExemptFromFreeDelivery: true,
			SKU:                    "BRS-LMP",
			Seq:                    4,
		},
		{
			Slug:               "clearance-armchair",
			Title:              "Clearance Armchair",
			CategoryID:         categoryIDs["living-room"],
			Price:              money(199),
			PreviousPrice:      moneyPtr(399),
			StockPolicy:        constants.StockPolicyAuto,
			StockLevel:         2,
			ExemptFromDiscount: true,
			SKU:                "CLR-CHR",
			Seq:                5,
		},
	}

	productIDs := map[string]uint{}
	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("slug = ?", product.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Slug, err)
				continue
			}
			stdLog.Printf("Created product: %s", product.Slug)
			productIDs[product.Slug] = product.ID
		} else {
			stdLog.Printf("Product already exists: %s", product.Slug)
			productIDs[product.Slug] = existing.ID
		}
	}

	seedSofaVariants(stdLog, productIDs["hampton-sofa"], optionIDs)
	seedAssignments(stdLog, productIDs["oslo-bed-frame"], []uint{
		optionIDs["colour/Oak"],
		optionIDs["colour/White"],
	})
	seedRelated(stdLog, productIDs["hampton-sofa"], []uint{
		productIDs["clearance-armchair"],
		productIDs["brass-table-lamp"],
	})
}

// seedSofaVariants assigns the colour and size varieties to the sofa and
// creates one SKU per combination.
func seedSofaVariants(stdLog *log.Logger, productID uint, optionIDs map[string]uint) {
	if productID == 0 {
		return
	}

	colours := []string{"colour/Oak", "colour/Walnut"}
	sizes := []string{"size/Two Seater", "size/Three Seater"}

	var assignIDs []uint
	for _, key := range append(append([]string{}, colours...), sizes...) {
		assignIDs = append(assignIDs, optionIDs[key])
	}
	assignIDs = append(assignIDs, optionIDs["fabric-protection/None"], optionIDs["fabric-protection/5 Year Cover"])
	seedAssignments(stdLog, productID, assignIDs)

	skus := []struct {
		code    string
		price   *models.Money
		stock   int
		options []uint
	}{
		{"HMP-SOFA-OAK-2S", nil, 4, []uint{optionIDs["colour/Oak"], optionIDs["size/Two Seater"]}},
		{"HMP-SOFA-OAK-3S", moneyPtr(1049), 3, []uint{optionIDs["colour/Oak"], optionIDs["size/Three Seater"]}},
		{"HMP-SOFA-WAL-2S", moneyPtr(949), 3, []uint{optionIDs["colour/Walnut"], optionIDs["size/Two Seater"]}},
		{"HMP-SOFA-WAL-3S", moneyPtr(1099), 2, []uint{optionIDs["colour/Walnut"], optionIDs["size/Three Seater"]}},
	}

	for _, entry := range skus {
		var existing models.ProductSKU
		if err := models.DB.Where("product_id = ? AND sku = ?", productID, entry.code).
			First(&existing).Error; err == nil {
			continue
		}

		var options []models.VarietyOption
		if err := models.DB.Where("id IN ?", entry.options).Find(&options).Error; err != nil {
			stdLog.Printf("Failed to load options for SKU %s: %v", entry.code, err)
			continue
		}

		sku := models.ProductSKU{
			ProductID:  productID,
			SKU:        entry.code,
			Price:      entry.price,
			StockLevel: entry.stock,
			Enabled:    true,
			Options:    options,
		}
		if err := models.DB.Create(&sku).Error; err != nil {
			stdLog.Printf("Failed to create SKU %s: %v", entry.code, err)
		} else {
			stdLog.Printf("Created SKU: %s", entry.code)
		}
	}
}

func seedAssignments(stdLog *log.Logger, productID uint, optionIDs []uint) {
	if productID == 0 {
		return
	}
	for seq, optionID := range optionIDs {
		if optionID == 0 {
			continue
		}
		var existing models.VarietyAssignment
		if err := models.DB.Where("product_id = ? AND variety_option_id = ?", productID, optionID).
			First(&existing).Error; err == nil {
			continue
		}
		assignment := models.VarietyAssignment{
			ProductID:       productID,
			VarietyOptionID: optionID,
			Enabled:         true,
			Seq:             seq + 1,
		}
		if err := models.DB.Create(&assignment).Error; err != nil {
			stdLog.Printf("Failed to assign option %d to product %d: %v", optionID, productID, err)
		}
	}
}

func seedRelated(stdLog *log.Logger, productID uint, relatedIDs []uint) {
	if productID == 0 {
		return
	}
	for seq, relatedID := range relatedIDs {
		if relatedID == 0 || relatedID == productID {
			continue
		}
		var existing models.RelatedProduct
		if err := models.DB.Where("product_id = ? AND related_id = ?", productID, relatedID).
			First(&existing).Error; err == nil {
			continue
		}
		link := models.RelatedProduct{ProductID: productID, RelatedID: relatedID, Seq: seq + 1}
		if err := models.DB.Create(&link).Error; err != nil {
			stdLog.Printf("Failed to relate product %d to %d: %v", productID, relatedID, err)
		}
	}
}

func seedDeliveryOptions(stdLog *log.Logger) {
	options := []models.DeliveryOption{
		{
			Title:                 "Standard Delivery",
			UKEnabled:             true,
			UKDefault:             money(4.95),
			EUEnabled:             true,
			EUDefault:             money(12.50),
			FreeDelivery:          true,
			FreeDeliveryThreshold: money(500),
			Seq:                   1,
		},
		{
			Title:     "Next Day Delivery",
			UKEnabled: true,
			UKDefault: money(9.95),
			Seq:       2,
		},
		{
			Title:          "Worldwide Freight",
			UKEnabled:      false,
			WorldEnabled:   true,
			WorldQuoteOnly: true,
			Seq:            3,
		},
	}

	for _, option := range options {
		var existing models.DeliveryOption
		if err := models.DB.Where("title = ?", option.Title).First(&existing).Error; err == nil {
			stdLog.Printf("Delivery option already exists: %s", option.Title)
			continue
		}
		if err := models.DB.Create(&option).Error; err != nil {
			stdLog.Printf("Failed to create delivery option %s: %v", option.Title, err)
		} else {
			stdLog.Printf("Created delivery option: %s", option.Title)
		}
	}
}

func seedVouchers(stdLog *log.Logger, categoryIDs map[string]uint) {
	now := time.Now()
	vouchers := []models.Voucher{
		{
			Code:          "WELCOME10",
			Title:         "10% Off Your First Order",
			ValidFrom:     now.AddDate(0, 0, -1),
			ValidUntil:    now.AddDate(1, 0, 0),
			DiscountType:  constants.VoucherTypePercentage,
			DiscountValue: money(10),
		},
		{
			Code:          "SAVE25",
			Title:         "25 Pounds Off",
			ValidFrom:     now.AddDate(0, 0, -1),
			ValidUntil:    now.AddDate(0, 6, 0),
			MaxUsage:      intPtr(100),
			DiscountType:  constants.VoucherTypeFixedAmount,
			DiscountValue: money(25),
		},
		{
			Code:         "FREESHIP",
			Title:        "Free Delivery",
			ValidFrom:    now.AddDate(0, 0, -1),
			ValidUntil:   now.AddDate(0, 3, 0),
			DiscountType: constants.VoucherTypeFreeDelivery,
			Countries:    models.StringArray([]string{"GB"}),
		},
	}

	for _, voucher := range vouchers {
		var existing models.Voucher
		if err := models.DB.Where("code = ?", voucher.Code).First(&existing).Error; err == nil {
			stdLog.Printf("Voucher already exists: %s", voucher.Code)
			continue
		}
		if voucher.Code == "WELCOME10" {
			if id, ok := categoryIDs["living-room"]; ok {
				var cat models.Category
				if err := models.DB.First(&cat, id).Error; err == nil {
					voucher.Categories = []models.Category{cat}
				}
			}
		}
		if err := models.DB.Create(&voucher).Error; err != nil {
			stdLog.Printf("Failed to create voucher %s: %v", voucher.Code, err)
		} else {
			stdLog.Printf("Created voucher: %s", voucher.Code)
		}
	}
}

func seedFinanceOptions(stdLog *log.Logger) {
	options := []models.FinanceOption{
		{
			Code:           "IFC-12",
			Title:          "12 Months Interest Free Credit",
			MinBasketValue: money(500),
			Seq:            1,
		},
		{
			Code:           "IFC-24",
			Title:          "24 Months Interest Free Credit",
			MinBasketValue: money(1000),
			PerProduct:     true,
			Seq:            2,
		},
	}

	for _, option := range options {
		var existing models.FinanceOption
		if err := models.DB.Where("code = ?", option.Code).First(&existing).Error; err == nil {
			stdLog.Printf("Finance option already exists: %s", option.Code)
			continue
		}
		if err := models.DB.Create(&option).Error; err != nil {
			stdLog.Printf("Failed to create finance option %s: %v", option.Code, err)
		} else {
			stdLog.Printf("Created finance option: %s", option.Code)
		}
	}
}
