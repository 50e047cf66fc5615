package provider

import (
	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// ToProduct maps a provider record onto the locally synced product fields.
func ToProduct(rec CatalogRecord) *domain.Product {
	return &domain.Product{
		ExternalID:          rec.ID,
		Name:                rec.Name,
		Code:                rec.Code,
		Price:               rec.Price,
		Currency:            rec.Currency,
		ImageURL:            rec.ImageURL,
		ProductType:         rec.Type,
		CategoryExternalID:  rec.CategoryID,
		TrademarkExternalID: rec.TrademarkID,
	}
}

// ToCategory maps a provider record onto the locally synced category fields.
func ToCategory(rec CatalogRecord) *domain.Category {
	return &domain.Category{
		ExternalID:       rec.ID,
		Name:             rec.Name,
		ParentExternalID: rec.ParentID,
	}
}

// ToTrademark maps a provider record onto the locally synced brand fields.
func ToTrademark(rec CatalogRecord) *domain.Trademark {
	return &domain.Trademark{
		ExternalID: rec.ID,
		Name:       rec.Name,
	}
}
