package services

import (
	"context"

	"eshop/internal/domain"
	"eshop/internal/media"
	"eshop/internal/repos"
)

type CatalogService struct {
	Prods  *repos.ProductRepo
	Images *media.Store
}

func NewCatalogService(prods *repos.ProductRepo, images *media.Store) *CatalogService {
	return &CatalogService{Prods: prods, Images: images}
}

func (s *CatalogService) Featured(ctx context.Context) ([]domain.Product, error) {
	return s.Prods.ListFeatured(ctx)
}

type ProductPage struct {
	Product domain.Product
	Images  []string
}

func (s *CatalogService) Product(ctx context.Context, key string) (ProductPage, error) {
	p, err := s.Prods.ByKey(ctx, key)
	if err != nil {
		return ProductPage{}, err
	}
	imgs, err := s.Images.URLs(p.Key)
	if err != nil {
		return ProductPage{}, err
	}
	return ProductPage{Product: p, Images: imgs}, nil
}
