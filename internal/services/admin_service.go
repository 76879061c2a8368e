package services

import (
	"context"
	"mime/multipart"
	"os"
	"path/filepath"

	"eshop/internal/domain"
	"eshop/internal/id"
	"eshop/internal/media"
	"eshop/internal/repos"
)

// AdminService creates and edits catalog products. Writes for the same
// product are last-writer-wins.
type AdminService struct {
	Prods  *repos.ProductRepo
	Images *media.Store
}

func NewAdminService(prods *repos.ProductRepo, images *media.Store) *AdminService {
	return &AdminService{Prods: prods, Images: images}
}

// CreateProduct assigns a fresh url key, stores the images and inserts the
// product. Nothing is left on disk if either step fails.
func (s *AdminService) CreateProduct(ctx context.Context, d domain.ProductDraft, images []*multipart.FileHeader) (domain.Product, error) {
	key := id.New()
	if _, err := s.Images.Save(key, images); err != nil {
		_ = os.RemoveAll(filepath.Join(s.Images.Root, "images", key))
		return domain.Product{}, err
	}
	p, err := s.Prods.Create(ctx, key, d)
	if err != nil {
		_ = os.RemoveAll(filepath.Join(s.Images.Root, "images", key))
		return domain.Product{}, err
	}
	return p, nil
}

// UpdateProduct rewrites the editable fields of an existing product and
// appends any new images. The url key never changes. Images are stored
// first; a rejected upload or a failed update leaves the row and the image
// directory as they were.
func (s *AdminService) UpdateProduct(ctx context.Context, key string, d domain.ProductDraft, images []*multipart.FileHeader) (domain.Product, error) {
	if _, err := s.Prods.ByKey(ctx, key); err != nil {
		return domain.Product{}, err
	}
	saved, err := s.Images.Save(key, images)
	if err != nil {
		s.Images.Remove(key, saved)
		return domain.Product{}, err
	}
	p, err := s.Prods.Update(ctx, key, d)
	if err != nil {
		s.Images.Remove(key, saved)
		return domain.Product{}, err
	}
	return p, nil
}

func (s *AdminService) Products(ctx context.Context) ([]domain.Product, error) {
	return s.Prods.ListAll(ctx)
}

func (s *AdminService) Product(ctx context.Context, key string) (domain.Product, error) {
	return s.Prods.ByKey(ctx, key)
}
