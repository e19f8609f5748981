package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/wingx/dashboard/internal/assets"
	"github.com/wingx/dashboard/internal/logging"
	"github.com/wingx/dashboard/internal/models"
)

const (
	RedirectAfterPublish = "/tienda"
	PublishedMessage     = "Producto publicado en la tienda"
	SaveFailedMessage    = "No se pudo guardar"
	UploadedMessage      = "Imagen agregada"
	UploadFailedMessage  = "No se pudo subir la imagen"
)

var (
	ErrSaveFailed   = errors.New("product could not be saved")
	ErrUploadFailed = errors.New("image could not be uploaded")
)

type Store interface {
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error)
	SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error)
}

// Index is the full-text side of the catalog.
type Index interface {
	Put(ctx context.Context, p *models.Product) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Uploader interface {
	Upload(ctx context.Context, data io.Reader, fileName, folder string) (*assets.Uploaded, error)
}

type Service struct {
	Store    Store
	Index    Index
	Events   Publisher
	Uploader Uploader
	Topic    string
	Folder   string

	now func() time.Time
}

type PublishResult struct {
	Product  *models.Product `json:"product"`
	Redirect string          `json:"redirect"`
	Message  string          `json:"message"`
}

// Publish persists the draft as a product. The draft is reset only when the
// product was stored; indexing and the event are best effort.
func (s *Service) Publish(ctx context.Context, d *Draft) (*PublishResult, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.publish")

	p, err := d.Product()
	if err != nil {
		return nil, err
	}

	created, err := s.Store.CreateProduct(ctx, p)
	if err != nil {
		l.Error("product_save_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	if s.Index != nil {
		if err := s.Index.Put(ctx, created); err != nil {
			l.Warn("product_index_failed", "product_id", created.ID, "error", err)
		}
	}

	if s.Events != nil {
		event := map[string]any{
			"type":       "product_created",
			"product_id": created.ID.String(),
			"name":       created.Name,
			"price":      created.Price,
			"categories": created.Categories,
			"featured":   created.Featured,
		}
		if err := s.Events.PublishEvent(ctx, s.Topic, created.ID.String(), event); err != nil {
			l.Warn("kafka_publish_failed", "type", "product_created", "product_id", created.ID, "error", err)
		}
	}

	d.Reset()
	l.Info("product_published", "product_id", created.ID)
	return &PublishResult{Product: created, Redirect: RedirectAfterPublish, Message: PublishedMessage}, nil
}

// Upload sends an image to the asset host and adds it to the draft.
func (s *Service) Upload(ctx context.Context, d *Draft, data io.Reader) (string, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.upload")

	if s.Uploader == nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, assets.ErrNotConfigured)
	}
	release, err := d.ReserveImage()
	if err != nil {
		return "", err
	}
	defer release()

	name := "product_" + strconv.FormatInt(s.clock().UnixMilli(), 10)
	up, err := s.Uploader.Upload(ctx, data, name, s.Folder)
	if err != nil {
		l.Error("image_upload_failed", "file_name", name, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := d.AddImage(up.URL); err != nil {
		return "", err
	}
	l.Info("image_uploaded", "url", up.URL)
	return up.URL, nil
}

func (s *Service) List(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Store.GetProducts(ctx, offset, limit)
}

// Search prefers the full-text index and falls back to the database.
func (s *Service) Search(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	if s.Index != nil {
		total, prods, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			return total, prods, nil
		}
		logging.FromContext(ctx).Warn("product_search_fallback", "error", err)
	}
	return s.Store.SearchProducts(ctx, q, offset, limit)
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
