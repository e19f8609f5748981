package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingx/dashboard/internal/assets"
	"github.com/wingx/dashboard/internal/db/dbtest"
	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/repo"
)

type fakeIndex struct {
	put       []*models.Product
	putErr    error
	searchErr error
}

func (f *fakeIndex) Put(_ context.Context, p *models.Product) error {
	f.put = append(f.put, p)
	return f.putErr
}

func (f *fakeIndex) Search(context.Context, string, int, int) (int64, []models.Product, error) {
	if f.searchErr != nil {
		return 0, nil, f.searchErr
	}
	return 1, []models.Product{{Name: "from index"}}, nil
}

type fakePublisher struct{ events []map[string]any }

func (p *fakePublisher) PublishEvent(_ context.Context, _, _ string, event any) error {
	p.events = append(p.events, event.(map[string]any))
	return nil
}

type fakeUploader struct {
	names   []string
	folders []string
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, _ io.Reader, fileName, folder string) (*assets.Uploaded, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.names = append(u.names, fileName)
	u.folders = append(u.folders, folder)
	return &assets.Uploaded{URL: "https://ik.test/" + fileName}, nil
}

type failingStore struct{ repo.GormRepo }

func (failingStore) CreateProduct(context.Context, *models.Product) (*models.Product, error) {
	return nil, errors.New("disk full")
}

func readyDraft(t *testing.T) *Draft {
	t.Helper()
	d := NewDraft()
	d.SetFields("Jean Cargo", "Jean cargo con bolsillos", "25")
	require.NoError(t, d.SelectMainCategory("Pantalones"))
	require.NoError(t, d.ToggleSubcategory("Cargo"))
	require.NoError(t, d.ToggleSize("M"))
	require.NoError(t, d.AddImage("https://ik.test/a"))
	d.SetFeatured(true)
	return d
}

func TestPublish(t *testing.T) {
	t.Parallel()

	db := dbtest.InitTestDB(t)
	ix := &fakeIndex{putErr: errors.New("cluster down")}
	pub := &fakePublisher{}
	svc := &Service{Store: &repo.GormRepo{DB: db}, Index: ix, Events: pub, Topic: "product_events"}
	d := readyDraft(t)

	res, err := svc.Publish(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "/tienda", res.Redirect)
	assert.Equal(t, PublishedMessage, res.Message)

	var stored models.Product
	require.NoError(t, db.First(&stored, "id = ?", res.Product.ID).Error)
	assert.Equal(t, []string{"Pantalones", "Cargo"}, stored.Categories)
	assert.Equal(t, "https://ik.test/a", stored.ImageURL)
	assert.True(t, stored.Featured)

	require.Len(t, ix.put, 1)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "product_created", pub.events[0]["type"])

	assert.Empty(t, d.Form().Name)
	assert.Empty(t, d.Form().Categories)
}

func TestPublish_StoreFailureKeepsDraft(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	svc := &Service{Store: failingStore{}, Events: pub}
	d := readyDraft(t)

	_, err := svc.Publish(context.Background(), d)
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.Equal(t, "Jean Cargo", d.Form().Name)
	assert.Empty(t, pub.events)
}

func TestPublish_InvalidDraft(t *testing.T) {
	t.Parallel()

	svc := &Service{Store: failingStore{}}
	_, err := svc.Publish(context.Background(), NewDraft())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpload(t *testing.T) {
	up := &fakeUploader{}
	svc := &Service{Uploader: up, Folder: "/catalogo", now: func() time.Time { return time.UnixMilli(1736100000000) }}
	d := NewDraft()

	url, err := svc.Upload(context.Background(), d, strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "https://ik.test/product_1736100000000", url)
	assert.Equal(t, []string{"/catalogo"}, up.folders)
	assert.Equal(t, url, d.Form().ImageURL)

	up.err = errors.New("bad signature")
	_, err = svc.Upload(context.Background(), d, strings.NewReader("img"))
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Len(t, d.Form().Images, 1)
}

func TestUpload_Full(t *testing.T) {
	up := &fakeUploader{}
	svc := &Service{Uploader: up}
	d := NewDraft()
	for range MaxImages {
		require.NoError(t, d.AddImage("x"))
	}
	_, err := svc.Upload(context.Background(), d, strings.NewReader("img"))
	assert.ErrorIs(t, err, ErrTooManyImages)
	assert.Empty(t, up.names)
}

type blockingUploader struct {
	started chan struct{}
	proceed chan struct{}
	calls   int
}

func (u *blockingUploader) Upload(_ context.Context, _ io.Reader, fileName, _ string) (*assets.Uploaded, error) {
	u.calls++
	u.started <- struct{}{}
	<-u.proceed
	return &assets.Uploaded{URL: "https://ik.test/" + fileName}, nil
}

func TestUpload_ConcurrentLastSlot(t *testing.T) {
	up := &blockingUploader{started: make(chan struct{}), proceed: make(chan struct{})}
	svc := &Service{Uploader: up}
	d := NewDraft()
	for i := range MaxImages - 1 {
		require.NoError(t, d.AddImage(fmt.Sprintf("img-%d", i)))
	}

	errc := make(chan error, 1)
	go func() {
		_, err := svc.Upload(context.Background(), d, strings.NewReader("a"))
		errc <- err
	}()
	<-up.started

	// the last slot is held by the upload in flight
	assert.False(t, d.CanAddImage())
	_, err := svc.Upload(context.Background(), d, strings.NewReader("b"))
	assert.ErrorIs(t, err, ErrTooManyImages)

	close(up.proceed)
	require.NoError(t, <-errc)
	assert.Equal(t, 1, up.calls)
	assert.Len(t, d.Form().Images, MaxImages)
}

func TestReserveImage_ReleasedOnFailure(t *testing.T) {
	d := NewDraft()
	for range MaxImages - 1 {
		require.NoError(t, d.AddImage("x"))
	}
	release, err := d.ReserveImage()
	require.NoError(t, err)
	_, err = d.ReserveImage()
	assert.ErrorIs(t, err, ErrTooManyImages)

	release()
	release()
	assert.True(t, d.CanAddImage())

	svc := &Service{Uploader: &fakeUploader{err: errors.New("timeout")}}
	_, err = svc.Upload(context.Background(), d, strings.NewReader("img"))
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.True(t, d.CanAddImage())
}

func TestSearch_FallsBackToDatabase(t *testing.T) {
	t.Parallel()

	db := dbtest.InitTestDB(t)
	store := &repo.GormRepo{DB: db}
	_, err := store.CreateProduct(context.Background(), &models.Product{Name: "Bikini floral", Description: "Traje", Gender: GenderWomen})
	require.NoError(t, err)

	svc := &Service{Store: store, Index: &fakeIndex{searchErr: errors.New("down")}}
	total, prods, err := svc.Search(context.Background(), "FLORAL", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Bikini floral", prods[0].Name)

	svc.Index = &fakeIndex{}
	_, prods, err = svc.Search(context.Background(), "floral", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "from index", prods[0].Name)
}
