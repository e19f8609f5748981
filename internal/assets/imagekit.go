// Package assets uploads product images to ImageKit and signs client-side
// upload requests.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	imagekit "github.com/imagekit-developer/imagekit-go"
	"github.com/imagekit-developer/imagekit-go/api/uploader"
)

var ErrNotConfigured = errors.New("imagekit is not configured")

// NewClient returns nil when the keys are missing.
func NewClient(privateKey, publicKey, urlEndpoint string) *imagekit.ImageKit {
	if privateKey == "" || publicKey == "" {
		return nil
	}
	return imagekit.NewFromParams(imagekit.NewParams{
		PrivateKey:  privateKey,
		PublicKey:   publicKey,
		UrlEndpoint: urlEndpoint,
	})
}

// AuthParams are the one-time upload credentials the ImageKit client SDK
// expects from /api/auth/imagekit.
type AuthParams struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
}

type signer interface {
	SignToken(param imagekit.SignTokenParam) imagekit.SignedToken
}

type Authenticator struct {
	ik  signer
	ttl time.Duration
	now func() time.Time
}

func NewAuthenticator(ik *imagekit.ImageKit, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	a := &Authenticator{ttl: ttl, now: time.Now}
	if ik != nil {
		a.ik = ik
	}
	return a
}

func (a *Authenticator) Params() (AuthParams, error) {
	if a.ik == nil {
		return AuthParams{}, ErrNotConfigured
	}
	signed := a.ik.SignToken(imagekit.SignTokenParam{
		Token:   uuid.NewString(),
		Expires: a.now().Add(a.ttl).Unix(),
	})
	return AuthParams{
		Token:     signed.Token,
		Expire:    signed.Expires,
		Signature: signed.Signature,
	}, nil
}

type Uploaded struct {
	FileID   string `json:"fileId"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	FilePath string `json:"filePath"`
}

type fileAPI interface {
	Upload(ctx context.Context, file interface{}, param uploader.UploadParam) (*uploader.UploadResponse, error)
}

type Uploader struct {
	api fileAPI
}

func NewUploader(ik *imagekit.ImageKit) *Uploader {
	if ik == nil {
		return &Uploader{}
	}
	return &Uploader{api: ik.Uploader}
}

// Upload sends data as fileName into folder. The SDK signs every request
// with the private key.
func (u *Uploader) Upload(ctx context.Context, data io.Reader, fileName, folder string) (*Uploaded, error) {
	if u.api == nil {
		return nil, ErrNotConfigured
	}

	resp, err := u.api.Upload(ctx, data, uploader.UploadParam{
		FileName: fileName,
		Folder:   folder,
	})
	if err != nil {
		return nil, fmt.Errorf("imagekit upload: %w", err)
	}
	if resp == nil || resp.Data.Url == "" {
		return nil, errors.New("upload response has no url")
	}
	return &Uploaded{
		FileID:   resp.Data.FileId,
		Name:     resp.Data.Name,
		URL:      resp.Data.Url,
		FilePath: resp.Data.FilePath,
	}, nil
}
