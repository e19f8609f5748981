package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wingx/dashboard/internal/catalog"
	"github.com/wingx/dashboard/internal/logging"
	"github.com/wingx/dashboard/internal/transport"
	"github.com/wingx/dashboard/internal/util"
)

type StoreHTTP struct {
	Svc *catalog.Service
	// MaxImageMiB caps one uploaded image.
	MaxImageMiB int64
}

type draftResponse struct {
	Form        catalog.Form       `json:"form"`
	CanAddImage bool               `json:"canAddImage"`
	MaxImages   int                `json:"maxImages"`
	Categories  []catalog.Category `json:"categoriesTable"`
	Sizes       []string           `json:"sizesTable"`
	Genders     []string           `json:"gendersTable"`
	Message     string             `json:"message,omitempty"`
}

func newDraftResponse(d *catalog.Draft) draftResponse {
	return draftResponse{
		Form:        d.Form(),
		CanAddImage: d.CanAddImage(),
		MaxImages:   catalog.MaxImages,
		Categories:  catalog.Categories,
		Sizes:       catalog.Sizes,
		Genders:     catalog.Genders,
	}
}

func (h *StoreHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.get_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.List(ctx, offset, limit)
	if err != nil {
		l.Error("get_products_error", "status", 500, "reason", "cannot list products", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, offset, limit, total),
	})
}

func (h *StoreHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.search_products")

	q := c.QueryParam("q")
	if q == "" {
		l.Warn("search_error", "status", 400, "reason", "empty query")
		return echo.NewHTTPError(http.StatusBadRequest, "query param q is required")
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.Search(ctx, q, offset, limit)
	if err != nil {
		l.Error("search_error", "status", 500, "reason", "search failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, offset, limit, total),
	})
}

func (h *StoreHTTP) GetDraft(c echo.Context) error {
	w, err := workspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newDraftResponse(w.Draft()))
}

// UpdateDraft applies the fields present in the body.
func (h *StoreHTTP) UpdateDraft(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "store.update_draft")

	w, err := workspace(c)
	if err != nil {
		return err
	}
	var req transport.DraftFields
	if err := c.Bind(&req); err != nil {
		l.Warn("draft_update_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	d := w.Draft()
	if req.Gender != nil {
		if err := d.SetGender(*req.Gender); err != nil {
			l.Warn("draft_update_error", "status", 400, "reason", "unknown gender", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid gender")
		}
	}
	f := d.Form()
	name, description, price := f.Name, f.Description, f.Price
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	if req.Price != nil {
		price = *req.Price
	}
	d.SetFields(name, description, price)
	if req.Featured != nil {
		d.SetFeatured(*req.Featured)
	}
	return c.JSON(http.StatusOK, newDraftResponse(d))
}

func (h *StoreHTTP) SelectCategory(c echo.Context) error {
	return h.editDraft(c, "store.select_category", func(d *catalog.Draft) error {
		var req transport.CategoryRequest
		if err := bindValid(c, &req); err != nil {
			return err
		}
		return d.SelectMainCategory(req.Name)
	})
}

func (h *StoreHTTP) ToggleSubcategory(c echo.Context) error {
	return h.editDraft(c, "store.toggle_subcategory", func(d *catalog.Draft) error {
		var req transport.CategoryRequest
		if err := bindValid(c, &req); err != nil {
			return err
		}
		return d.ToggleSubcategory(req.Name)
	})
}

func (h *StoreHTTP) ToggleSize(c echo.Context) error {
	return h.editDraft(c, "store.toggle_size", func(d *catalog.Draft) error {
		var req transport.SizeRequest
		if err := bindValid(c, &req); err != nil {
			return err
		}
		return d.ToggleSize(req.Size)
	})
}

func (h *StoreHTTP) RemoveImage(c echo.Context) error {
	return h.editDraft(c, "store.remove_image", func(d *catalog.Draft) error {
		var req transport.ImageRequest
		if err := bindValid(c, &req); err != nil {
			return err
		}
		return d.RemoveImage(req.URL)
	})
}

func (h *StoreHTTP) SetCover(c echo.Context) error {
	return h.editDraft(c, "store.set_cover", func(d *catalog.Draft) error {
		var req transport.ImageRequest
		if err := bindValid(c, &req); err != nil {
			return err
		}
		return d.SetCover(req.URL)
	})
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

func (h *StoreHTTP) editDraft(c echo.Context, name string, edit func(*catalog.Draft) error) error {
	l := logging.FromContext(c.Request().Context()).With("handler", name)

	w, err := workspace(c)
	if err != nil {
		return err
	}
	if err := edit(w.Draft()); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			l.Warn("draft_edit_error", "status", he.Code, "reason", "invalid body")
			return he
		}
		return draftErr(l, err)
	}
	return c.JSON(http.StatusOK, newDraftResponse(w.Draft()))
}

func draftErr(l *slog.Logger, err error) error {
	var fe *catalog.FieldError
	switch {
	case errors.As(err, &fe):
		l.Warn("draft_edit_error", "status", 422, "reason", fe.Field, "error", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, echo.Map{"field": fe.Field, "message": fe.Message})
	case errors.Is(err, catalog.ErrUnknownImage):
		l.Warn("draft_edit_error", "status", 404, "reason", "image not in draft", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "image not in draft")
	case errors.Is(err, catalog.ErrTooManyImages):
		l.Warn("draft_edit_error", "status", 400, "reason", "image limit reached", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrUnknownCategory),
		errors.Is(err, catalog.ErrNoMainCategory),
		errors.Is(err, catalog.ErrValidation):
		l.Warn("draft_edit_error", "status", 400, "reason", "invalid value", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

// UploadImage accepts one multipart "file" and adds it to the draft.
func (h *StoreHTTP) UploadImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.upload_image")

	w, err := workspace(c)
	if err != nil {
		return err
	}
	d := w.Draft()
	if !d.CanAddImage() {
		l.Warn("upload_error", "status", 400, "reason", "image limit reached")
		return echo.NewHTTPError(http.StatusBadRequest, catalog.ErrTooManyImages.Error())
	}

	maxMiB := h.MaxImageMiB
	if maxMiB <= 0 {
		maxMiB = 10
	}
	// one extra MiB for the multipart envelope
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, (maxMiB+1)<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn("upload_error", "status", 400, "reason", "missing file", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > maxMiB<<20 {
		l.Warn("upload_error", "status", 413, "reason", "file too large", "size", fh.Size)
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	src, err := fh.Open()
	if err != nil {
		l.Error("upload_error", "status", 500, "reason", "cannot open file", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, catalog.UploadFailedMessage)
	}
	defer src.Close()

	url, err := h.Svc.Upload(ctx, d, src)
	if err != nil {
		if errors.Is(err, catalog.ErrUploadFailed) {
			return echo.NewHTTPError(http.StatusBadGateway, catalog.UploadFailedMessage)
		}
		return draftErr(l, err)
	}

	resp := newDraftResponse(d)
	resp.Message = catalog.UploadedMessage
	l.Info("upload_success", "url", url)
	return c.JSON(http.StatusCreated, resp)
}

func (h *StoreHTTP) Publish(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "store.publish")

	w, err := workspace(c)
	if err != nil {
		return err
	}
	res, err := h.Svc.Publish(ctx, w.Draft())
	if err != nil {
		if errors.Is(err, catalog.ErrSaveFailed) {
			l.Error("publish_error", "status", 500, "reason", "cannot save product", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, catalog.SaveFailedMessage)
		}
		return draftErr(l, err)
	}
	l.Info("publish_success", "product_id", res.Product.ID)
	return c.JSON(http.StatusCreated, res)
}
