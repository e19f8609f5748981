// Package catalog holds the product publishing form and the publish flow.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/wingx/dashboard/internal/models"
	"github.com/wingx/dashboard/internal/money"
)

const MaxImages = 5

var (
	ErrValidation      = errors.New("invalid product")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNoMainCategory  = errors.New("main category not selected")
	ErrTooManyImages   = fmt.Errorf("at most %d images", MaxImages)
	ErrUnknownImage    = errors.New("image not in list")
)

// Form is the serializable state of a Draft.
type Form struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Categories  []string `json:"categories"`
	ImageURL    string   `json:"imageUrl"`
	Images      []string `json:"images"`
	Sizes       []string `json:"sizes"`
	Gender      string   `json:"gender"`
	Featured    bool     `json:"featured"`
}

// Draft is one operator's in-progress product. All methods are safe for
// concurrent use.
type Draft struct {
	mu   sync.Mutex
	form Form
	// image slots held by uploads in flight
	reserved int
}

func NewDraft() *Draft {
	d := &Draft{}
	d.reset()
	return d
}

func (d *Draft) reset() {
	d.form = Form{
		Categories: []string{},
		Images:     []string{},
		Sizes:      []string{},
		Gender:     GenderUnisex,
	}
}

func (d *Draft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// Form returns a copy of the current state.
func (d *Draft) Form() Form {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.form
	f.Categories = slices.Clone(f.Categories)
	f.Images = slices.Clone(f.Images)
	f.Sizes = slices.Clone(f.Sizes)
	return f
}

func (d *Draft) SetFields(name, description, price string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.form.Name = name
	d.form.Description = description
	d.form.Price = price
}

func (d *Draft) SetGender(g string) error {
	if !slices.Contains(Genders, g) {
		return fmt.Errorf("%w: gender %q", ErrValidation, g)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.form.Gender = g
	return nil
}

func (d *Draft) SetFeatured(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.form.Featured = v
}

// SelectMainCategory replaces the whole category list with [name], unless
// name already is the main category.
func (d *Draft) SelectMainCategory(name string) error {
	if _, ok := lookupCategory(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.form.Categories) > 0 && d.form.Categories[0] == name {
		return nil
	}
	d.form.Categories = []string{name}
	return nil
}

// ToggleSubcategory adds or removes sub under the current main category.
// Index 0 is never touched.
func (d *Draft) ToggleSubcategory(sub string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.form.Categories) == 0 {
		return ErrNoMainCategory
	}
	main, _ := lookupCategory(d.form.Categories[0])
	if !slices.Contains(main.Subcategories, sub) {
		return fmt.Errorf("%w: %q under %q", ErrUnknownCategory, sub, main.Name)
	}

	if i := slices.Index(d.form.Categories[1:], sub); i >= 0 {
		d.form.Categories = slices.Delete(d.form.Categories, i+1, i+2)
		return nil
	}
	d.form.Categories = append(d.form.Categories, sub)
	return nil
}

func (d *Draft) ToggleSize(size string) error {
	if !slices.Contains(Sizes, size) {
		return fmt.Errorf("%w: size %q", ErrValidation, size)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := slices.Index(d.form.Sizes, size); i >= 0 {
		d.form.Sizes = slices.Delete(d.form.Sizes, i, i+1)
		return nil
	}
	d.form.Sizes = append(d.form.Sizes, size)
	return nil
}

// CanAddImage reports whether another upload would fit.
func (d *Draft) CanAddImage() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.form.Images)+d.reserved < MaxImages
}

// ReserveImage holds an image slot for an upload in flight. The returned
// release frees it and may be called more than once.
func (d *Draft) ReserveImage() (release func(), err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.form.Images)+d.reserved >= MaxImages {
		return nil, ErrTooManyImages
	}
	d.reserved++
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			d.reserved--
			d.mu.Unlock()
		})
	}, nil
}

// AddImage appends url and makes it the cover when none is set.
func (d *Draft) AddImage(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.form.Images) >= MaxImages {
		return ErrTooManyImages
	}
	d.form.Images = append(d.form.Images, url)
	if d.form.ImageURL == "" {
		d.form.ImageURL = url
	}
	return nil
}

// RemoveImage drops url. Removing the cover moves it to the new first
// image, or clears it.
func (d *Draft) RemoveImage(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := slices.Index(d.form.Images, url)
	if i < 0 {
		return ErrUnknownImage
	}
	d.form.Images = slices.Delete(d.form.Images, i, i+1)
	if d.form.ImageURL == url {
		d.form.ImageURL = ""
		if len(d.form.Images) > 0 {
			d.form.ImageURL = d.form.Images[0]
		}
	}
	return nil
}

func (d *Draft) SetCover(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !slices.Contains(d.form.Images, url) {
		return ErrUnknownImage
	}
	d.form.ImageURL = url
	return nil
}

// FieldError names the first invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

func (e *FieldError) Unwrap() error { return ErrValidation }

// Validate reports the first invalid field, or nil when the draft can be
// published.
func (d *Draft) Validate() error {
	_, err := d.Product()
	return err
}

// Product validates the draft and builds the record to persist.
func (d *Draft) Product() (*models.Product, error) {
	f := d.Form()

	if strings.TrimSpace(f.Name) == "" {
		return nil, &FieldError{"name", "El nombre es obligatorio"}
	}
	if strings.TrimSpace(f.Description) == "" {
		return nil, &FieldError{"description", "La descripción es obligatoria"}
	}
	price, err := money.ParsePrice(f.Price)
	if err != nil {
		return nil, &FieldError{"price", "Precio inválido"}
	}
	if len(f.Categories) == 0 {
		return nil, &FieldError{"categories", "Selecciona una categoría principal"}
	}

	return &models.Product{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Price:       price,
		Categories:  f.Categories,
		ImageURL:    f.ImageURL,
		Images:      f.Images,
		Sizes:       f.Sizes,
		Gender:      f.Gender,
		Featured:    f.Featured,
	}, nil
}
