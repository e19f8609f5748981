package catalog

import (
	"math/rand"
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDraft_Defaults(t *testing.T) {
	f := NewDraft().Form()
	assert.Equal(t, GenderUnisex, f.Gender)
	assert.Empty(t, f.Categories)
	assert.False(t, f.Featured)
}

func TestSelectMainCategory(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.SelectMainCategory("Camisas"))
	require.NoError(t, d.ToggleSubcategory("Oversize"))

	// same main keeps sub-tags
	require.NoError(t, d.SelectMainCategory("Camisas"))
	assert.Equal(t, []string{"Camisas", "Oversize"}, d.Form().Categories)

	require.NoError(t, d.SelectMainCategory("Pantalones"))
	assert.Equal(t, []string{"Pantalones"}, d.Form().Categories)

	assert.ErrorIs(t, d.SelectMainCategory("Zapatos"), ErrUnknownCategory)
}

func TestToggleSubcategory(t *testing.T) {
	d := NewDraft()
	assert.ErrorIs(t, d.ToggleSubcategory("Jeans"), ErrNoMainCategory)

	require.NoError(t, d.SelectMainCategory("Pantalones"))
	require.NoError(t, d.ToggleSubcategory("Jeans"))
	require.NoError(t, d.ToggleSubcategory("Cargo"))
	assert.Equal(t, []string{"Pantalones", "Jeans", "Cargo"}, d.Form().Categories)

	require.NoError(t, d.ToggleSubcategory("Jeans"))
	assert.Equal(t, []string{"Pantalones", "Cargo"}, d.Form().Categories)

	assert.ErrorIs(t, d.ToggleSubcategory("Bikini"), ErrUnknownCategory)
}

func TestToggleSubcategory_NameOfMainCategory(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.SelectMainCategory("Lenceria"))
	require.NoError(t, d.ToggleSubcategory("Conjuntos"))
	require.NoError(t, d.ToggleSubcategory("Conjuntos"))
	assert.Equal(t, []string{"Lenceria"}, d.Form().Categories)
}

func TestToggleSize(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.ToggleSize("M"))
	require.NoError(t, d.ToggleSize("XL"))
	require.NoError(t, d.ToggleSize("M"))
	assert.Equal(t, []string{"XL"}, d.Form().Sizes)
	assert.ErrorIs(t, d.ToggleSize("XXXL"), ErrValidation)
}

func TestImages_CapAndCover(t *testing.T) {
	d := NewDraft()
	for i := range MaxImages {
		require.NoError(t, d.AddImage("img"+strconv.Itoa(i)))
	}
	assert.ErrorIs(t, d.AddImage("extra"), ErrTooManyImages)
	assert.False(t, d.CanAddImage())

	f := d.Form()
	assert.Equal(t, "img0", f.ImageURL)
	assert.Len(t, f.Images, MaxImages)

	require.NoError(t, d.SetCover("img3"))
	assert.ErrorIs(t, d.SetCover("nope"), ErrUnknownImage)
	assert.Equal(t, "img3", d.Form().ImageURL)

	require.NoError(t, d.RemoveImage("img1"))
	assert.Equal(t, "img3", d.Form().ImageURL)
}

func TestRemoveImage_CoverMovesToFirst(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 200 {
		d := NewDraft()
		n := 1 + rng.Intn(MaxImages)
		for i := range n {
			require.NoError(t, d.AddImage("u"+strconv.Itoa(i)))
		}
		cover := "u" + strconv.Itoa(rng.Intn(n))
		require.NoError(t, d.SetCover(cover))

		require.NoError(t, d.RemoveImage(cover))
		f := d.Form()
		assert.False(t, slices.Contains(f.Images, cover))
		if len(f.Images) == 0 {
			assert.Empty(t, f.ImageURL)
		} else {
			assert.Equal(t, f.Images[0], f.ImageURL)
		}
	}
}

func TestProduct_Validation(t *testing.T) {
	d := NewDraft()

	_, err := d.Product()
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "name", fe.Field)
	assert.ErrorIs(t, err, ErrValidation)

	d.SetFields("Franela", "Algodón", "-3")
	_, err = d.Product()
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "price", fe.Field)

	d.SetFields("Franela", "Algodón", "12,50")
	_, err = d.Product()
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "categories", fe.Field)

	require.NoError(t, d.SelectMainCategory("Camisas"))
	require.NoError(t, d.Validate())
	p, err := d.Product()
	require.NoError(t, err)
	assert.Equal(t, "12.5", p.Price.String())
	assert.Equal(t, []string{"Camisas"}, p.Categories)
	assert.Equal(t, GenderUnisex, p.Gender)
}
