package catalog

import "slices"

// Category is a main category and the sub-tags allowed under it.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

// Categories is the storefront's category table, in display order.
var Categories = []Category{
	{"Camisas", []string{"Franela", "Casual", "Formal", "Manga Larga", "Manga Corta", "Oversize", "Blusa"}},
	{"Pantalones", []string{"Vestir", "Mono", "Joggers", "Jeans", "Cargo", "Shorts", "Leggins"}},
	{"Conjuntos", []string{"Deportivo", "Casual", "Formal", "Verano", "Invierno"}},
	{"Trajes de baño", []string{"Enterizo", "Bikini", "Short"}},
	{"Abrigos", []string{"Poleron", "Chaqueta", "Sueter", "Chaleco", "Cortavientos", "Cardigan"}},
	{"Vestidos", []string{"Largo", "Corto", "Fiesta", "Casual"}},
	{"Accesorios", []string{"Gorras", "Medias", "Bolsos", "Lentes", "Joyeria", "Cinturones"}},
	{"Lenceria", []string{"Conjuntos", "Individuales", "Pijamas", "Batas"}},
	{"Otros", []string{"Varios"}},
}

var Sizes = []string{"XS", "S", "M", "L", "XL", "XXL", "Unica"}

const (
	GenderMen    = "Hombre"
	GenderWomen  = "Mujer"
	GenderUnisex = "Unisex"
)

var Genders = []string{GenderMen, GenderWomen, GenderUnisex}

func lookupCategory(name string) (Category, bool) {
	i := slices.IndexFunc(Categories, func(c Category) bool { return c.Name == name })
	if i < 0 {
		return Category{}, false
	}
	return Categories[i], true
}
