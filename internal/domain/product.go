package domain

// Product is a single catalog entry. Products are loaded once at startup and
// never mutated; pipeline stages only ever hold read-only copies.
type Product struct {
	Title         string  `json:"title"`
	AverageRating float64 `json:"average_rating"`
	RatingNumber  int     `json:"rating_number"`
	Price         float64 `json:"price"`
	Store         string  `json:"store"`
	Thumbnail     string  `json:"thumbnail"`
}

// Recommendation is the final pipeline output: a natural-language response
// (possibly a fixed rejection or fallback message) plus the validated products
// in candidate order.
type Recommendation struct {
	Response string
	Products []Product
}
