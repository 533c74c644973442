package domain

// ListingPage is one page of a day's paginated product listing. Page 1 is the
// day's own URL; only later pages are fetched separately.
type ListingPage struct {
	PageNumber int    `json:"page_number"` // Literal caption of the pagination link
	URL        string `json:"url"`         // Absolute URL of the page
}

// ProductDescription is one product link found on a listing page.
type ProductDescription struct {
	Description string `json:"description" bson:"description"` // Trimmed link caption
	URL         string `json:"url" bson:"url"`                 // href as found in the page
}

// DailyProducts is everything collected for a single day, in page order.
type DailyProducts struct {
	Year     int                  `json:"year" bson:"year"`
	Month    int                  `json:"month" bson:"month"`
	Day      int                  `json:"day" bson:"day"`
	Products []ProductDescription `json:"products" bson:"products"`
}
