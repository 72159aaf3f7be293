package book

type SaveBookReq struct {
	Title         string  `json:"title" validate:"required"`
	Author        string  `json:"author" validate:"required"`
	ISBN          string  `json:"isbn" validate:"required"`
	Category      string  `json:"category" validate:"required"`
	Publisher     *string `json:"publisher"`
	PublishedYear *int    `json:"published_year"`
	Description   *string `json:"description"`
	Location      *string `json:"location"`
	TotalCopies   int     `json:"total_copies" validate:"gte=0"`
}
