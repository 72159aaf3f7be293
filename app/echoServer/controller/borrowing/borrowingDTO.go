package borrowing

type BorrowReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
	// UserID lends on behalf of a patron. Staff only, 0 means the caller.
	UserID int64 `json:"user_id" validate:"gte=0"`
}

type BorrowingIDReq struct {
	BorrowingID int64 `json:"borrowing_id" validate:"required,gt=0"`
}
