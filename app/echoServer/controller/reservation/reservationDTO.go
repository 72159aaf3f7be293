package reservation

type CreateReservationReq struct {
	BookID int64   `json:"book_id" validate:"required,gt=0"`
	Notes  *string `json:"notes"`
}

type DecideReservationReq struct {
	Action string  `json:"action" validate:"required,oneof=approve reject"`
	Notes  *string `json:"notes"`
}
