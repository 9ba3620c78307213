package conversions

import "context"

// Repo persists conversions with their own id counter.
type Repo interface {
	Create(ctx context.Context, in NewConversion) (Conversion, error)
	GetByID(ctx context.Context, id int64) (Conversion, error)
	Update(ctx context.Context, id int64, p Patch) (Conversion, error)
	ListByDocument(ctx context.Context, documentID int64) ([]Conversion, error)
}
