package enum

import (
	"database/sql/driver"
	"fmt"
)

// ReviewReason tags why a quotation entered review. The status machine has a
// single edge into review; the tag only changes how the result is reported.
type ReviewReason string

const (
	ReviewReasonNone       ReviewReason = ""
	ReviewReasonInitial    ReviewReason = "initial"
	ReviewReasonReapproval ReviewReason = "reapproval"
)

// Label returns the caller facing wording for the reason
func (r ReviewReason) Label() string {
	switch r {
	case ReviewReasonInitial:
		return "sent for review"
	case ReviewReasonReapproval:
		return "sent for reapproval"
	}
	return ""
}

func (r ReviewReason) Value() (driver.Value, error) {
	return string(r), nil
}

func (r *ReviewReason) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = ReviewReasonNone
	case string:
		*r = ReviewReason(v)
	case []byte:
		*r = ReviewReason(v)
	default:
		return fmt.Errorf("cannot scan %T into ReviewReason", value)
	}
	return nil
}
