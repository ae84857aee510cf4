package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// QuotationStatus represents the lifecycle status of a quotation. Once a
// quotation leaves draft it is informally called an order.
type QuotationStatus int

const (
	QuotationStatusDraft     QuotationStatus = 0
	QuotationStatusAccepted  QuotationStatus = 1
	QuotationStatusRejected  QuotationStatus = 2
	QuotationStatusReview    QuotationStatus = 3
	QuotationStatusApproved  QuotationStatus = 4
	QuotationStatusConfirmed QuotationStatus = 5
	QuotationStatusBooked    QuotationStatus = 6
)

var quotationStatusNames = [...]string{"draft", "accepted", "rejected", "review", "approved", "confirmed", "booked"}

var quotationStatusDisplayNames = [...]string{"Draft", "Accepted", "Rejected", "In Review", "Approved", "Confirmed", "Booked"}

// QuotationStatuses lists every status in declaration order
func QuotationStatuses() []QuotationStatus {
	return []QuotationStatus{
		QuotationStatusDraft,
		QuotationStatusAccepted,
		QuotationStatusRejected,
		QuotationStatusReview,
		QuotationStatusApproved,
		QuotationStatusConfirmed,
		QuotationStatusBooked,
	}
}

// IsValid reports whether s is one of the declared statuses
func (s QuotationStatus) IsValid() bool {
	return s >= QuotationStatusDraft && int(s) < len(quotationStatusNames)
}

func (s QuotationStatus) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("unknown(%d)", int(s))
	}
	return quotationStatusNames[s]
}

// DisplayName returns the human readable label for the status
func (s QuotationStatus) DisplayName() string {
	if !s.IsValid() {
		return "Unknown"
	}
	return quotationStatusDisplayNames[s]
}

// ParseQuotationStatus converts a wire name (case-insensitive) into a status
func ParseQuotationStatus(str string) (QuotationStatus, error) {
	needle := strings.ToLower(strings.TrimSpace(str))
	for i, name := range quotationStatusNames {
		if name == needle {
			return QuotationStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown quotation status %q", str)
}

func (s QuotationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *QuotationStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		if !QuotationStatus(i).IsValid() {
			return fmt.Errorf("unknown quotation status %d", i)
		}
		*s = QuotationStatus(i)
		return nil
	}
	parsed, err := ParseQuotationStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s QuotationStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *QuotationStatus) Scan(value interface{}) error {
	if value == nil {
		*s = QuotationStatusDraft
		return nil
	}
	switch v := value.(type) {
	case int64:
		*s = QuotationStatus(v)
	case int:
		*s = QuotationStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into QuotationStatus", value)
	}
	return nil
}
