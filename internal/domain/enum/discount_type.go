package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// DiscountType represents how a quotation discount is applied
type DiscountType int

const (
	DiscountTypeAmount     DiscountType = 0
	DiscountTypePercentage DiscountType = 1
)

func (t DiscountType) IsValid() bool {
	return t == DiscountTypeAmount || t == DiscountTypePercentage
}

func (t DiscountType) String() string {
	names := [...]string{"amount", "percentage"}
	if !t.IsValid() {
		return "amount"
	}
	return names[t]
}

// ParseDiscountType converts a wire name into a discount type
func ParseDiscountType(str string) (DiscountType, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "amount", "fixed":
		return DiscountTypeAmount, nil
	case "percentage", "percent":
		return DiscountTypePercentage, nil
	}
	return 0, fmt.Errorf("unknown discount type %q", str)
}

func (t DiscountType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *DiscountType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*t = DiscountType(i)
		return nil
	}
	parsed, err := ParseDiscountType(str)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t DiscountType) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *DiscountType) Scan(value interface{}) error {
	if value == nil {
		*t = DiscountTypeAmount
		return nil
	}
	switch v := value.(type) {
	case int64:
		*t = DiscountType(v)
	case int:
		*t = DiscountType(v)
	}
	return nil
}
