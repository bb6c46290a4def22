// models/wei.go
package models

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"strings"
)

// Wei is a token amount in the smallest on-chain unit. Stored as a
// numeric(78,0) column so the full uint256 range fits, serialized to JSON as
// a decimal string (amounts routinely exceed float64/int64 precision).
type Wei struct {
	*big.Int
}

func NewWei(v int64) Wei {
	return Wei{big.NewInt(v)}
}

// ParseWei parses a base-10 amount string. Amounts are unsigned.
func ParseWei(s string) (Wei, error) {
	i, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || i.Sign() < 0 {
		return Wei{}, fmt.Errorf("invalid wei amount %q", s)
	}
	return Wei{i}, nil
}

// BigInt returns the underlying value, never nil.
func (w Wei) BigInt() *big.Int {
	if w.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(w.Int)
}

func (w Wei) String() string {
	if w.Int == nil {
		return "0"
	}
	return w.Int.String()
}

// Cmp compares like big.Int.Cmp; a nil inner value counts as zero.
func (w Wei) Cmp(other Wei) int {
	return w.BigInt().Cmp(other.BigInt())
}

func (w Wei) Sign() int {
	if w.Int == nil {
		return 0
	}
	return w.Int.Sign()
}

// SubClamped returns w - other, floored at zero.
func (w Wei) SubClamped(other Wei) Wei {
	r := new(big.Int).Sub(w.BigInt(), other.BigInt())
	if r.Sign() < 0 {
		r.SetInt64(0)
	}
	return Wei{r}
}

func (w Wei) Value() (driver.Value, error) {
	return w.String(), nil
}

func (w *Wei) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		w.Int = new(big.Int)
		return nil
	case int64:
		w.Int = big.NewInt(v)
		return nil
	case string:
		return w.setString(v)
	case []byte:
		return w.setString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Wei", src)
	}
}

func (w *Wei) setString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		w.Int = new(big.Int)
		return nil
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("invalid wei value %q in database", s)
	}
	w.Int = i
	return nil
}

func (w Wei) MarshalJSON() ([]byte, error) {
	return []byte(`"` + w.String() + `"`), nil
}

func (w *Wei) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		w.Int = new(big.Int)
		return nil
	}
	return w.setString(s)
}
