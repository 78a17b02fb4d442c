package snowflake

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Custom epoch: January 1, 2025 00:00:00 UTC.
const epoch int64 = 1735689600000

// The platform packs worker, process, and sequence bits below the timestamp.
const timestampShift = 22

// ID is a snowflake ID minted by the platform. It marshals to/from JSON
// as a string, matching the platform's wire format.
type ID int64

func (id ID) Int64() int64 {
	return int64(id)
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Time returns the wall-clock creation time embedded in the ID.
func (id ID) Time() time.Time {
	ms := (int64(id) >> timestampShift) + epoch
	return time.UnixMilli(ms)
}

// Parse converts a decimal ID string to an ID.
func Parse(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("snowflake: invalid id string %q: %w", s, err)
	}
	return ID(n), nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(id), 10))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Try as a number for backwards compat.
		var n int64
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return fmt.Errorf("snowflake: cannot unmarshal %s: %w", string(data), err)
		}
		*id = ID(n)
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("snowflake: invalid id string %q: %w", s, err)
	}
	*id = ID(n)
	return nil
}
