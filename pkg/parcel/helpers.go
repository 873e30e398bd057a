package parcel

import (
	"fmt"
	"time"
)

// AbsentDate is the tick count written for an absent date. Only this exact
// value reads back as absent.
const AbsentDate int64 = -1

// DateTicks returns the millisecond tick count for t, or AbsentDate when t
// is nil.
func DateTicks(t *time.Time) int64 {
	if t == nil {
		return AbsentDate
	}
	return t.UnixMilli()
}

// TicksDate is the inverse of DateTicks. Dates come back in UTC.
func TicksDate(ticks int64) *time.Time {
	if ticks == AbsentDate {
		return nil
	}
	t := time.UnixMilli(ticks).UTC()
	return &t
}

// BoolInt returns 1 for true and 0 for false.
func BoolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Ordinal returns the zero-based position of v in values, its declared
// constant list. A value outside the list yields -1, which no decoder
// accepts.
func Ordinal[E comparable](v E, values []E) int32 {
	for i, c := range values {
		if c == v {
			return int32(i)
		}
	}
	return -1
}

// EnumAt reads an ordinal from source and returns the constant at that
// position in values. An ordinal outside the list fails the decode with
// ErrOrdinalOutOfRange.
func EnumAt[E any](source *Parcel, values []E) E {
	var zero E
	offset := source.pos
	i := source.ReadInt()
	if source.err != nil {
		return zero
	}
	if i < 0 || int(i) >= len(values) {
		source.setError(NewDecodeErrorAt(offset,
			fmt.Sprintf("ordinal %d outside %d constants", i, len(values)), ErrOrdinalOutOfRange))
		return zero
	}
	return values[i]
}
