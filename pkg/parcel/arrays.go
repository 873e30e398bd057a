package parcel

// Arrays are written as a signed element count followed by the elements.
// A nil slice is written with count -1 and read back as nil, so nil and
// empty slices stay distinct across the round trip.

const nilArray = -1

func writeArray[T any](p *Parcel, vs []T, write func(T)) {
	if p.err != nil {
		return
	}
	if vs == nil {
		p.writeSvarint(nilArray)
		return
	}
	if limit := p.opts.Limits.MaxArrayLength; limit > 0 && len(vs) > limit {
		p.setError(NewEncodeError("", "array too long", ErrMaxArrayLength))
		return
	}
	p.writeSvarint(int64(len(vs)))
	for _, v := range vs {
		write(v)
	}
}

func createArray[T any](p *Parcel, minElemSize int, read func() T) []T {
	n := p.readArrayCount(minElemSize)
	if n < 0 {
		return nil
	}
	out := make([]T, n)
	for i := range out {
		out[i] = read()
		if p.err != nil {
			return nil
		}
	}
	return out
}

// readArrayCount reads an array count written by writeArray. It returns -1
// for a nil array and rejects counts the remaining data cannot hold.
func (p *Parcel) readArrayCount(minElemSize int) int {
	n := p.readSvarint()
	if p.err != nil {
		return nilArray
	}
	if n < 0 {
		return nilArray
	}
	if !p.checkCount(n, minElemSize) {
		return nilArray
	}
	return int(n)
}

func (p *Parcel) checkCount(n int64, minElemSize int) bool {
	if limit := p.opts.Limits.MaxArrayLength; limit > 0 && n > int64(limit) {
		p.setErrorAt(ErrMaxArrayLength, "array too long")
		return false
	}
	if minElemSize > 0 && n > int64(p.Len()/minElemSize) {
		p.setErrorAt(ErrMaxArrayLength, "array count exceeds remaining data")
		return false
	}
	return true
}

// ReadCount reads the element count of a count-prefixed sequence, written
// with WriteInt. A negative count, or any read failure, yields zero so a
// loop over the result never runs past what was declared.
func (p *Parcel) ReadCount() int {
	n := p.ReadInt()
	if p.err != nil || n <= 0 {
		return 0
	}
	if !p.checkCount(int64(n), 1) {
		return 0
	}
	return int(n)
}

// WriteIntArray writes a slice of int32.
func (p *Parcel) WriteIntArray(vs []int32) {
	writeArray(p, vs, p.WriteInt)
}

// CreateIntArray reads a slice written by WriteIntArray.
func (p *Parcel) CreateIntArray() []int32 {
	return createArray(p, 1, p.ReadInt)
}

// WriteLongArray writes a slice of int64.
func (p *Parcel) WriteLongArray(vs []int64) {
	writeArray(p, vs, p.WriteLong)
}

// CreateLongArray reads a slice written by WriteLongArray.
func (p *Parcel) CreateLongArray() []int64 {
	return createArray(p, 1, p.ReadLong)
}

// WriteShortArray writes a slice of int16.
func (p *Parcel) WriteShortArray(vs []int16) {
	writeArray(p, vs, p.WriteShort)
}

// CreateShortArray reads a slice written by WriteShortArray.
func (p *Parcel) CreateShortArray() []int16 {
	return createArray(p, 1, p.ReadShort)
}

// WriteFloatArray writes a slice of float32.
func (p *Parcel) WriteFloatArray(vs []float32) {
	writeArray(p, vs, p.WriteFloat)
}

// CreateFloatArray reads a slice written by WriteFloatArray.
func (p *Parcel) CreateFloatArray() []float32 {
	return createArray(p, 4, p.ReadFloat)
}

// WriteDoubleArray writes a slice of float64.
func (p *Parcel) WriteDoubleArray(vs []float64) {
	writeArray(p, vs, p.WriteDouble)
}

// CreateDoubleArray reads a slice written by WriteDoubleArray.
func (p *Parcel) CreateDoubleArray() []float64 {
	return createArray(p, 8, p.ReadDouble)
}

// WriteStringArray writes a slice of strings.
func (p *Parcel) WriteStringArray(vs []string) {
	writeArray(p, vs, p.WriteString)
}

// CreateStringArray reads a slice written by WriteStringArray.
func (p *Parcel) CreateStringArray() []string {
	return createArray(p, 1, p.ReadString)
}

// WriteByteArray writes a byte slice.
func (p *Parcel) WriteByteArray(b []byte) {
	if p.err != nil {
		return
	}
	if b == nil {
		p.writeSvarint(nilArray)
		return
	}
	if limit := p.opts.Limits.MaxBytesLength; limit > 0 && len(b) > limit {
		p.setError(NewEncodeError("", "byte array too long", ErrMaxBytesLength))
		return
	}
	p.writeSvarint(int64(len(b)))
	if !p.grow(len(b)) {
		return
	}
	p.buf = append(p.buf, b...)
}

// CreateByteArray reads a byte slice written by WriteByteArray.
// The result is a copy and stays valid after the parcel is reused.
func (p *Parcel) CreateByteArray() []byte {
	n := p.readSvarint()
	if p.err != nil || n < 0 {
		return nil
	}
	if limit := p.opts.Limits.MaxBytesLength; limit > 0 && n > int64(limit) {
		p.setErrorAt(ErrMaxBytesLength, "byte array too long")
		return nil
	}
	if !p.ensure(int(n)) {
		return nil
	}
	out := make([]byte, n)
	copy(out, p.buf[p.pos:])
	p.pos += int(n)
	return out
}
