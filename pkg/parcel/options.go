package parcel

// Limits defines resource limits for reading and writing parcels.
// A zero value for any field means no limit.
type Limits struct {
	// MaxParcelSize is the maximum total parcel size in bytes.
	MaxParcelSize int64

	// MaxDepth is the maximum container nesting depth.
	MaxDepth int

	// MaxStringLength is the maximum length of a string in bytes.
	MaxStringLength int

	// MaxBytesLength is the maximum length of a byte array.
	MaxBytesLength int

	// MaxArrayLength is the maximum element count of an array or
	// count-prefixed sequence.
	MaxArrayLength int
}

// DefaultLimits are generous limits suitable for most use cases.
var DefaultLimits = Limits{
	MaxParcelSize:   64 * 1024 * 1024,
	MaxDepth:        100,
	MaxStringLength: 10 * 1024 * 1024,
	MaxBytesLength:  100 * 1024 * 1024,
	MaxArrayLength:  1_000_000,
}

// SecureLimits are conservative limits for untrusted input.
var SecureLimits = Limits{
	MaxParcelSize:   1 * 1024 * 1024,
	MaxDepth:        32,
	MaxStringLength: 1 * 1024 * 1024,
	MaxBytesLength:  10 * 1024 * 1024,
	MaxArrayLength:  10_000,
}

// Options configures parcel behavior.
type Options struct {
	// Limits specifies resource limits.
	Limits Limits

	// ValidateUTF8 rejects strings that are not valid UTF-8.
	ValidateUTF8 bool

	// ValueCodec encodes values written through the opaque value channel.
	// Nil selects CBOR.
	ValueCodec ValueCodec
}

// DefaultOptions are the default parcel options.
var DefaultOptions = Options{
	Limits:       DefaultLimits,
	ValidateUTF8: true,
}

// SecureOptions are conservative options for untrusted input.
var SecureOptions = Options{
	Limits:       SecureLimits,
	ValidateUTF8: true,
}

func (o Options) valueCodec() ValueCodec {
	if o.ValueCodec == nil {
		return CBOR
	}
	return o.ValueCodec
}

// Version information, set by ldflags at build time.
var (
	// Version is the semantic version of the library.
	Version = "dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"
)

// VersionInfo returns a formatted version string.
func VersionInfo() string {
	return Version + " (" + GitCommit + ")"
}
