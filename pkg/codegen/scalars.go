package codegen

import "github.com/blockberries/parcelgen/pkg/schema"

// ScalarOps names the parcel operations for a primitive the parcel
// supports natively.
type ScalarOps struct {
	// GoType is the Go type of a single value.
	GoType string
	Write  string
	Read   string
	// WriteArray and CreateArray are the bulk operations for a sequence.
	// They are empty when the parcel has no bulk form, in which case a
	// sequence falls back to a count-prefixed loop.
	WriteArray  string
	CreateArray string
}

// HasArray reports whether the parcel has a bulk form for the scalar.
func (s ScalarOps) HasArray() bool {
	return s.WriteArray != ""
}

func scalar(goType, name string) ScalarOps {
	return ScalarOps{
		GoType:      goType,
		Write:       "Write" + name,
		Read:        "Read" + name,
		WriteArray:  "Write" + name + "Array",
		CreateArray: "Create" + name + "Array",
	}
}

// scalarTable maps primitive kinds to native parcel operations. Booleans
// are absent: they are written as integers by the boolean strategy.
var scalarTable = map[schema.Kind]ScalarOps{
	schema.KindInt:    scalar("int32", "Int"),
	schema.KindLong:   scalar("int64", "Long"),
	schema.KindShort:  scalar("int16", "Short"),
	schema.KindFloat:  scalar("float32", "Float"),
	schema.KindDouble: scalar("float64", "Double"),
	schema.KindString: scalar("string", "String"),
	schema.KindByte: {
		GoType:      "byte",
		Write:       "WriteUint8",
		Read:        "ReadUint8",
		WriteArray:  "WriteByteArray",
		CreateArray: "CreateByteArray",
	},
	schema.KindBytes: {
		GoType: "[]byte",
		Write:  "WriteByteArray",
		Read:   "CreateByteArray",
	},
}

// LookupScalar returns the native operations for a primitive kind. A miss
// is not an error: the classifier moves on to its next rule.
func LookupScalar(k schema.Kind) (ScalarOps, bool) {
	ops, ok := scalarTable[k]
	return ops, ok
}

// goPrimitive returns the Go type holding a builtin primitive kind.
func goPrimitive(k schema.Kind) string {
	if ops, ok := scalarTable[k]; ok {
		return ops.GoType
	}
	if k == schema.KindBool {
		return "bool"
	}
	return "any"
}
