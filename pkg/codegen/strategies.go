package codegen

import "fmt"

// Names used in generated routines.
const (
	recv      = "m"
	sourceVar = "source"
	destVar   = "dest"
	flagsVar  = "flags"
)

// fieldEmitter emits the read and write of one field.
type fieldEmitter struct {
	d      Decision
	loader string
	// local prefixes the helper variables of the field.
	local string
}

// read emits the decode of the whole field into target.
func (fe fieldEmitter) read(e Emitter, target string) {
	switch {
	case !fe.d.Sequence:
		fe.readOne(e, target)
	case fe.d.Strategy == NativeScalar && fe.d.Scalar.HasArray():
		e.Statement("%s = %s.%s()", target, sourceVar, fe.d.Scalar.CreateArray)
	case fe.d.Strategy == NestedContainer:
		fe.readContainers(e, target)
	default:
		fe.readLoop(e, target)
	}
}

// write emits the encode of the whole field from value.
func (fe fieldEmitter) write(e Emitter, value string) {
	switch {
	case !fe.d.Sequence:
		fe.writeOne(e, value)
	case fe.d.Strategy == NativeScalar && fe.d.Scalar.HasArray():
		e.Statement("%s.%s(%s)", destVar, fe.d.Scalar.WriteArray, value)
	case fe.d.Strategy == NestedContainer:
		e.Statement("parcel.WriteContainerArray(%s, %s, %s)", destVar, value, flagsVar)
	default:
		fe.writeLoop(e, value)
	}
}

func (fe fieldEmitter) readOne(e Emitter, target string) {
	switch fe.d.Strategy {
	case NativeScalar:
		e.Statement("%s = %s.%s()", target, sourceVar, fe.d.Scalar.Read)
	case DateTimestamp:
		e.Statement("%s = parcel.TicksDate(%s.ReadLong())", target, sourceVar)
	case BooleanFlag:
		e.Statement("%s = %s.ReadInt() == 1", target, sourceVar)
	case EnumOrdinal:
		e.Statement("%s = parcel.EnumAt(%s, %s)", target, sourceVar, fe.d.Values)
	case NestedContainer:
		e.BeginBlock("if v := %s.ReadContainer(%s); v != nil", sourceVar, fe.loader)
		e.Statement("%s = v.(%s)", target, fe.d.GoType)
		e.EndBlock()
	default:
		if fe.d.GoType == "any" {
			e.Statement("%s = %s.ReadValue(%s)", target, sourceVar, fe.loader)
			return
		}
		e.BeginBlock("if v := %s.ReadValue(%s); v != nil", sourceVar, fe.loader)
		e.Statement("%s = v.(%s)", target, fe.d.GoType)
		e.EndBlock()
	}
}

func (fe fieldEmitter) writeOne(e Emitter, value string) {
	switch fe.d.Strategy {
	case NativeScalar:
		e.Statement("%s.%s(%s)", destVar, fe.d.Scalar.Write, value)
	case DateTimestamp:
		e.Statement("%s.WriteLong(parcel.DateTicks(%s))", destVar, value)
	case BooleanFlag:
		if fe.d.GoType != "bool" {
			value = fmt.Sprintf("bool(%s)", value)
		}
		e.Statement("%s.WriteInt(parcel.BoolInt(%s))", destVar, value)
	case EnumOrdinal:
		e.Statement("%s.WriteInt(parcel.Ordinal(%s, %s))", destVar, value, fe.d.Values)
	case NestedContainer:
		e.Statement("%s.WriteContainer(%s, %s)", destVar, value, flagsVar)
	default:
		e.Statement("%s.WriteValue(%s)", destVar, value)
	}
}

// readContainers reads a container array and casts each element. A nil
// array leaves target nil.
func (fe fieldEmitter) readContainers(e Emitter, target string) {
	items := fe.local + "Items"
	e.Declare(items, fmt.Sprintf("%s.ReadContainerArray(%s)", sourceVar, fe.loader))
	e.BeginBlock("if %s != nil", items)
	e.Statement("%s = make([]%s, len(%s))", target, fe.d.GoType, items)
	e.BeginBlock("for i, v := range %s", items)
	e.BeginBlock("if v != nil")
	e.Statement("%s[i] = v.(%s)", target, fe.d.GoType)
	e.EndBlock()
	e.EndBlock()
	e.EndBlock()
}

// readLoop reads a count, then that many single values. A zero or
// negative count yields an empty slice.
func (fe fieldEmitter) readLoop(e Emitter, target string) {
	count := fe.local + "Count"
	e.Declare(count, sourceVar+".ReadCount()")
	e.Statement("%s = make([]%s, %s)", target, fe.d.GoType, count)
	e.BeginBlock("for i := range %s", target)
	fe.readOne(e, target+"[i]")
	e.EndBlock()
}

// writeLoop writes the element count, then each element. A nil slice is
// written as an empty one.
func (fe fieldEmitter) writeLoop(e Emitter, value string) {
	e.Statement("%s.WriteInt(int32(len(%s)))", destVar, value)
	e.BeginBlock("for _, v := range %s", value)
	fe.writeOne(e, "v")
	e.EndBlock()
}
